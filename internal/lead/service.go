package lead

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"funnel/internal/attribution"
	"funnel/internal/brevo"
	"funnel/internal/crm"
	"funnel/internal/logger"
	"funnel/pkg/errors"
	"funnel/pkg/metrics"
)

// CrmClient is the lead-facing surface of the HubSpot client.
type CrmClient interface {
	FormIDFor(formType string) string
	SubmitForm(ctx context.Context, formID string, fields []crm.Field, subCtx crm.SubmissionContext) error
}

// MarketingClient is the lead-facing surface of the Brevo client.
type MarketingClient interface {
	DefaultListID() int
	UpsertContact(ctx context.Context, contact brevo.Contact) error
	LookupContactID(ctx context.Context, email string) (int64, error)
	AddToWorkflow(ctx context.Context, contactID int64, workflowID string) error
	TrackEvent(ctx context.Context, event brevo.Event) error
}

// AttributionSource resolves the visitor's active attribution.
type AttributionSource interface {
	Get(ctx context.Context, visitorID string) (*attribution.Record, error)
}

// EventPropertySource returns the accumulated CRM projections of the
// visitor's session events.
type EventPropertySource interface {
	EventProperties(ctx context.Context, visitorID string) (map[string]string, error)
}

// Service proxies lead submissions to the CRM and the marketing platform.
type Service struct {
	crm       CrmClient
	marketing MarketingClient
	attrib    AttributionSource
	events    EventPropertySource
	logger    logger.Logger
}

func NewService(crmClient CrmClient, marketing MarketingClient, attrib AttributionSource, events EventPropertySource, log logger.Logger) *Service {
	return &Service{
		crm:       crmClient,
		marketing: marketing,
		attrib:    attrib,
		events:    events,
		logger:    log,
	}
}

// Submit validates the lead, enriches it with the visitor's attribution and
// session events, then runs the CRM form submission and the marketing
// contact upsert concurrently. The returned result carries both provider
// outcomes; the error (and Result.Success) reflect the CRM leg alone, since
// that is the system of record for leads.
func (s *Service) Submit(ctx context.Context, visitorID string, sub Submission) (*Result, error) {
	if err := validateSubmission(&sub); err != nil {
		return nil, err
	}

	record, props := s.enrichment(ctx, visitorID)

	var crmErr, marketingErr error
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		crmErr = s.submitToCrm(gctx, sub, record, props)
		metrics.ObserveLeadSubmission(ProviderCRM, time.Since(start), statusLabel(crmErr))
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		marketingErr = s.submitToMarketing(gctx, sub, record)
		metrics.ObserveLeadSubmission(ProviderMarketing, time.Since(start), statusLabel(marketingErr))
		return nil
	})

	_ = g.Wait()

	result := &Result{
		Success: crmErr == nil,
		Providers: []ProviderResult{
			providerResult(ProviderCRM, crmErr),
			providerResult(ProviderMarketing, marketingErr),
		},
	}

	if marketingErr != nil {
		s.logger.WarnwCtx(ctx, "Marketing contact sync failed", "error", marketingErr)
	}
	if crmErr != nil {
		return result, crmErr
	}

	s.logger.InfowCtx(ctx, "Lead submitted", "form_type", sub.FormType, "lead_source", sub.LeadSource)
	return result, nil
}

func validateSubmission(sub *Submission) error {
	details := map[string]interface{}{}
	if strings.TrimSpace(sub.Name) == "" {
		details["name"] = "name is required"
	}

	sub.Email = SanitizeEmail(sub.Email)
	if sub.Email == "" {
		details["email"] = "email is required"
	} else if !IsValidEmail(sub.Email) {
		details["email"] = "invalid email format or potentially fake email detected"
	}

	if len(details) > 0 {
		return errors.ErrValidation.WithDetails(details)
	}
	return nil
}

// enrichment fetches attribution and session event properties, degrading to
// empty values on store failures so a broken Redis never blocks a lead.
func (s *Service) enrichment(ctx context.Context, visitorID string) (*attribution.Record, map[string]string) {
	record, err := s.attrib.Get(ctx, visitorID)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Attribution lookup failed for lead", "error", err)
		record = nil
	}

	props, err := s.events.EventProperties(ctx, visitorID)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Event property lookup failed for lead", "error", err)
		props = map[string]string{}
	}

	return record, props
}

func (s *Service) submitToCrm(ctx context.Context, sub Submission, record *attribution.Record, props map[string]string) error {
	merged := attribution.ForCRM(record)
	for key, value := range props {
		if _, present := merged[key]; !present {
			merged[key] = value
		}
	}

	fields := []crm.Field{
		{Name: "email", Value: sub.Email},
		{Name: "firstname", Value: sub.FirstName()},
	}
	if last := sub.LastName(); last != "" {
		fields = append(fields, crm.Field{Name: "lastname", Value: last})
	}
	if sub.Phone != "" {
		fields = append(fields, crm.Field{Name: "phone", Value: sub.Phone})
	}
	if sub.Company != "" {
		fields = append(fields, crm.Field{Name: "company", Value: sub.Company})
	}
	if sub.LeadSource != "" {
		fields = append(fields, crm.Field{Name: "lead_source", Value: sub.LeadSource})
	}
	for _, key := range crmFieldOrder {
		if value, ok := merged[key]; ok {
			fields = append(fields, crm.Field{Name: key, Value: value})
		}
	}

	return s.crm.SubmitForm(ctx, s.crm.FormIDFor(sub.FormType), fields, crm.SubmissionContext{
		PageURI:  sub.PageURI,
		PageName: sub.PageName,
		HUTK:     sub.HUTK,
	})
}

// crmFieldOrder keeps form field order deterministic across submissions.
var crmFieldOrder = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term", "utm_id",
	"gclid", "fbclid",
	"lead_source_detail",
	"pdf_downloaded", "last_pdf_download",
	"calendar_booking_attempted", "last_booking_attempt",
	"book_call_clicked", "last_book_call_click",
}

func (s *Service) submitToMarketing(ctx context.Context, sub Submission, record *attribution.Record) error {
	attributes := map[string]any{}
	if first := sub.FirstName(); first != "" {
		attributes["FIRSTNAME"] = first
	}
	if last := sub.LastName(); last != "" {
		attributes["LASTNAME"] = last
	}
	if sub.Company != "" {
		attributes["COMPANY"] = sub.Company
	}
	if sub.LeadSource != "" {
		attributes["LEAD_SOURCE"] = sub.LeadSource
	}

	if record != nil {
		putUpper := func(key, value string) {
			if value != "" {
				attributes[key] = value
			}
		}
		putUpper("UTM_SOURCE", record.UTMSource)
		putUpper("UTM_MEDIUM", record.UTMMedium)
		putUpper("UTM_CAMPAIGN", record.UTMCampaign)
		putUpper("UTM_CONTENT", record.UTMContent)
		putUpper("UTM_TERM", record.UTMTerm)
		putUpper("GCLID", record.GCLID)
		putUpper("FBCLID", record.FBCLID)
		putUpper("AD_ID", record.AdID)
		putUpper("ADSET_ID", record.AdsetID)
		putUpper("CAMPAIGN_ID", record.CampaignID)
		putUpper("LANDING_PAGE", record.LandingPage)
		putUpper("REFERRER", record.Referrer)
	}

	listIDs := sub.ListIDs
	if len(listIDs) == 0 && s.marketing.DefaultListID() != 0 {
		listIDs = []int{s.marketing.DefaultListID()}
	}

	if err := s.marketing.UpsertContact(ctx, brevo.Contact{
		Email:         sub.Email,
		Attributes:    attributes,
		UpdateEnabled: true,
		ListIDs:       listIDs,
		Tags:          sub.Tags,
	}); err != nil {
		return err
	}

	s.trackDownloadEvent(ctx, sub, attributes)
	return nil
}

// trackDownloadEvent logs a pdf_downloaded event when the submission's tags
// mark it as a PDF funnel lead. Best-effort only.
func (s *Service) trackDownloadEvent(ctx context.Context, sub Submission, attributes map[string]any) {
	var isPDF, isRoadmap bool
	for _, tag := range sub.Tags {
		switch tag {
		case "pdf":
			isPDF = true
		case "mvp_roadmap":
			isRoadmap = true
		}
	}
	if !isPDF && !isRoadmap {
		return
	}

	fileName := "PDF Download"
	if isRoadmap {
		fileName = "MVP Roadmap PDF"
	}

	eventProps := map[string]any{"file_name": fileName}
	if sub.LeadSource != "" {
		eventProps["lead_source"] = sub.LeadSource
	}

	event := brevo.NewEvent("pdf_downloaded", sub.Email, attributes, eventProps)
	if err := s.marketing.TrackEvent(ctx, event); err != nil {
		s.logger.WarnwCtx(ctx, "Marketing download event failed", "error", err)
	}
}

// SubscribeDownload registers a download-captured email with the marketing
// platform, tagged with the download type so the PDF nurture flow picks it
// up. Used by the download tracking endpoint when the page already knows
// the visitor's email.
func (s *Service) SubscribeDownload(ctx context.Context, visitorID, email, leadSource, downloadType string) error {
	email = SanitizeEmail(email)
	if email == "" || !IsValidEmail(email) {
		return errors.ErrValidation.WithDetail("email", "invalid email format or potentially fake email detected")
	}
	if downloadType == "" {
		downloadType = "pdf"
	}

	record, err := s.attrib.Get(ctx, visitorID)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Attribution lookup failed for download subscription", "error", err)
		record = nil
	}

	sub := Submission{
		Email:      email,
		LeadSource: leadSource,
		Tags:       []string{downloadType},
	}
	return s.submitToMarketing(ctx, sub, record)
}

// EnrollWorkflow upserts the contact, resolves its id, then enrolls it in
// the given automation workflow. The first failing step's error is returned
// as-is so provider status and detail pass through.
func (s *Service) EnrollWorkflow(ctx context.Context, req WorkflowRequest) error {
	req.Email = SanitizeEmail(req.Email)

	details := map[string]interface{}{}
	if req.Email == "" {
		details["email"] = "email is required"
	}
	if req.WorkflowID == "" {
		details["workflow_id"] = "workflow id is required"
	}
	if len(details) > 0 {
		return errors.ErrValidation.WithDetails(details)
	}

	attributes := map[string]any{}
	if req.FirstName != "" {
		attributes["FIRSTNAME"] = req.FirstName
	}
	if req.LastName != "" {
		attributes["LASTNAME"] = req.LastName
	}

	if err := s.marketing.UpsertContact(ctx, brevo.Contact{
		Email:         req.Email,
		Attributes:    attributes,
		UpdateEnabled: true,
	}); err != nil {
		s.logger.WarnwCtx(ctx, "Workflow enrollment failed upserting contact", "error", err)
		return err
	}

	contactID, err := s.marketing.LookupContactID(ctx, req.Email)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Workflow enrollment failed resolving contact id", "error", err)
		return err
	}

	if err := s.marketing.AddToWorkflow(ctx, contactID, req.WorkflowID); err != nil {
		s.logger.WarnwCtx(ctx, "Workflow enrollment failed adding contact", "error", err)
		return err
	}

	s.logger.InfowCtx(ctx, "Contact enrolled in workflow", "workflow_id", req.WorkflowID)
	return nil
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func providerResult(provider string, err error) ProviderResult {
	result := ProviderResult{Provider: provider, Success: err == nil}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}
