package lead

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel/internal/attribution"
	"funnel/internal/brevo"
	"funnel/internal/crm"
	"funnel/internal/logger"
	"funnel/pkg/errors"
)

type fakeCrmClient struct {
	mu      sync.Mutex
	formID  string
	fields  []crm.Field
	subCtx  crm.SubmissionContext
	callErr error
}

func (f *fakeCrmClient) FormIDFor(formType string) string {
	if formType == crm.FormTypeSecondary {
		return "form-2"
	}
	return "form-1"
}

func (f *fakeCrmClient) SubmitForm(_ context.Context, formID string, fields []crm.Field, subCtx crm.SubmissionContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.formID = formID
	f.fields = fields
	f.subCtx = subCtx
	return f.callErr
}

func (f *fakeCrmClient) fieldValue(name string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range f.fields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

type fakeMarketingClient struct {
	mu          sync.Mutex
	contact     *brevo.Contact
	events      []brevo.Event
	upsertErr   error
	lookupErr   error
	workflowErr error
	eventErr    error
	contactID   int64
	enrolled    []string
}

func (f *fakeMarketingClient) DefaultListID() int { return 2 }

func (f *fakeMarketingClient) UpsertContact(_ context.Context, contact brevo.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.contact = &contact
	return nil
}

func (f *fakeMarketingClient) LookupContactID(context.Context, string) (int64, error) {
	if f.lookupErr != nil {
		return 0, f.lookupErr
	}
	return f.contactID, nil
}

func (f *fakeMarketingClient) AddToWorkflow(_ context.Context, _ int64, workflowID string) error {
	if f.workflowErr != nil {
		return f.workflowErr
	}
	f.enrolled = append(f.enrolled, workflowID)
	return nil
}

func (f *fakeMarketingClient) TrackEvent(_ context.Context, event brevo.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, event)
	return nil
}

type fakeAttribution struct {
	record *attribution.Record
	err    error
}

func (f *fakeAttribution) Get(context.Context, string) (*attribution.Record, error) {
	return f.record, f.err
}

type fakeEventProps struct {
	props map[string]string
	err   error
}

func (f *fakeEventProps) EventProperties(context.Context, string) (map[string]string, error) {
	return f.props, f.err
}

type serviceFixture struct {
	service   *Service
	crm       *fakeCrmClient
	marketing *fakeMarketingClient
	attrib    *fakeAttribution
	events    *fakeEventProps
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	log, err := logger.New("error", "json")
	require.NoError(t, err)

	f := &serviceFixture{
		crm:       &fakeCrmClient{},
		marketing: &fakeMarketingClient{contactID: 42},
		attrib: &fakeAttribution{
			record: &attribution.Record{
				Params: attribution.Params{
					UTMSource:   "facebook",
					UTMCampaign: "launch",
					FBCLID:      "fb-1",
					AdsetID:     "as-1",
				},
				Referrer:    "https://facebook.com",
				LandingPage: "https://example.com/",
			},
		},
		events: &fakeEventProps{props: map[string]string{
			"pdf_downloaded":     "true",
			"lead_source_detail": "thankyou_download",
		}},
	}
	f.service = NewService(f.crm, f.marketing, f.attrib, f.events, log)
	return f
}

func validSubmission() Submission {
	return Submission{
		Name:       "Jane Doe",
		Email:      "jane@company.io",
		Company:    "Acme",
		FormType:   crm.FormTypePrimary,
		LeadSource: "hero_form",
		PageURI:    "https://example.com/",
		PageName:   "Home",
		HUTK:       "hub-cookie",
	}
}

func TestSubmitHappyPath(t *testing.T) {
	f := newServiceFixture(t)

	result, err := f.service.Submit(context.Background(), "visitor-1", validSubmission())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	require.Len(t, result.Providers, 2)
	for _, pr := range result.Providers {
		assert.True(t, pr.Success, pr.Provider)
	}

	// CRM leg: form, attribution and accumulated session events attached.
	assert.Equal(t, "form-1", f.crm.formID)
	email, _ := f.crm.fieldValue("email")
	assert.Equal(t, "jane@company.io", email)
	first, _ := f.crm.fieldValue("firstname")
	assert.Equal(t, "Jane", first)
	last, _ := f.crm.fieldValue("lastname")
	assert.Equal(t, "Doe", last)
	source, _ := f.crm.fieldValue("utm_source")
	assert.Equal(t, "facebook", source)
	downloaded, _ := f.crm.fieldValue("pdf_downloaded")
	assert.Equal(t, "true", downloaded)
	assert.Equal(t, "hub-cookie", f.crm.subCtx.HUTK)
	assert.Equal(t, "https://example.com/", f.crm.subCtx.PageURI)

	// Marketing leg: uppercase attributes, default list, updateEnabled.
	require.NotNil(t, f.marketing.contact)
	assert.True(t, f.marketing.contact.UpdateEnabled)
	assert.Equal(t, []int{2}, f.marketing.contact.ListIDs)
	assert.Equal(t, "facebook", f.marketing.contact.Attributes["UTM_SOURCE"])
	assert.Equal(t, "as-1", f.marketing.contact.Attributes["ADSET_ID"])
	assert.Equal(t, "https://facebook.com", f.marketing.contact.Attributes["REFERRER"])
	assert.Equal(t, "Jane", f.marketing.contact.Attributes["FIRSTNAME"])
}

func TestSubmitValidation(t *testing.T) {
	f := newServiceFixture(t)

	tests := []struct {
		name   string
		mutate func(*Submission)
		field  string
	}{
		{"missing name", func(s *Submission) { s.Name = " " }, "name"},
		{"missing email", func(s *Submission) { s.Email = "" }, "email"},
		{"fake email", func(s *Submission) { s.Email = "test@company.io" }, "email"},
		{"malformed email", func(s *Submission) { s.Email = "not-an-email" }, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)

			result, err := f.service.Submit(context.Background(), "visitor-1", sub)
			assert.Nil(t, result)
			require.Error(t, err)

			var appErr *errors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
			assert.Contains(t, appErr.Details, tt.field)
		})
	}
}

func TestSubmitEmailSanitizedBeforeValidation(t *testing.T) {
	f := newServiceFixture(t)
	sub := validSubmission()
	sub.Email = "  Jane@Company.IO  "

	_, err := f.service.Submit(context.Background(), "visitor-1", sub)
	require.NoError(t, err)

	email, _ := f.crm.fieldValue("email")
	assert.Equal(t, "jane@company.io", email)
}

func TestSubmitCrmFailureFailsOverall(t *testing.T) {
	f := newServiceFixture(t)
	f.crm.callErr = errors.NewUpstreamError("hubspot", http.StatusBadRequest, "bad form")

	result, err := f.service.Submit(context.Background(), "visitor-1", validSubmission())
	require.Error(t, err)
	require.NotNil(t, result)

	assert.False(t, result.Success)
	assert.False(t, result.Providers[0].Success)
	assert.True(t, result.Providers[1].Success)

	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestSubmitMarketingFailureStillSucceeds(t *testing.T) {
	f := newServiceFixture(t)
	f.marketing.upsertErr = errors.ErrUpstreamNetwork

	result, err := f.service.Submit(context.Background(), "visitor-1", validSubmission())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Providers[0].Success)
	assert.False(t, result.Providers[1].Success)
	assert.NotEmpty(t, result.Providers[1].Error)
}

func TestSubmitSurvivesEnrichmentFailures(t *testing.T) {
	f := newServiceFixture(t)
	f.attrib.err = errors.ErrInternal
	f.attrib.record = nil
	f.events.err = errors.ErrInternal
	f.events.props = nil

	result, err := f.service.Submit(context.Background(), "visitor-1", validSubmission())
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, hasUTM := f.crm.fieldValue("utm_source")
	assert.False(t, hasUTM)
}

func TestEnrollWorkflow(t *testing.T) {
	f := newServiceFixture(t)

	err := f.service.EnrollWorkflow(context.Background(), WorkflowRequest{
		Email:      " Jane@Company.IO ",
		FirstName:  "Jane",
		LastName:   "Doe",
		WorkflowID: "wf-7",
	})
	require.NoError(t, err)

	require.NotNil(t, f.marketing.contact)
	assert.Equal(t, "jane@company.io", f.marketing.contact.Email)
	assert.Equal(t, "Jane", f.marketing.contact.Attributes["FIRSTNAME"])
	assert.Equal(t, []string{"wf-7"}, f.marketing.enrolled)
}

func TestEnrollWorkflowValidation(t *testing.T) {
	f := newServiceFixture(t)

	err := f.service.EnrollWorkflow(context.Background(), WorkflowRequest{})
	require.Error(t, err)

	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details, "email")
	assert.Contains(t, appErr.Details, "workflow_id")
}

func TestEnrollWorkflowStepFailures(t *testing.T) {
	req := WorkflowRequest{Email: "jane@company.io", WorkflowID: "wf-7"}

	t.Run("upsert fails", func(t *testing.T) {
		f := newServiceFixture(t)
		f.marketing.upsertErr = errors.NewUpstreamError("brevo", http.StatusConflict, "duplicate")

		err := f.service.EnrollWorkflow(context.Background(), req)
		var appErr *errors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusConflict, appErr.Status)
		assert.Empty(t, f.marketing.enrolled)
	})

	t.Run("lookup fails", func(t *testing.T) {
		f := newServiceFixture(t)
		f.marketing.lookupErr = errors.ErrUpstreamNetwork

		err := f.service.EnrollWorkflow(context.Background(), req)
		require.Error(t, err)
		assert.Empty(t, f.marketing.enrolled)
	})

	t.Run("enroll fails", func(t *testing.T) {
		f := newServiceFixture(t)
		f.marketing.workflowErr = errors.NewUpstreamError("brevo", http.StatusNotFound, "no workflow")

		err := f.service.EnrollWorkflow(context.Background(), req)
		var appErr *errors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusNotFound, appErr.Status)
	})
}

func TestSubmitPDFTagsTriggerDownloadEvent(t *testing.T) {
	tests := []struct {
		name      string
		tags      []string
		wantEvent bool
		wantFile  string
	}{
		{"mvp roadmap tag", []string{"mvp_roadmap"}, true, "MVP Roadmap PDF"},
		{"pdf tag", []string{"pdf"}, true, "PDF Download"},
		{"both tags", []string{"pdf", "mvp_roadmap"}, true, "MVP Roadmap PDF"},
		{"unrelated tags", []string{"newsletter"}, false, ""},
		{"no tags", nil, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			sub := validSubmission()
			sub.Tags = tt.tags

			_, err := f.service.Submit(context.Background(), "visitor-1", sub)
			require.NoError(t, err)

			if !tt.wantEvent {
				assert.Empty(t, f.marketing.events)
				return
			}
			require.Len(t, f.marketing.events, 1)
			event := f.marketing.events[0]
			assert.Equal(t, "pdf_downloaded", event.Name)
			assert.Equal(t, tt.wantFile, event.EventProperties["file_name"])
			assert.Equal(t, "jane@company.io", event.Identifiers.EmailID)
		})
	}
}

func TestSubscribeDownload(t *testing.T) {
	f := newServiceFixture(t)

	err := f.service.SubscribeDownload(context.Background(), "visitor-1", "Jane@Company.IO", "thankyou_download", "mvp_roadmap")
	require.NoError(t, err)

	require.NotNil(t, f.marketing.contact)
	assert.Equal(t, "jane@company.io", f.marketing.contact.Email)
	assert.Equal(t, []string{"mvp_roadmap"}, f.marketing.contact.Tags)
	assert.Equal(t, []int{2}, f.marketing.contact.ListIDs)
	assert.Equal(t, "facebook", f.marketing.contact.Attributes["UTM_SOURCE"])
	assert.Equal(t, "thankyou_download", f.marketing.contact.Attributes["LEAD_SOURCE"])

	// The roadmap tag also logs the download event.
	require.Len(t, f.marketing.events, 1)
	assert.Equal(t, "pdf_downloaded", f.marketing.events[0].Name)
	assert.Equal(t, "MVP Roadmap PDF", f.marketing.events[0].EventProperties["file_name"])
}

func TestSubscribeDownloadDefaultsTagToPDF(t *testing.T) {
	f := newServiceFixture(t)

	err := f.service.SubscribeDownload(context.Background(), "visitor-1", "jane@company.io", "", "")
	require.NoError(t, err)

	require.NotNil(t, f.marketing.contact)
	assert.Equal(t, []string{"pdf"}, f.marketing.contact.Tags)
	require.Len(t, f.marketing.events, 1)
	assert.Equal(t, "PDF Download", f.marketing.events[0].EventProperties["file_name"])
}

func TestSubscribeDownloadRejectsInvalidEmail(t *testing.T) {
	f := newServiceFixture(t)

	err := f.service.SubscribeDownload(context.Background(), "visitor-1", "12345@numbers.com", "", "pdf")
	require.Error(t, err)

	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Nil(t, f.marketing.contact)
}
