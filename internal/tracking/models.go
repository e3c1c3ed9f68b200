package tracking

import (
	"context"
	"fmt"

	"funnel/internal/attribution"
)

// EventKind is the closed set of funnel interactions the service tracks.
type EventKind string

const (
	EventPageView        EventKind = "page_view"
	EventFormSubmission  EventKind = "form_submission"
	EventPDFDownload     EventKind = "pdf_download"
	EventBookCallClick   EventKind = "book_call_click"
	EventCalendarBooking EventKind = "calendar_booking"
	EventEmailClick      EventKind = "email_click"
	EventPhoneClick      EventKind = "phone_click"
	EventSocialClick     EventKind = "social_click"
)

var validKinds = map[EventKind]struct{}{
	EventPageView:        {},
	EventFormSubmission:  {},
	EventPDFDownload:     {},
	EventBookCallClick:   {},
	EventCalendarBooking: {},
	EventEmailClick:      {},
	EventPhoneClick:      {},
	EventSocialClick:     {},
}

func (k EventKind) IsValid() bool {
	_, ok := validKinds[k]
	return ok
}

func ParseEventKind(s string) (EventKind, error) {
	kind := EventKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("unknown event kind: %q", s)
	}
	return kind, nil
}

// Lead source vocabulary used by the landing pages.
const (
	LeadSourceHeroForm          = "hero_form"
	LeadSourceCTAForm           = "cta_form"
	LeadSourceThankYouDownload  = "thankyou_download"
	LeadSourceChecklistDownload = "checklist_download"
)

// Event is a raw interaction as reported by a page. Only Kind is mandatory;
// the remaining fields apply per kind.
type Event struct {
	Kind           EventKind      `json:"event_type"`
	LeadSource     string         `json:"lead_source,omitempty"`
	FormType       string         `json:"form_type,omitempty"`
	FileName       string         `json:"file_name,omitempty"`
	DownloadType   string         `json:"download_type,omitempty"`
	CalendarType   string         `json:"calendar_type,omitempty"`
	ContactMethod  string         `json:"contact_method,omitempty"`
	ButtonLocation string         `json:"button_location,omitempty"`
	Extras         map[string]any `json:"extras,omitempty"`
}

// Enriched is the event after attribution and page context have been merged
// in. This is the form every sink receives.
type Enriched struct {
	Event
	VisitorID   string              `json:"visitor_id"`
	Attribution *attribution.Record `json:"attribution,omitempty"`
	PageURL     string              `json:"page_url,omitempty"`
	PageTitle   string              `json:"page_title,omitempty"`
	Timestamp   string              `json:"timestamp"`
}

// Flatten renders the enriched event as a single-level map, the shape pushed
// onto the data-layer accumulator and the event bus payload.
func (e Enriched) Flatten() map[string]any {
	out := map[string]any{
		"event":      string(e.Kind),
		"event_type": string(e.Kind),
		"timestamp":  e.Timestamp,
	}

	put := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}

	put("lead_source", e.LeadSource)
	put("form_type", e.FormType)
	put("file_name", e.FileName)
	put("download_type", e.DownloadType)
	put("calendar_type", e.CalendarType)
	put("contact_method", e.ContactMethod)
	put("button_location", e.ButtonLocation)
	put("page_url", e.PageURL)
	put("page_title", e.PageTitle)

	if e.Attribution != nil {
		put("utm_source", e.Attribution.UTMSource)
		put("utm_medium", e.Attribution.UTMMedium)
		put("utm_campaign", e.Attribution.UTMCampaign)
		put("utm_content", e.Attribution.UTMContent)
		put("utm_term", e.Attribution.UTMTerm)
		put("utm_id", e.Attribution.UTMID)
		put("gclid", e.Attribution.GCLID)
		put("fbclid", e.Attribution.FBCLID)
		put("ad_id", e.Attribution.AdID)
		put("adset_id", e.Attribution.AdsetID)
		put("campaign_id", e.Attribution.CampaignID)
		put("referrer", e.Attribution.Referrer)
		put("landing_page", e.Attribution.LandingPage)
		put("session_id", e.Attribution.SessionID)
	}

	for key, value := range e.Extras {
		out[key] = value
	}

	return out
}

// AdPixelSink forwards events to an advertising pixel backend.
type AdPixelSink interface {
	TrackEvent(ctx context.Context, ev Enriched) error
}

// AnalyticsSink forwards events to a web analytics backend.
type AnalyticsSink interface {
	TrackEvent(ctx context.Context, ev Enriched) error
}

// CrmSink records the CRM projection of an event for later lead submissions.
type CrmSink interface {
	RecordEvent(ctx context.Context, ev Enriched) error
}
