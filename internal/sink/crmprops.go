package sink

import (
	"context"

	"funnel/internal/attribution"
	"funnel/internal/tracking"
)

// EventPropertyStore is where the CRM projection of an event is recorded.
type EventPropertyStore interface {
	Store(ctx context.Context, visitorID string, kind tracking.EventKind, props map[string]string) error
}

// CrmPropertySink does no network I/O: it projects each event onto flat CRM
// contact properties and caches them for the visitor's eventual lead
// submission.
type CrmPropertySink struct {
	store EventPropertyStore
}

func NewCrmPropertySink(store EventPropertyStore) *CrmPropertySink {
	return &CrmPropertySink{store: store}
}

func (s *CrmPropertySink) RecordEvent(ctx context.Context, ev tracking.Enriched) error {
	return s.store.Store(ctx, ev.VisitorID, ev.Kind, CrmProperties(ev))
}

// CrmProperties builds the flat property map for one enriched event:
// attribution in CRM naming, the lead source detail, and per-kind flag plus
// last-seen timestamp pairs.
func CrmProperties(ev tracking.Enriched) map[string]string {
	props := attribution.ForCRM(ev.Attribution)

	if ev.LeadSource != "" {
		props["lead_source_detail"] = ev.LeadSource
	}

	switch ev.Kind {
	case tracking.EventPDFDownload:
		props["pdf_downloaded"] = "true"
		props["last_pdf_download"] = ev.Timestamp
	case tracking.EventCalendarBooking:
		props["calendar_booking_attempted"] = "true"
		props["last_booking_attempt"] = ev.Timestamp
	case tracking.EventBookCallClick:
		props["book_call_clicked"] = "true"
		props["last_book_call_click"] = ev.Timestamp
	}

	return props
}
