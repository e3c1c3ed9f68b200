package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"funnel/internal/attribution"
	"funnel/internal/broker"
	"funnel/internal/config"
	"funnel/internal/logger"
	"funnel/pkg/errors"
	"funnel/pkg/logging"
	"funnel/pkg/metrics"
	"funnel/pkg/models"
)

// AttributionSource resolves the active attribution for a visitor.
type AttributionSource interface {
	Get(ctx context.Context, visitorID string) (*attribution.Record, error)
}

// DataLayerStore accumulates flattened events per visitor.
type DataLayerStore interface {
	Push(ctx context.Context, visitorID string, entry map[string]any) error
}

// Tracker is the event pipeline: enrich with attribution, fan out to the
// configured sinks, then best-effort publish to the bus and the data layer.
// Track never returns an error; a failing leg is logged and skipped so one
// broken platform never costs the others their event.
type Tracker struct {
	attrib    AttributionSource
	adPixel   AdPixelSink
	analytics AnalyticsSink
	crm       CrmSink
	producer  broker.Producer
	dataLayer DataLayerStore
	cfg       config.TrackingConfig
	topic     string
	logger    logger.Logger
	now       func() time.Time
}

func NewTracker(
	attrib AttributionSource,
	adPixel AdPixelSink,
	analytics AnalyticsSink,
	crm CrmSink,
	producer broker.Producer,
	dataLayer DataLayerStore,
	cfg config.TrackingConfig,
	topic string,
	log logger.Logger,
) *Tracker {
	return &Tracker{
		attrib:    attrib,
		adPixel:   adPixel,
		analytics: analytics,
		crm:       crm,
		producer:  producer,
		dataLayer: dataLayer,
		cfg:       cfg,
		topic:     topic,
		logger:    log,
		now:       time.Now,
	}
}

// PageContext is the page state reported alongside an event.
type PageContext struct {
	URL   string `json:"page_url"`
	Title string `json:"page_title"`
}

// Track runs the full pipeline for one event.
func (t *Tracker) Track(ctx context.Context, visitorID string, page PageContext, ev Event) {
	if !ev.Kind.IsValid() {
		t.logger.WarnwCtx(ctx, "Dropping event with unknown kind", "kind", string(ev.Kind))
		return
	}

	ctx = logging.WithEventKind(ctx, string(ev.Kind))
	metrics.EventsTrackedTotal.WithLabelValues(string(ev.Kind)).Inc()

	enriched := t.enrich(ctx, visitorID, page, ev)

	t.dispatch(ctx, "ad_pixel", func() error { return t.adPixel.TrackEvent(ctx, enriched) })
	t.dispatch(ctx, "analytics", func() error { return t.analytics.TrackEvent(ctx, enriched) })
	t.dispatch(ctx, "crm", func() error { return t.crm.RecordEvent(ctx, enriched) })

	t.publish(ctx, enriched)
	t.pushDataLayer(ctx, enriched)
}

// Config exposes the tracking settings the landing pages need to bootstrap
// their client-side snippets.
func (t *Tracker) Config() config.TrackingConfig {
	return t.cfg
}

// enrich builds the sink-facing copy of the event. A failing attribution
// lookup degrades to an unattributed event rather than losing it.
func (t *Tracker) enrich(ctx context.Context, visitorID string, page PageContext, ev Event) Enriched {
	record, err := t.attrib.Get(ctx, visitorID)
	if err != nil {
		t.logger.WarnwCtx(ctx, "Attribution lookup failed, tracking unattributed", "error", err)
		record = nil
	}

	return Enriched{
		Event:       ev,
		VisitorID:   visitorID,
		Attribution: record,
		PageURL:     page.URL,
		PageTitle:   page.Title,
		Timestamp:   t.now().UTC().Format(time.RFC3339),
	}
}

func (t *Tracker) dispatch(ctx context.Context, name string, fn func() error) {
	start := t.now()
	defer func() {
		if err := errors.RecoverPanic(recover()); err != nil {
			metrics.ObserveSinkDispatch(name, time.Since(start), "panic")
			t.logger.ErrorwCtx(ctx, "Sink panicked", "sink", name, "error", err)
		}
	}()

	if err := fn(); err != nil {
		metrics.ObserveSinkDispatch(name, time.Since(start), "error")
		t.logger.WarnwCtx(ctx, "Sink dispatch failed", "sink", name, "error", err)
		return
	}

	metrics.ObserveSinkDispatch(name, time.Since(start), "success")
}

func (t *Tracker) publish(ctx context.Context, ev Enriched) {
	envelope := models.EventEnvelope{
		ID:        uuid.NewString(),
		Source:    t.cfg.Source,
		Timestamp: t.now().UTC(),
		Payload:   ev.Flatten(),
		Metadata: models.Metadata{
			VisitorID: ev.VisitorID,
			EventKind: string(ev.Kind),
		},
	}
	// The full attribution fields are already flattened into the payload;
	// metadata carries only the capture identity.
	if ev.Attribution != nil {
		envelope.Metadata.Attribution = map[string]interface{}{
			"session_id":  ev.Attribution.SessionID,
			"captured_at": ev.Attribution.Timestamp,
		}
	}

	if err := t.producer.Publish(ctx, t.topic, envelope); err != nil {
		t.logger.WarnwCtx(ctx, "Event bus publish failed", "error", err)
	}
}

func (t *Tracker) pushDataLayer(ctx context.Context, ev Enriched) {
	if err := t.dataLayer.Push(ctx, ev.VisitorID, ev.Flatten()); err != nil {
		t.logger.WarnwCtx(ctx, "Data layer push failed", "error", err)
	}
}

// Typed wrappers mirroring how the landing pages report interactions.

func (t *Tracker) TrackFormSubmission(ctx context.Context, visitorID string, page PageContext, formType, leadSource string, extras map[string]any) {
	t.Track(ctx, visitorID, page, Event{
		Kind:       EventFormSubmission,
		FormType:   formType,
		LeadSource: leadSource,
		Extras:     extras,
	})
}

func (t *Tracker) TrackPDFDownload(ctx context.Context, visitorID string, page PageContext, fileName, leadSource, downloadType string) {
	if downloadType == "" {
		downloadType = "mvp_roadmap"
	}
	t.Track(ctx, visitorID, page, Event{
		Kind:         EventPDFDownload,
		FileName:     fileName,
		LeadSource:   leadSource,
		DownloadType: downloadType,
	})
}

func (t *Tracker) TrackBookCallClick(ctx context.Context, visitorID string, page PageContext, location string) {
	t.Track(ctx, visitorID, page, Event{
		Kind:           EventBookCallClick,
		LeadSource:     location,
		ButtonLocation: location,
	})
}

func (t *Tracker) TrackCalendarBooking(ctx context.Context, visitorID string, page PageContext, calendarType string, extras map[string]any) {
	t.Track(ctx, visitorID, page, Event{
		Kind:         EventCalendarBooking,
		CalendarType: calendarType,
		LeadSource:   "calendar_booking",
		Extras:       extras,
	})
}

func (t *Tracker) TrackContactClick(ctx context.Context, visitorID string, page PageContext, method, location string) {
	kind := EventEmailClick
	if method == "phone" {
		kind = EventPhoneClick
	}
	t.Track(ctx, visitorID, page, Event{
		Kind:          kind,
		ContactMethod: method,
		LeadSource:    location,
	})
}
