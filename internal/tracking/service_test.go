package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel/internal/attribution"
	"funnel/internal/config"
	"funnel/internal/logger"
	"funnel/pkg/models"
)

type fakeAttributionSource struct {
	record *attribution.Record
	err    error
}

func (f *fakeAttributionSource) Get(context.Context, string) (*attribution.Record, error) {
	return f.record, f.err
}

type fakeEventSink struct {
	events []Enriched
	err    error
	panics bool
}

func (f *fakeEventSink) TrackEvent(_ context.Context, ev Enriched) error {
	if f.panics {
		panic("sink exploded")
	}
	f.events = append(f.events, ev)
	return f.err
}

type fakeCrmSink struct {
	events []Enriched
}

func (f *fakeCrmSink) RecordEvent(_ context.Context, ev Enriched) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeProducer struct {
	published []models.EventEnvelope
	err       error
}

func (f *fakeProducer) Publish(_ context.Context, _ string, msg models.EventEnvelope) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

type fakeDataLayer struct {
	entries []map[string]any
}

func (f *fakeDataLayer) Push(_ context.Context, _ string, entry map[string]any) error {
	f.entries = append(f.entries, entry)
	return nil
}

type trackerFixture struct {
	tracker   *Tracker
	attrib    *fakeAttributionSource
	adPixel   *fakeEventSink
	analytics *fakeEventSink
	crm       *fakeCrmSink
	producer  *fakeProducer
	dataLayer *fakeDataLayer
}

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()
	log, err := logger.New("error", "json")
	require.NoError(t, err)

	f := &trackerFixture{
		attrib: &fakeAttributionSource{
			record: &attribution.Record{
				Params:    attribution.Params{UTMSource: "facebook", UTMCampaign: "launch"},
				SessionID: "sess-1",
				Timestamp: "2026-01-02T03:04:05Z",
			},
		},
		adPixel:   &fakeEventSink{},
		analytics: &fakeEventSink{},
		crm:       &fakeCrmSink{},
		producer:  &fakeProducer{},
		dataLayer: &fakeDataLayer{},
	}

	f.tracker = NewTracker(
		f.attrib, f.adPixel, f.analytics, f.crm, f.producer, f.dataLayer,
		config.TrackingConfig{Source: "funnel-service", DataLayerCap: 200},
		"funnel_events", log,
	)
	return f
}

func TestTrackFansOutToAllSinks(t *testing.T) {
	f := newTrackerFixture(t)

	f.tracker.Track(context.Background(), "visitor-1", PageContext{URL: "https://example.com/", Title: "Home"},
		Event{Kind: EventFormSubmission, FormType: "Hero Form", LeadSource: LeadSourceHeroForm})

	require.Len(t, f.adPixel.events, 1)
	require.Len(t, f.analytics.events, 1)
	require.Len(t, f.crm.events, 1)

	got := f.adPixel.events[0]
	assert.Equal(t, "visitor-1", got.VisitorID)
	assert.Equal(t, "facebook", got.Attribution.UTMSource)
	assert.Equal(t, "https://example.com/", got.PageURL)
	assert.NotEmpty(t, got.Timestamp)
}

func TestTrackPublishesEnvelope(t *testing.T) {
	f := newTrackerFixture(t)

	f.tracker.Track(context.Background(), "visitor-1", PageContext{}, Event{Kind: EventPageView})

	require.Len(t, f.producer.published, 1)
	envelope := f.producer.published[0]
	assert.NotEmpty(t, envelope.ID)
	assert.Equal(t, "funnel-service", envelope.Source)
	assert.Equal(t, "visitor-1", envelope.Metadata.VisitorID)
	assert.Equal(t, "page_view", envelope.Metadata.EventKind)
	assert.Equal(t, "sess-1", envelope.Metadata.Attribution["session_id"])
	assert.Equal(t, "page_view", envelope.Payload["event_type"])
	assert.Equal(t, "facebook", envelope.Payload["utm_source"])
}

func TestTrackPushesDataLayerEntry(t *testing.T) {
	f := newTrackerFixture(t)

	f.tracker.Track(context.Background(), "visitor-1", PageContext{URL: "https://example.com/book"},
		Event{Kind: EventBookCallClick, ButtonLocation: "header"})

	require.Len(t, f.dataLayer.entries, 1)
	entry := f.dataLayer.entries[0]
	assert.Equal(t, "book_call_click", entry["event"])
	assert.Equal(t, "header", entry["button_location"])
	assert.Equal(t, "https://example.com/book", entry["page_url"])
}

func TestTrackDropsUnknownKind(t *testing.T) {
	f := newTrackerFixture(t)

	f.tracker.Track(context.Background(), "visitor-1", PageContext{}, Event{Kind: "made_up"})

	assert.Empty(t, f.adPixel.events)
	assert.Empty(t, f.producer.published)
	assert.Empty(t, f.dataLayer.entries)
}

func TestTrackSurvivesFailingSink(t *testing.T) {
	f := newTrackerFixture(t)
	f.adPixel.err = errors.New("pixel down")

	f.tracker.Track(context.Background(), "visitor-1", PageContext{}, Event{Kind: EventPageView})

	// The other legs still ran.
	require.Len(t, f.analytics.events, 1)
	require.Len(t, f.crm.events, 1)
	require.Len(t, f.producer.published, 1)
}

func TestTrackSurvivesPanickingSink(t *testing.T) {
	f := newTrackerFixture(t)
	f.analytics.panics = true

	f.tracker.Track(context.Background(), "visitor-1", PageContext{}, Event{Kind: EventPageView})

	require.Len(t, f.adPixel.events, 1)
	require.Len(t, f.crm.events, 1)
}

func TestTrackSurvivesBusFailure(t *testing.T) {
	f := newTrackerFixture(t)
	f.producer.err = errors.New("broker unreachable")

	f.tracker.Track(context.Background(), "visitor-1", PageContext{}, Event{Kind: EventPageView})

	require.Len(t, f.adPixel.events, 1)
	require.Len(t, f.dataLayer.entries, 1)
}

func TestTrackUnattributedOnLookupFailure(t *testing.T) {
	f := newTrackerFixture(t)
	f.attrib.err = errors.New("redis down")
	f.attrib.record = nil

	f.tracker.Track(context.Background(), "visitor-1", PageContext{}, Event{Kind: EventPageView})

	require.Len(t, f.adPixel.events, 1)
	assert.Nil(t, f.adPixel.events[0].Attribution)
}

func TestTypedWrappers(t *testing.T) {
	tests := []struct {
		name     string
		track    func(f *trackerFixture)
		wantKind EventKind
		check    func(t *testing.T, ev Enriched)
	}{
		{
			name: "form submission",
			track: func(f *trackerFixture) {
				f.tracker.TrackFormSubmission(context.Background(), "v", PageContext{}, "Hero Form", LeadSourceHeroForm, nil)
			},
			wantKind: EventFormSubmission,
			check: func(t *testing.T, ev Enriched) {
				assert.Equal(t, "Hero Form", ev.FormType)
				assert.Equal(t, LeadSourceHeroForm, ev.LeadSource)
			},
		},
		{
			name: "pdf download defaults type",
			track: func(f *trackerFixture) {
				f.tracker.TrackPDFDownload(context.Background(), "v", PageContext{}, "roadmap.pdf", LeadSourceThankYouDownload, "")
			},
			wantKind: EventPDFDownload,
			check: func(t *testing.T, ev Enriched) {
				assert.Equal(t, "roadmap.pdf", ev.FileName)
				assert.Equal(t, "mvp_roadmap", ev.DownloadType)
			},
		},
		{
			name: "book call click",
			track: func(f *trackerFixture) {
				f.tracker.TrackBookCallClick(context.Background(), "v", PageContext{}, "header")
			},
			wantKind: EventBookCallClick,
			check: func(t *testing.T, ev Enriched) {
				assert.Equal(t, "header", ev.ButtonLocation)
				assert.Equal(t, "header", ev.LeadSource)
			},
		},
		{
			name: "calendar booking",
			track: func(f *trackerFixture) {
				f.tracker.TrackCalendarBooking(context.Background(), "v", PageContext{}, "discovery_call", nil)
			},
			wantKind: EventCalendarBooking,
			check: func(t *testing.T, ev Enriched) {
				assert.Equal(t, "discovery_call", ev.CalendarType)
				assert.Equal(t, "calendar_booking", ev.LeadSource)
			},
		},
		{
			name: "phone contact click",
			track: func(f *trackerFixture) {
				f.tracker.TrackContactClick(context.Background(), "v", PageContext{}, "phone", "footer")
			},
			wantKind: EventPhoneClick,
			check: func(t *testing.T, ev Enriched) {
				assert.Equal(t, "phone", ev.ContactMethod)
			},
		},
		{
			name: "email contact click",
			track: func(f *trackerFixture) {
				f.tracker.TrackContactClick(context.Background(), "v", PageContext{}, "email", "footer")
			},
			wantKind: EventEmailClick,
			check:    func(t *testing.T, ev Enriched) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTrackerFixture(t)
			tt.track(f)
			require.Len(t, f.crm.events, 1)
			assert.Equal(t, tt.wantKind, f.crm.events[0].Kind)
			tt.check(t, f.crm.events[0])
		})
	}
}

func TestFlattenIncludesAttributionAndExtras(t *testing.T) {
	ev := Enriched{
		Event: Event{
			Kind:   EventFormSubmission,
			Extras: map[string]any{"plan": "starter"},
		},
		VisitorID: "visitor-1",
		Attribution: &attribution.Record{
			Params:    attribution.Params{UTMSource: "google", GCLID: "g-1", AdsetID: "as-1"},
			SessionID: "sess-9",
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	flat := ev.Flatten()
	assert.Equal(t, "form_submission", flat["event"])
	assert.Equal(t, "google", flat["utm_source"])
	assert.Equal(t, "g-1", flat["gclid"])
	assert.Equal(t, "as-1", flat["adset_id"])
	assert.Equal(t, "sess-9", flat["session_id"])
	assert.Equal(t, "starter", flat["plan"])
	assert.NotContains(t, flat, "utm_medium")
}
