package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel/internal/attribution"
	"funnel/internal/config"
	"funnel/internal/logger"
	"funnel/internal/tracking"
	"funnel/pkg/errors"
)

type capturedBatch struct {
	Data []struct {
		EventName  string         `json:"event_name"`
		EventTime  int64          `json:"event_time"`
		UserData   map[string]any `json:"user_data"`
		CustomData map[string]any `json:"custom_data"`
	} `json:"data"`
}

func newMetaTestSink(t *testing.T, handler http.HandlerFunc) (*MetaPixelSink, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log, err := logger.New("error", "json")
	require.NoError(t, err)

	sink := NewMetaPixelSink(config.MetaPixelConfig{
		BaseURL:     server.URL,
		PixelID:     "pixel-1",
		AccessToken: "token",
	}, server.Client(), nil, log)

	return sink, server
}

func attributedEvent(kind tracking.EventKind) tracking.Enriched {
	return tracking.Enriched{
		Event:     tracking.Event{Kind: kind, LeadSource: "hero_form", FormType: "Hero Form", FileName: "roadmap.pdf"},
		VisitorID: "visitor-1",
		Attribution: &attribution.Record{
			Params: attribution.Params{
				UTMSource:   "facebook",
				UTMCampaign: "launch",
				FBCLID:      "fb-1",
				AdID:        "ad-9",
			},
			Referrer: "https://facebook.com",
		},
		PageURL:   "https://example.com/",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func eventNames(batch capturedBatch) []string {
	names := make([]string, 0, len(batch.Data))
	for _, ev := range batch.Data {
		names = append(names, ev.EventName)
	}
	return names
}

func TestMetaPixelStandardAndCustomEvents(t *testing.T) {
	var batch capturedBatch
	sink, _ := newMetaTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.RawQuery, "access_token=token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		w.WriteHeader(http.StatusOK)
	})

	err := sink.TrackEvent(context.Background(), attributedEvent(tracking.EventFormSubmission))
	require.NoError(t, err)

	assert.Equal(t, []string{"Lead", "Custom_form_submission"}, eventNames(batch))

	lead := batch.Data[0]
	assert.Equal(t, "Hero Form", lead.CustomData["content_name"])
	assert.Equal(t, "Lead Generation", lead.CustomData["content_category"])
	assert.Equal(t, "facebook", lead.CustomData["utm_source"])
	assert.Equal(t, "fb-1", lead.CustomData["fbclid"])
	assert.Equal(t, "ad-9", lead.CustomData["ad_id"])
	assert.NotContains(t, lead.CustomData, "referrer")

	custom := batch.Data[1]
	assert.Equal(t, "form_submission", custom.CustomData["custom_event_type"])
	assert.Equal(t, "https://example.com/", custom.CustomData["page_url"])
}

func TestMetaPixelPDFDownloadOnlyCustom(t *testing.T) {
	var batch capturedBatch
	sink, _ := newMetaTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		w.WriteHeader(http.StatusOK)
	})

	err := sink.TrackEvent(context.Background(), attributedEvent(tracking.EventPDFDownload))
	require.NoError(t, err)

	// pdf_download never maps to a standard event and never gets a
	// Custom_<kind> duplicate either.
	assert.Equal(t, []string{"DownloadPDF"}, eventNames(batch))
	assert.Equal(t, "roadmap.pdf", batch.Data[0].CustomData["content_name"])
	assert.Equal(t, "free_resource", batch.Data[0].CustomData["content_type"])
}

func TestMetaPixelUnmappedKindOnlyCustom(t *testing.T) {
	var batch capturedBatch
	sink, _ := newMetaTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		w.WriteHeader(http.StatusOK)
	})

	err := sink.TrackEvent(context.Background(), attributedEvent(tracking.EventPageView))
	require.NoError(t, err)

	assert.Equal(t, []string{"Custom_page_view"}, eventNames(batch))
}

func TestMetaPixelTaxonomy(t *testing.T) {
	tests := []struct {
		kind tracking.EventKind
		want string
	}{
		{tracking.EventFormSubmission, "Lead"},
		{tracking.EventCalendarBooking, "CompleteRegistration"},
		{tracking.EventBookCallClick, "ScheduleCallClick"},
		{tracking.EventEmailClick, "ContactEmail"},
		{tracking.EventPhoneClick, "ContactPhone"},
		{tracking.EventPDFDownload, ""},
		{tracking.EventPageView, ""},
		{tracking.EventSocialClick, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, standardEventName(tt.kind))
		})
	}
}

func TestMetaPixelHashesVisitorID(t *testing.T) {
	var batch capturedBatch
	sink, _ := newMetaTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, sink.TrackEvent(context.Background(), attributedEvent(tracking.EventPageView)))

	external, ok := batch.Data[0].UserData["external_id"].([]any)
	require.True(t, ok)
	require.Len(t, external, 1)
	assert.NotEqual(t, "visitor-1", external[0])
	assert.Len(t, external[0], 64)
}

func TestMetaPixelUpstreamRejection(t *testing.T) {
	sink, _ := newMetaTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid token"}}`))
	})

	err := sink.TrackEvent(context.Background(), attributedEvent(tracking.EventPageView))
	require.Error(t, err)

	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UPSTREAM_REJECTED", appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Details["detail"], "invalid token")
}

func TestMetaPixelMissingToken(t *testing.T) {
	log, err := logger.New("error", "json")
	require.NoError(t, err)

	sink := NewMetaPixelSink(config.MetaPixelConfig{
		BaseURL: "http://unused.invalid",
		PixelID: "pixel-1",
	}, nil, nil, log)

	trackErr := sink.TrackEvent(context.Background(), attributedEvent(tracking.EventPageView))
	require.Error(t, trackErr)

	var appErr *errors.Error
	require.ErrorAs(t, trackErr, &appErr)
	assert.Equal(t, "MISCONFIGURED", appErr.Code)
}
