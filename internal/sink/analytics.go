package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"funnel/internal/attribution"
	"funnel/internal/config"
	"funnel/internal/constants"
	"funnel/internal/logger"
	"funnel/internal/tracking"
	"funnel/pkg/circuitbreaker"
	"funnel/pkg/errors"
)

// AnalyticsSink delivers events through the GA4 Measurement Protocol. The
// visitor ID doubles as the protocol client_id.
type AnalyticsSink struct {
	cfg    config.GoogleAnalyticsConfig
	client *http.Client
	cb     *circuitbreaker.Wrapper
	logger logger.Logger
}

func NewAnalyticsSink(cfg config.GoogleAnalyticsConfig, client *http.Client, cb *circuitbreaker.Wrapper, log logger.Logger) *AnalyticsSink {
	if client == nil {
		client = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}
	return &AnalyticsSink{
		cfg:    cfg,
		client: client,
		cb:     cb,
		logger: log,
	}
}

// analyticsEventName maps an event kind to a GA4 event name plus its base
// parameters.
func analyticsEventName(ev tracking.Enriched) (string, map[string]any) {
	params := map[string]any{
		"event_category": "User Interaction",
		"event_label":    string(ev.Kind),
	}

	switch ev.Kind {
	case tracking.EventFormSubmission:
		params["event_category"] = "Form"
		label := ev.FormType
		if label == "" {
			label = "Form Submission"
		}
		params["event_label"] = label
		if ev.LeadSource != "" {
			params["lead_source"] = ev.LeadSource
		}
		return "generate_lead", params

	case tracking.EventPDFDownload:
		params["event_category"] = "Download"
		if ev.FileName != "" {
			params["file_name"] = ev.FileName
		}
		return "file_download", params

	case tracking.EventBookCallClick:
		params["event_category"] = "CTA"
		params["event_label"] = "Book Call Button"
		return "click", params

	case tracking.EventCalendarBooking:
		params["event_category"] = "Calendar"
		params["event_label"] = "Appointment Booked"
		params["value"] = 1
		return "conversion", params

	case tracking.EventEmailClick, tracking.EventPhoneClick:
		params["event_category"] = "Contact"
		if ev.ContactMethod != "" {
			params["event_label"] = ev.ContactMethod
		}
		return "click", params

	default:
		return "custom_event", params
	}
}

func (s *AnalyticsSink) TrackEvent(ctx context.Context, ev tracking.Enriched) error {
	if s.cfg.APISecret == "" {
		return errors.ErrMisconfigured.WithDetail("detail", "analytics api secret not configured")
	}

	name, params := analyticsEventName(ev)

	for key, value := range attribution.ForAnalytics(ev.Attribution) {
		if key == "referrer" {
			continue
		}
		params[key] = value
	}
	if ev.PageURL != "" {
		params["page_location"] = ev.PageURL
	}
	if ev.PageTitle != "" {
		params["page_title"] = ev.PageTitle
	}

	payload := map[string]any{
		"client_id": ev.VisitorID,
		"events": []map[string]any{
			{"name": name, "params": params},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/mp/collect?measurement_id=%s&api_secret=%s",
		s.cfg.BaseURL, url.QueryEscape(s.cfg.MeasurementID), url.QueryEscape(s.cfg.APISecret))

	call := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, errors.ErrUpstreamNetwork.WithCause(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, errors.NewUpstreamError("analytics", resp.StatusCode, string(detail))
		}
		return nil, nil
	}

	if s.cb != nil {
		_, err = s.cb.ExecuteWithContext(ctx, call)
	} else {
		_, err = call()
	}
	return err
}
