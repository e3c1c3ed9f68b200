package sink

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"funnel/internal/attribution"
	"funnel/internal/config"
	"funnel/internal/constants"
	"funnel/internal/logger"
	"funnel/internal/tracking"
	"funnel/pkg/circuitbreaker"
	"funnel/pkg/errors"
)

// MetaPixelSink delivers events server-side through the Meta Conversions
// API. Standard events follow the fixed taxonomy below; everything except
// pdf_download additionally goes out under a Custom_<kind> name for
// diagnostics. pdf_download is only ever sent as the custom "DownloadPDF".
type MetaPixelSink struct {
	cfg    config.MetaPixelConfig
	client *http.Client
	cb     *circuitbreaker.Wrapper
	logger logger.Logger
}

func NewMetaPixelSink(cfg config.MetaPixelConfig, client *http.Client, cb *circuitbreaker.Wrapper, log logger.Logger) *MetaPixelSink {
	if client == nil {
		client = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}
	return &MetaPixelSink{
		cfg:    cfg,
		client: client,
		cb:     cb,
		logger: log,
	}
}

// standardEventName maps an event kind to its Conversions API standard
// event. An empty name means the kind has no standard mapping.
func standardEventName(kind tracking.EventKind) string {
	switch kind {
	case tracking.EventFormSubmission:
		return "Lead"
	case tracking.EventCalendarBooking:
		return "CompleteRegistration"
	case tracking.EventBookCallClick:
		return "ScheduleCallClick"
	case tracking.EventEmailClick:
		return "ContactEmail"
	case tracking.EventPhoneClick:
		return "ContactPhone"
	default:
		return ""
	}
}

func (s *MetaPixelSink) TrackEvent(ctx context.Context, ev tracking.Enriched) error {
	params := s.buildParams(ev)

	var events []metaEvent
	if name := standardEventName(ev.Kind); name != "" {
		events = append(events, s.newEvent(name, ev, params))
	}

	if ev.Kind == tracking.EventPDFDownload {
		events = append(events, s.newEvent("DownloadPDF", ev, params))
	} else {
		customParams := map[string]any{}
		for k, v := range params {
			customParams[k] = v
		}
		customParams["custom_event_type"] = string(ev.Kind)
		if ev.PageURL != "" {
			customParams["page_url"] = ev.PageURL
		}
		customParams["timestamp"] = ev.Timestamp
		events = append(events, s.newEvent("Custom_"+string(ev.Kind), ev, customParams))
	}

	return s.send(ctx, events)
}

type metaEvent struct {
	EventName      string         `json:"event_name"`
	EventTime      int64          `json:"event_time"`
	EventID        string         `json:"event_id,omitempty"`
	ActionSource   string         `json:"action_source"`
	EventSourceURL string         `json:"event_source_url,omitempty"`
	UserData       metaUserData   `json:"user_data"`
	CustomData     map[string]any `json:"custom_data,omitempty"`
}

type metaUserData struct {
	ExternalID []string `json:"external_id,omitempty"`
	FBC        string   `json:"fbc,omitempty"`
}

func (s *MetaPixelSink) newEvent(name string, ev tracking.Enriched, params map[string]any) metaEvent {
	out := metaEvent{
		EventName:      name,
		EventTime:      eventUnixTime(ev.Timestamp),
		ActionSource:   "website",
		EventSourceURL: ev.PageURL,
		UserData: metaUserData{
			ExternalID: []string{hashIdentifier(ev.VisitorID)},
		},
		CustomData: params,
	}
	if ev.Attribution != nil && ev.Attribution.FBCLID != "" {
		out.UserData.FBC = ev.Attribution.FBCLID
	}
	return out
}

// buildParams assembles the custom_data for an event: the per-kind content
// fields plus whatever attribution is present.
func (s *MetaPixelSink) buildParams(ev tracking.Enriched) map[string]any {
	params := map[string]any{}
	put := func(key, value string) {
		if value != "" {
			params[key] = value
		}
	}

	switch ev.Kind {
	case tracking.EventFormSubmission:
		name := ev.FormType
		if name == "" {
			name = "Form Submission"
		}
		params["content_name"] = name
		params["content_category"] = "Lead Generation"
		put("lead_source", ev.LeadSource)

	case tracking.EventPDFDownload:
		name := ev.FileName
		if name == "" {
			name = "PDF Download"
		}
		params["content_name"] = name
		params["content_type"] = "free_resource"
		downloadType := ev.DownloadType
		if downloadType == "" {
			downloadType = "pdf"
		}
		params["download_type"] = downloadType
		put("lead_source", ev.LeadSource)

	case tracking.EventBookCallClick:
		params["content_name"] = "Book Call Button"
		params["content_category"] = "Calendar Intent"
		put("button_location", ev.ButtonLocation)

	case tracking.EventCalendarBooking:
		params["content_name"] = "Calendar Appointment"
		params["content_category"] = "Conversion"
		params["value"] = 100
		params["currency"] = "USD"

	case tracking.EventEmailClick:
		params["content_name"] = "Email Click"
		params["contact_method"] = "email"
		put("contact_location", ev.LeadSource)

	case tracking.EventPhoneClick:
		params["content_name"] = "Phone Click"
		params["contact_method"] = "phone"
		put("contact_location", ev.LeadSource)
	}

	for key, value := range attribution.ForAdPixel(ev.Attribution) {
		if key == "referrer" {
			continue
		}
		params[key] = value
	}
	if ev.Attribution != nil {
		put("ad_id", ev.Attribution.AdID)
		put("adset_id", ev.Attribution.AdsetID)
		put("campaign_id", ev.Attribution.CampaignID)
	}

	return params
}

func (s *MetaPixelSink) send(ctx context.Context, events []metaEvent) error {
	if s.cfg.AccessToken == "" {
		return errors.ErrMisconfigured.WithDetail("detail", "meta pixel access token not configured")
	}

	body, err := json.Marshal(map[string]any{"data": events})
	if err != nil {
		return fmt.Errorf("failed to marshal pixel events: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/events?access_token=%s",
		s.cfg.BaseURL, s.cfg.PixelID, url.QueryEscape(s.cfg.AccessToken))

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
			return nil, errors.NewUpstreamError("meta", resp.StatusCode, string(detail))
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

func eventUnixTime(timestamp string) int64 {
	if t, err := time.Parse(time.RFC3339, timestamp); err == nil {
		return t.Unix()
	}
	return time.Now().Unix()
}

func hashIdentifier(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
