// Package brevo wraps the Brevo (ex Sendinblue) contacts, events and
// workflow APIs used by the funnel's marketing automation.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"funnel/internal/config"
	"funnel/internal/constants"
	"funnel/internal/logger"
	"funnel/pkg/circuitbreaker"
	"funnel/pkg/errors"
)

// Contact is an upsert request. Attributes use Brevo's uppercase naming;
// UpdateEnabled makes the call idempotent for existing contacts.
type Contact struct {
	Email         string         `json:"email"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	UpdateEnabled bool           `json:"updateEnabled"`
	ListIDs       []int          `json:"listIds,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
}

// Event is a row for the events API, keyed by contact email.
type Event struct {
	Name              string         `json:"event_name"`
	Date              string         `json:"event_date"`
	Identifiers       identifiers    `json:"identifiers"`
	ContactProperties map[string]any `json:"contact_properties,omitempty"`
	EventProperties   map[string]any `json:"event_properties,omitempty"`
}

type identifiers struct {
	EmailID string `json:"email_id"`
}

func NewEvent(name, email string, contactProps, eventProps map[string]any) Event {
	return Event{
		Name:              name,
		Date:              time.Now().UTC().Format(time.RFC3339),
		Identifiers:       identifiers{EmailID: email},
		ContactProperties: contactProps,
		EventProperties:   eventProps,
	}
}

type Client struct {
	cfg    config.BrevoConfig
	client *http.Client
	cb     *circuitbreaker.Wrapper
	logger logger.Logger
}

func NewClient(cfg config.BrevoConfig, httpClient *http.Client, cb *circuitbreaker.Wrapper, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}
	return &Client{
		cfg:    cfg,
		client: httpClient,
		cb:     cb,
		logger: log,
	}
}

func (c *Client) DefaultListID() int {
	return c.cfg.DefaultListID
}

// UpsertContact creates or updates a contact. Brevo answers 201 on create
// and 204 on update; both count as success.
func (c *Client) UpsertContact(ctx context.Context, contact Contact) error {
	return c.call(ctx, http.MethodPost, "/v3/contacts", contact, nil)
}

type contactInfo struct {
	ID int64 `json:"id"`
}

// LookupContactID resolves a contact's numeric id by email.
func (c *Client) LookupContactID(ctx context.Context, email string) (int64, error) {
	var info contactInfo
	path := "/v3/contacts/" + url.PathEscape(email)
	if err := c.call(ctx, http.MethodGet, path, nil, &info); err != nil {
		return 0, err
	}
	return info.ID, nil
}

// AddToWorkflow enrolls a contact in an automation workflow.
func (c *Client) AddToWorkflow(ctx context.Context, contactID int64, workflowID string) error {
	path := fmt.Sprintf("/v3/contacts/%d/workflows/%s", contactID, url.PathEscape(workflowID))
	return c.call(ctx, http.MethodPost, path, nil, nil)
}

// TrackEvent logs a contact event through the events API.
func (c *Client) TrackEvent(ctx context.Context, event Event) error {
	return c.call(ctx, http.MethodPost, "/v3/events", event, nil)
}

func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	if c.cfg.APIKey == "" {
		return errors.ErrMisconfigured.WithDetail("detail", "brevo api key not configured")
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal brevo payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	doCall := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("api-key", c.cfg.APIKey)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, errors.ErrUpstreamNetwork.WithCause(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, errors.NewUpstreamError("brevo", resp.StatusCode, string(detail))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("failed to decode brevo response: %w", err)
			}
		}
		return nil, nil
	}

	var err error
	if c.cb != nil {
		_, err = c.cb.ExecuteWithContext(ctx, doCall)
	} else {
		_, err = doCall()
	}
	return err
}
