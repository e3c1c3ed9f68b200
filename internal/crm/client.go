// Package crm wraps the HubSpot forms submission API. Leads are created by
// replaying the landing-page form into the portal's hosted form, so HubSpot
// applies the same processing as a native embed.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"funnel/internal/config"
	"funnel/internal/constants"
	"funnel/internal/logger"
	"funnel/pkg/circuitbreaker"
	"funnel/pkg/errors"
)

// Form types the landing pages use. FormTypeSecondary maps to the second
// configured form id.
const (
	FormTypePrimary   = "Form 1"
	FormTypeSecondary = "Form 2"
)

type Field struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// SubmissionContext mirrors the context block of a form submission: the page
// it happened on and, when known, the HubSpot tracking cookie so the
// submission stitches to the visitor's analytics history.
type SubmissionContext struct {
	PageURI  string `json:"pageUri,omitempty"`
	PageName string `json:"pageName,omitempty"`
	HUTK     string `json:"hutk,omitempty"`
}

type submissionPayload struct {
	Fields  []Field           `json:"fields"`
	Context SubmissionContext `json:"context"`
}

type Client struct {
	cfg    config.HubSpotConfig
	client *http.Client
	cb     *circuitbreaker.Wrapper
	logger logger.Logger
}

func NewClient(cfg config.HubSpotConfig, httpClient *http.Client, cb *circuitbreaker.Wrapper, log logger.Logger) *Client {
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

// FormIDFor resolves a landing-page form type to the configured form id.
// Unknown types fall back to the primary form.
func (c *Client) FormIDFor(formType string) string {
	if formType == FormTypeSecondary {
		return c.cfg.Form2ID
	}
	return c.cfg.Form1ID
}

// SubmitForm posts one form submission. A transport failure maps to an
// upstream network error; a non-2xx answer passes the provider's status and
// body through.
func (c *Client) SubmitForm(ctx context.Context, formID string, fields []Field, subCtx SubmissionContext) error {
	if c.cfg.PortalID == "" || formID == "" {
		return errors.ErrMisconfigured.WithDetail("detail", "hubspot portal or form id not configured")
	}

	body, err := json.Marshal(submissionPayload{Fields: fields, Context: subCtx})
	if err != nil {
		return fmt.Errorf("failed to marshal form submission: %w", err)
	}

	endpoint := fmt.Sprintf("%s/submissions/v3/integration/submit/%s/%s",
		c.cfg.BaseURL, c.cfg.PortalID, formID)

	call := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, errors.ErrUpstreamNetwork.WithCause(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, errors.NewUpstreamError("hubspot", resp.StatusCode, string(detail))
		}
		return nil, nil
	}

	if c.cb != nil {
		_, err = c.cb.ExecuteWithContext(ctx, call)
	} else {
		_, err = call()
	}
	if err != nil {
		return err
	}

	c.logger.InfowCtx(ctx, "HubSpot form submission accepted", "form_id", formID)
	return nil
}
