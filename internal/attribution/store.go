package attribution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"funnel/internal/config"
	"funnel/internal/constants"
	"funnel/internal/logger"
	"funnel/pkg/metrics"
)

// Store keeps per-visitor attribution in two tiers: a long-lived record
// bounded by the attribution window, and a session-scoped copy with a rolling
// TTL. Reads prefer the long-lived record and fall back to the session copy.
type Store struct {
	repo   Repository
	cfg    config.AttributionConfig
	logger logger.Logger
	now    func() time.Time
}

func NewStore(repo Repository, cfg config.AttributionConfig, log logger.Logger) *Store {
	return &Store{
		repo:   repo,
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}
}

// Capture records a fresh attribution snapshot when params carry at least one
// recognized value. With no params the existing attribution is returned
// untouched, so navigating without campaign parameters never clobbers an
// earlier capture.
func (s *Store) Capture(ctx context.Context, visitorID string, params Params, page PageContext) (*Record, error) {
	if params.IsEmpty() {
		existing, err := s.Get(ctx, visitorID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			metrics.AttributionCapturesTotal.WithLabelValues("existing").Inc()
		} else {
			metrics.AttributionCapturesTotal.WithLabelValues("none").Inc()
		}
		return existing, nil
	}

	referrer := page.Referrer
	if referrer == "" {
		referrer = constants.ReferrerDirect
	}

	record := Record{
		Params:      params,
		Referrer:    referrer,
		LandingPage: page.LandingPage,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
		SessionID:   uuid.NewString(),
	}

	window := time.Duration(s.cfg.WindowDays) * 24 * time.Hour
	stored := storedRecord{
		Attribution: record,
		Expires:     s.now().Add(window).UnixMilli(),
	}

	body, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attribution record: %w", err)
	}

	if err := s.repo.Set(ctx, constants.KeyPrefixAttribution+visitorID, body, window); err != nil {
		return nil, fmt.Errorf("failed to store attribution: %w", err)
	}

	sessionBody, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session attribution: %w", err)
	}

	if err := s.repo.Set(ctx, constants.KeyPrefixSession+visitorID, sessionBody, s.cfg.SessionTTL); err != nil {
		return nil, fmt.Errorf("failed to store session attribution: %w", err)
	}

	metrics.AttributionCapturesTotal.WithLabelValues("captured").Inc()
	s.logger.InfowCtx(ctx, "Attribution captured",
		"utm_source", record.UTMSource,
		"utm_campaign", record.UTMCampaign,
		"referrer", record.Referrer,
	)

	return &record, nil
}

// Get resolves the active attribution for a visitor. An expired long-lived
// record is deleted lazily on read before falling back to the session copy.
// A nil record without error means no attribution is known.
func (s *Store) Get(ctx context.Context, visitorID string) (*Record, error) {
	body, err := s.repo.Get(ctx, constants.KeyPrefixAttribution+visitorID)
	if err != nil {
		return nil, err
	}

	if body != nil {
		var stored storedRecord
		if err := json.Unmarshal(body, &stored); err != nil {
			s.logger.WarnwCtx(ctx, "Discarding unreadable attribution record", "error", err)
			_ = s.repo.Delete(ctx, constants.KeyPrefixAttribution+visitorID)
		} else if stored.expired(s.now()) {
			_ = s.repo.Delete(ctx, constants.KeyPrefixAttribution+visitorID)
		} else {
			metrics.AttributionReadsTotal.WithLabelValues("persistent").Inc()
			return &stored.Attribution, nil
		}
	}

	sessionBody, err := s.repo.Get(ctx, constants.KeyPrefixSession+visitorID)
	if err != nil {
		return nil, err
	}
	if sessionBody == nil {
		metrics.AttributionReadsTotal.WithLabelValues("none").Inc()
		return nil, nil
	}

	var record Record
	if err := json.Unmarshal(sessionBody, &record); err != nil {
		s.logger.WarnwCtx(ctx, "Discarding unreadable session attribution", "error", err)
		_ = s.repo.Delete(ctx, constants.KeyPrefixSession+visitorID)
		metrics.AttributionReadsTotal.WithLabelValues("none").Inc()
		return nil, nil
	}

	// Rolling session: reading extends the session lifetime.
	_ = s.repo.Expire(ctx, constants.KeyPrefixSession+visitorID, s.cfg.SessionTTL)

	metrics.AttributionReadsTotal.WithLabelValues("session").Inc()
	return &record, nil
}

// Clear drops both attribution tiers for a visitor.
func (s *Store) Clear(ctx context.Context, visitorID string) error {
	return s.repo.Delete(ctx,
		constants.KeyPrefixAttribution+visitorID,
		constants.KeyPrefixSession+visitorID,
	)
}
