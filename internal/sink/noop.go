package sink

import (
	"context"

	"funnel/internal/tracking"
)

// Noop sinks stand in for platforms that are not configured, so the tracker
// pipeline never has to nil-check its fanout targets.

type NoopAdPixelSink struct{}

func (NoopAdPixelSink) TrackEvent(ctx context.Context, ev tracking.Enriched) error { return nil }

type NoopAnalyticsSink struct{}

func (NoopAnalyticsSink) TrackEvent(ctx context.Context, ev tracking.Enriched) error { return nil }

type NoopCrmSink struct{}

func (NoopCrmSink) RecordEvent(ctx context.Context, ev tracking.Enriched) error { return nil }
