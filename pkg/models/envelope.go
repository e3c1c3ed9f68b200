package models

import "time"

// EventEnvelope is the wire shape published to the funnel event bus for
// passive consumers (warehouse loaders, tag-manager bridges). Payload holds
// the flattened enriched event; Metadata carries the attribution snapshot it
// was enriched with.
type EventEnvelope struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
	Metadata  Metadata               `json:"metadata"`
}

type Metadata struct {
	VisitorID   string                 `json:"visitor_id,omitempty"`
	EventKind   string                 `json:"event_kind,omitempty"`
	Attribution map[string]interface{} `json:"attribution,omitempty"`
}
