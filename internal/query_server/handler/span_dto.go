package handler

import "time"

// SpanDTO is the detail view of a single span
// @swagger:model SpanDTO
type SpanDTO struct {
	// The decimal span id
	Id string `json:"id"`
	// The callsite name, or the span id when the callsite was never registered
	Name            string `json:"name"`
	MissingCallsite bool   `json:"missing_callsite"`
	Level           string `json:"level,omitempty"`
	Location        string `json:"location,omitempty"`
	// The parent chain, root first, or "(root)"
	Ancestry string `json:"ancestry"`
	// The name of the span this one follows from, if any
	Follows   string     `json:"follows,omitempty"`
	Lifetime  string     `json:"lifetime"`
	Intervals []string   `json:"intervals"`
	Children  []string   `json:"children"`
	Events    []EventDTO `json:"events"`
}

// EventDTO is a data event attached to a span or recorded outside of any span
// @swagger:model EventDTO
type EventDTO struct {
	Time     time.Time         `json:"time"`
	Callsite string            `json:"callsite"`
	Parent   string            `json:"parent,omitempty"`
	Fields   map[string]string `json:"fields"`
}

// AncestryDTO is the structural ancestry of a span
// @swagger:model AncestryDTO
type AncestryDTO struct {
	Id       string `json:"id"`
	Ancestry string `json:"ancestry"`
}

// SpansResponseDTO lists span summaries
// @swagger:model SpansResponseDTO
type SpansResponseDTO struct {
	Spans []SpanDTO `json:"spans"`
}

// EventsResponseDTO lists data events
// @swagger:model EventsResponseDTO
type EventsResponseDTO struct {
	Events []EventDTO `json:"events"`
}

// DiagnosticDTO is one anomaly found while ingesting
// @swagger:model DiagnosticDTO
type DiagnosticDTO struct {
	Kind        string    `json:"kind"`
	MessageKind string    `json:"message_kind"`
	Time        time.Time `json:"time"`
	SpanId      string    `json:"span_id"`
	Message     string    `json:"message"`
}

// DiagnosticsResponseDTO lists anomalies in the order they were raised
// @swagger:model DiagnosticsResponseDTO
type DiagnosticsResponseDTO struct {
	Diagnostics []DiagnosticDTO `json:"diagnostics"`
}
