package model

import (
	"fmt"
	"time"
)

type AnomalyKind string

const (
	// ReusedIdentifier: a CreateSpan reused an id that was already present.
	ReusedIdentifier AnomalyKind = "reused_identifier"
	// UnknownReference: a message referenced a span id that was never created.
	UnknownReference AnomalyKind = "unknown_reference"
	// InconsistentInterval: exit without open interval, double destroy or a second follows link.
	InconsistentInterval AnomalyKind = "inconsistent_interval"
)

// Diagnostic records a non-fatal anomaly found while ingesting a message.
type Diagnostic struct {
	Kind        AnomalyKind `json:"kind"`
	MessageKind MessageKind `json:"message_kind"`
	Time        time.Time   `json:"time"`
	SpanId      SpanId      `json:"span_id"`
	Message     string      `json:"message"`
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s on %s for span %s: %s", d.Kind, d.MessageKind, d.SpanId, d.Message)
}
