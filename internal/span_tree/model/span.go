package model

import (
	"fmt"
	"time"
)

type Span struct {
	Id           SpanId     `json:"id"`
	ParentSpanId *SpanId    `json:"parent_span_id,omitempty"`
	CallsiteId   CallsiteId `json:"callsite_id"`
}

// TimeInterval is one open/close window. Either end may be missing when only half
// of the window was observed.
type TimeInterval struct {
	Entered *time.Time `json:"entered,omitempty"`
	Exited  *time.Time `json:"exited,omitempty"`
}

func (ti TimeInterval) IsOpen() bool {
	return ti.Exited == nil
}

func (ti TimeInterval) String() string {
	return fmt.Sprintf("[%s - %s]", formatOptionalTime(ti.Entered), formatOptionalTime(ti.Exited))
}

// SpanNode is the runtime record of a span: created once, then entered and exited over
// many intervals until destroyed.
type SpanNode struct {
	Span      Span             `json:"span"`
	Follows   *SpanId          `json:"follows,omitempty"`
	Lifetime  TimeInterval     `json:"lifetime"`
	Intervals []TimeInterval   `json:"intervals"`
	Children  []SpanId         `json:"children"`
	Events    []TimedDataEvent `json:"events"`
}

const TimeFormat = "15:04:05.000000"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "?"
	}
	return FormatTime(*t)
}
