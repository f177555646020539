package model

import "time"

type MessageKind string

const (
	RegisterCallsiteKind MessageKind = "register_callsite"
	CreateSpanKind       MessageKind = "create_span"
	EnterSpanKind        MessageKind = "enter_span"
	ExitSpanKind         MessageKind = "exit_span"
	DestroySpanKind      MessageKind = "destroy_span"
	RecordFollowsKind    MessageKind = "record_follows"
	DataEventKind        MessageKind = "data_event"
)

var MessageKinds = []MessageKind{
	RegisterCallsiteKind,
	CreateSpanKind,
	EnterSpanKind,
	ExitSpanKind,
	DestroySpanKind,
	RecordFollowsKind,
	DataEventKind,
}

// Message is one decoded instrumentation event stamped with the time it was logged.
type Message struct {
	Time time.Time
	Body MessageBody
}

// MessageBody is implemented only by the body types in this package.
type MessageBody interface {
	Kind() MessageKind
}

type RegisterCallsite struct {
	Callsite Callsite
}

type CreateSpan struct {
	Span Span
}

type EnterSpan struct {
	Id SpanId
}

type ExitSpan struct {
	Id SpanId
}

type DestroySpan struct {
	Id SpanId
}

type RecordFollows struct {
	Id      SpanId
	Follows SpanId
}

type RecordDataEvent struct {
	Event DataEvent
}

func (RegisterCallsite) Kind() MessageKind { return RegisterCallsiteKind }
func (CreateSpan) Kind() MessageKind       { return CreateSpanKind }
func (EnterSpan) Kind() MessageKind        { return EnterSpanKind }
func (ExitSpan) Kind() MessageKind         { return ExitSpanKind }
func (DestroySpan) Kind() MessageKind      { return DestroySpanKind }
func (RecordFollows) Kind() MessageKind    { return RecordFollowsKind }
func (RecordDataEvent) Kind() MessageKind  { return DataEventKind }

func SpanIdPtr(id SpanId) *SpanId {
	return &id
}
