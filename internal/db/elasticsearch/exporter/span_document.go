package exporter

import (
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"github.com/Avi18971911/SpanTree/internal/span_tree/service"
	"time"
)

// SpanDocument is the indexed form of one span. Its _id is stable per session and span,
// so each export replaces the previous snapshot of the span.
type SpanDocument struct {
	Id           string             `json:"_id"`
	SessionId    string             `json:"session_id"`
	SpanId       string             `json:"span_id"`
	ParentSpanId string             `json:"parent_span_id,omitempty"`
	Name         string             `json:"name"`
	Level        string             `json:"level,omitempty"`
	Location     string             `json:"location,omitempty"`
	Ancestry     string             `json:"ancestry"`
	Follows      string             `json:"follows,omitempty"`
	CreatedAt    *time.Time         `json:"created_at,omitempty"`
	DestroyedAt  *time.Time         `json:"destroyed_at,omitempty"`
	ExportedAt   time.Time          `json:"exported_at"`
	Intervals    []IntervalDocument `json:"intervals"`
	Events       []EventDocument    `json:"events"`
}

type IntervalDocument struct {
	Entered *time.Time `json:"entered,omitempty"`
	Exited  *time.Time `json:"exited,omitempty"`
}

type EventDocument struct {
	Time     time.Time         `json:"time"`
	Callsite string            `json:"callsite"`
	Fields   map[string]string `json:"fields"`
}

func toSpanDocument(
	tree *service.SpanTree,
	node *model.SpanNode,
	sessionId string,
	exportedAt time.Time,
) SpanDocument {
	id := node.Span.Id
	doc := SpanDocument{
		Id:          sessionId + ":" + id.String(),
		SessionId:   sessionId,
		SpanId:      id.String(),
		Name:        tree.SpanName(id),
		Ancestry:    tree.SpanAncestry(id),
		CreatedAt:   node.Lifetime.Entered,
		DestroyedAt: node.Lifetime.Exited,
		ExportedAt:  exportedAt,
		Intervals:   make([]IntervalDocument, len(node.Intervals)),
		Events:      make([]EventDocument, len(node.Events)),
	}
	if node.Span.ParentSpanId != nil {
		doc.ParentSpanId = node.Span.ParentSpanId.String()
	}
	if callsite, ok := tree.Callsite(node.Span.CallsiteId); ok {
		doc.Level = string(callsite.Level)
		doc.Location = callsite.Location
	}
	if node.Follows != nil {
		doc.Follows = tree.SpanName(*node.Follows)
	}
	for i, interval := range node.Intervals {
		doc.Intervals[i] = IntervalDocument{Entered: interval.Entered, Exited: interval.Exited}
	}
	for i, event := range node.Events {
		callsite := model.MissingCallsite
		if c, ok := tree.Callsite(event.Event.CallsiteId); ok {
			callsite = c.Name
		}
		doc.Events[i] = EventDocument{
			Time:     event.Time,
			Callsite: callsite,
			Fields:   event.Event.Fields.ToMap(),
		}
	}
	return doc
}
