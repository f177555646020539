package service

import (
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"go.uber.org/zap"
	"time"
)

type DiagnosticListener func(diagnostic model.Diagnostic)

// SpanTree is a running index of callsites, spans and data events, and their structure.
// It is not safe for concurrent use; callers serialise Ingest and queries themselves.
type SpanTree struct {
	callsites    map[model.CallsiteId]model.Callsite
	nodes        map[model.SpanId]*model.SpanNode
	childIndex   map[model.SpanId]map[model.SpanId]struct{}
	roots        []model.SpanId
	rootIndex    map[model.SpanId]struct{}
	orphanEvents []model.TimedDataEvent
	diagnostics  []model.Diagnostic
	listeners    []DiagnosticListener
	logger       *zap.Logger
}

func NewSpanTree(logger *zap.Logger) *SpanTree {
	return &SpanTree{
		callsites:    make(map[model.CallsiteId]model.Callsite),
		nodes:        make(map[model.SpanId]*model.SpanNode),
		childIndex:   make(map[model.SpanId]map[model.SpanId]struct{}),
		roots:        []model.SpanId{},
		rootIndex:    make(map[model.SpanId]struct{}),
		orphanEvents: []model.TimedDataEvent{},
		logger:       logger,
	}
}

// OnDiagnostic registers a listener called synchronously for every anomaly found by Ingest.
func (st *SpanTree) OnDiagnostic(listener DiagnosticListener) {
	st.listeners = append(st.listeners, listener)
}

// Ingest applies one message to the tree. Malformed input never fails: it is recorded as
// a diagnostic and the best-effort update documented for the message kind is applied.
func (st *SpanTree) Ingest(message model.Message) {
	logTime := message.Time
	switch body := message.Body.(type) {
	case model.RegisterCallsite:
		st.callsites[body.Callsite.Id] = body.Callsite
	case model.CreateSpan:
		st.createSpan(logTime, body.Span)
	case model.EnterSpan:
		st.enterSpan(logTime, body.Id)
	case model.ExitSpan:
		st.exitSpan(logTime, body.Id)
	case model.DestroySpan:
		st.destroySpan(logTime, body.Id)
	case model.RecordFollows:
		st.recordFollows(logTime, body.Id, body.Follows)
	case model.RecordDataEvent:
		st.recordDataEvent(logTime, body.Event)
	default:
		st.logger.Warn("Ignoring message with unrecognised body", zap.String("type", fmt.Sprintf("%T", body)))
	}
}

func (st *SpanTree) createSpan(logTime time.Time, span model.Span) {
	_, reused := st.nodes[span.Id]
	st.nodes[span.Id] = &model.SpanNode{
		Span:      span,
		Lifetime:  model.TimeInterval{Entered: timePtr(logTime)},
		Intervals: []model.TimeInterval{},
		Children:  []model.SpanId{},
		Events:    []model.TimedDataEvent{},
	}
	delete(st.childIndex, span.Id)
	if reused {
		st.report(model.ReusedIdentifier, model.CreateSpanKind, logTime, span.Id, "Reused span id")
	}

	if span.ParentSpanId == nil {
		st.addRoot(span.Id)
		return
	}
	parentId := *span.ParentSpanId
	if _, ok := st.nodes[parentId]; !ok {
		st.report(
			model.UnknownReference,
			model.CreateSpanKind,
			logTime,
			span.Id,
			fmt.Sprintf("Unknown parent span %s", parentId),
		)
		return
	}
	st.addChild(parentId, span.Id)
}

func (st *SpanTree) enterSpan(logTime time.Time, id model.SpanId) {
	node, ok := st.nodes[id]
	if !ok {
		st.report(model.UnknownReference, model.EnterSpanKind, logTime, id, "Opened unknown span")
		return
	}
	node.Intervals = append(node.Intervals, model.TimeInterval{Entered: timePtr(logTime)})
}

func (st *SpanTree) exitSpan(logTime time.Time, id model.SpanId) {
	node, ok := st.nodes[id]
	if !ok {
		st.report(model.UnknownReference, model.ExitSpanKind, logTime, id, "Exited unknown span")
		return
	}
	if last := len(node.Intervals) - 1; last >= 0 && node.Intervals[last].IsOpen() {
		node.Intervals[last].Exited = timePtr(logTime)
		return
	}
	st.report(model.InconsistentInterval, model.ExitSpanKind, logTime, id, "Exited span that was never opened")
	node.Intervals = append(node.Intervals, model.TimeInterval{Exited: timePtr(logTime)})
}

func (st *SpanTree) destroySpan(logTime time.Time, id model.SpanId) {
	node, ok := st.nodes[id]
	if !ok {
		st.report(model.UnknownReference, model.DestroySpanKind, logTime, id, "Destroying unknown span")
		return
	}
	if node.Lifetime.Exited != nil {
		st.report(model.InconsistentInterval, model.DestroySpanKind, logTime, id, "Destroying a span twice")
	}
	node.Lifetime.Exited = timePtr(logTime)
}

func (st *SpanTree) recordFollows(logTime time.Time, id model.SpanId, follows model.SpanId) {
	node, ok := st.nodes[id]
	if !ok {
		st.report(model.UnknownReference, model.RecordFollowsKind, logTime, id, "Follows recorded for unknown span")
		return
	}
	if node.Follows != nil {
		st.report(model.InconsistentInterval, model.RecordFollowsKind, logTime, id, "Span follows multiple spans")
	}
	node.Follows = model.SpanIdPtr(follows)
}

func (st *SpanTree) recordDataEvent(logTime time.Time, event model.DataEvent) {
	timed := model.TimedDataEvent{Time: logTime, Event: event}
	if event.ParentSpanId == nil {
		st.orphanEvents = append(st.orphanEvents, timed)
		return
	}
	node, ok := st.nodes[*event.ParentSpanId]
	if !ok {
		st.report(model.UnknownReference, model.DataEventKind, logTime, *event.ParentSpanId, "Event with unknown span")
		return
	}
	node.Events = append(node.Events, timed)
}

func (st *SpanTree) addRoot(id model.SpanId) {
	if _, ok := st.rootIndex[id]; ok {
		return
	}
	st.rootIndex[id] = struct{}{}
	st.roots = append(st.roots, id)
}

func (st *SpanTree) addChild(parentId model.SpanId, childId model.SpanId) {
	children, ok := st.childIndex[parentId]
	if !ok {
		children = make(map[model.SpanId]struct{})
		st.childIndex[parentId] = children
	}
	if _, ok := children[childId]; ok {
		return
	}
	children[childId] = struct{}{}
	parent := st.nodes[parentId]
	parent.Children = append(parent.Children, childId)
}

func (st *SpanTree) report(
	kind model.AnomalyKind,
	messageKind model.MessageKind,
	logTime time.Time,
	id model.SpanId,
	message string,
) {
	diagnostic := model.Diagnostic{
		Kind:        kind,
		MessageKind: messageKind,
		Time:        logTime,
		SpanId:      id,
		Message:     message,
	}
	st.logger.Warn(
		message,
		zap.String("anomaly", string(kind)),
		zap.String("message_kind", string(messageKind)),
		zap.Uint64("span_id", uint64(id)),
		zap.Time("log_time", logTime),
	)
	st.diagnostics = append(st.diagnostics, diagnostic)
	for _, listener := range st.listeners {
		listener(diagnostic)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
