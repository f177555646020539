package server

import (
	"context"
	"github.com/Avi18971911/SpanTree/internal/otel_server/helper"
	"github.com/Avi18971911/SpanTree/internal/session"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"go.opentelemetry.io/proto/otlp/trace/v1"
	"go.uber.org/zap"
	"sort"
)

type TraceServiceServerImpl struct {
	protoTrace.UnimplementedTraceServiceServer
	ingester session.Ingester
	logger   *zap.Logger
}

func NewTraceServiceServerImpl(
	logger *zap.Logger,
	ingester session.Ingester,
) TraceServiceServerImpl {
	logger.Info("Creating new TraceServiceServerImpl")
	return TraceServiceServerImpl{
		logger:   logger,
		ingester: ingester,
	}
}

func (tss TraceServiceServerImpl) Export(
	ctx context.Context,
	req *protoTrace.ExportTraceServiceRequest,
) (*protoTrace.ExportTraceServiceResponse, error) {
	for _, resourceSpan := range req.ResourceSpans {
		if helper.GetServiceName(resourceSpan.Resource) == helper.UnknownServiceName {
			tss.logger.Warn("Service name not found in resource span")
		}
	}
	messages := ToMessages(req.ResourceSpans)
	tss.logger.Debug("Converted exported spans", zap.Int("messages", len(messages)))
	tss.ingester.Enqueue(messages...)
	return &protoTrace.ExportTraceServiceResponse{}, nil
}

type typedSpan struct {
	span        *v1.Span
	serviceName string
	scopeName   string
	depth       int
}

// ToMessages replays the finished spans of one export as the instrumentation stream that
// would have produced them, ordered by time. Parents that are part of the same export are
// created before their children.
func ToMessages(resourceSpans []*v1.ResourceSpans) []model.Message {
	spans := getTypedSpans(resourceSpans)
	assignDepths(spans)
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].span.StartTimeUnixNano != spans[j].span.StartTimeUnixNano {
			return spans[i].span.StartTimeUnixNano < spans[j].span.StartTimeUnixNano
		}
		return spans[i].depth < spans[j].depth
	})

	var messages []model.Message
	registered := make(map[model.CallsiteId]struct{})
	for _, ts := range spans {
		messages = append(messages, spanToMessages(ts, registered)...)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Time.Before(messages[j].Time)
	})
	return messages
}

func getTypedSpans(resourceSpans []*v1.ResourceSpans) []*typedSpan {
	var typedSpans []*typedSpan
	for _, resourceSpan := range resourceSpans {
		serviceName := helper.GetServiceName(resourceSpan.Resource)
		for _, scopeSpan := range resourceSpan.ScopeSpans {
			scopeName := helper.GetScopeName(scopeSpan.Scope)
			for _, span := range scopeSpan.Spans {
				typedSpans = append(typedSpans, &typedSpan{
					span:        span,
					serviceName: serviceName,
					scopeName:   scopeName,
				})
			}
		}
	}
	return typedSpans
}

func assignDepths(spans []*typedSpan) {
	parents := make(map[model.SpanId]model.SpanId)
	for _, ts := range spans {
		id, ok := helper.ToSpanId(ts.span.SpanId)
		if !ok {
			continue
		}
		if parentId, ok := helper.ToSpanId(ts.span.ParentSpanId); ok {
			parents[id] = parentId
		}
	}
	for _, ts := range spans {
		id, _ := helper.ToSpanId(ts.span.SpanId)
		seen := map[model.SpanId]struct{}{id: {}}
		for {
			parentId, ok := parents[id]
			if !ok {
				break
			}
			if _, cycle := seen[parentId]; cycle {
				break
			}
			seen[parentId] = struct{}{}
			ts.depth++
			id = parentId
		}
	}
}

func spanToMessages(ts *typedSpan, registered map[model.CallsiteId]struct{}) []model.Message {
	span := ts.span
	id, ok := helper.ToSpanId(span.SpanId)
	if !ok {
		return nil
	}
	startTime := helper.ToTime(span.StartTimeUnixNano)
	endTime := helper.ToTime(span.EndTimeUnixNano)
	callsite := getCallsite(ts)

	var messages []model.Message
	if _, ok := registered[callsite.Id]; !ok {
		registered[callsite.Id] = struct{}{}
		messages = append(messages, model.Message{Time: startTime, Body: model.RegisterCallsite{Callsite: callsite}})
	}

	var parent *model.SpanId
	if parentId, ok := helper.ToSpanId(span.ParentSpanId); ok {
		parent = model.SpanIdPtr(parentId)
	}
	messages = append(messages, model.Message{
		Time: startTime,
		Body: model.CreateSpan{Span: model.Span{Id: id, ParentSpanId: parent, CallsiteId: callsite.Id}},
	})
	if follows, ok := getFollows(span); ok {
		messages = append(messages, model.Message{Time: startTime, Body: model.RecordFollows{Id: id, Follows: follows}})
	}
	messages = append(messages, model.Message{Time: startTime, Body: model.EnterSpan{Id: id}})
	for _, event := range span.Events {
		eventTime := helper.ToTime(event.TimeUnixNano)
		eventCallsite := getEventCallsite(ts, event)
		if _, ok := registered[eventCallsite.Id]; !ok {
			registered[eventCallsite.Id] = struct{}{}
			messages = append(messages, model.Message{Time: eventTime, Body: model.RegisterCallsite{Callsite: eventCallsite}})
		}
		messages = append(messages, model.Message{
			Time: eventTime,
			Body: model.RecordDataEvent{Event: getDataEvent(eventCallsite.Id, id, event)},
		})
	}
	if span.EndTimeUnixNano != 0 {
		messages = append(messages,
			model.Message{Time: endTime, Body: model.ExitSpan{Id: id}},
			model.Message{Time: endTime, Body: model.DestroySpan{Id: id}},
		)
	}
	return messages
}

func getCallsite(ts *typedSpan) model.Callsite {
	return model.Callsite{
		Id:       helper.ToCallsiteId(ts.serviceName, ts.scopeName, ts.span.Name),
		Name:     ts.span.Name,
		Level:    getLevel(ts.span),
		Location: ts.serviceName + "/" + ts.scopeName,
	}
}

func getLevel(span *v1.Span) model.Level {
	if span.Status != nil && span.Status.Code == v1.Status_STATUS_CODE_ERROR {
		return model.ErrorLevel
	}
	return model.InfoLevel
}

func getFollows(span *v1.Span) (model.SpanId, bool) {
	for _, link := range span.Links {
		if id, ok := helper.ToSpanId(link.SpanId); ok {
			return id, true
		}
	}
	return 0, false
}

// Span events share a callsite per span name and event name.
func getEventCallsite(ts *typedSpan, event *v1.Span_Event) model.Callsite {
	return model.Callsite{
		Id:       helper.ToCallsiteId(ts.serviceName, ts.scopeName, ts.span.Name, event.Name),
		Name:     event.Name,
		Level:    model.InfoLevel,
		Location: ts.serviceName + "/" + ts.scopeName,
	}
}

func getDataEvent(callsite model.CallsiteId, parent model.SpanId, event *v1.Span_Event) model.DataEvent {
	fields := model.Fields{{Key: "name", Value: event.Name}}
	fields = append(fields, helper.ToFields(event.Attributes)...)
	return model.DataEvent{
		CallsiteId:   callsite,
		ParentSpanId: model.SpanIdPtr(parent),
		Fields:       fields,
	}
}
