package server

import (
	"context"
	"github.com/Avi18971911/SpanTree/internal/otel_server/helper"
	"github.com/Avi18971911/SpanTree/internal/session"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	protoLogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	v1 "go.opentelemetry.io/proto/otlp/logs/v1"
	"go.uber.org/zap"
	"sort"
)

type LogServiceServerImpl struct {
	protoLogs.UnimplementedLogsServiceServer
	ingester session.Ingester
	logger   *zap.Logger
}

func NewLogServiceServerImpl(
	logger *zap.Logger,
	ingester session.Ingester,
) *LogServiceServerImpl {
	logger.Info("Creating new LogServiceServerImpl")
	return &LogServiceServerImpl{
		logger:   logger,
		ingester: ingester,
	}
}

func (lss *LogServiceServerImpl) Export(
	ctx context.Context,
	req *protoLogs.ExportLogsServiceRequest,
) (*protoLogs.ExportLogsServiceResponse, error) {
	messages := ToMessages(req.ResourceLogs)
	lss.logger.Debug("Converted exported logs", zap.Int("messages", len(messages)))
	lss.ingester.Enqueue(messages...)
	return &protoLogs.ExportLogsServiceResponse{}, nil
}

// ToMessages turns log records into data events, attached to the span they were logged in
// when the record carries one.
func ToMessages(resourceLogs []*v1.ResourceLogs) []model.Message {
	var messages []model.Message
	registered := make(map[model.CallsiteId]struct{})
	for _, resourceLog := range resourceLogs {
		serviceName := helper.GetServiceName(resourceLog.Resource)
		for _, scopeLog := range resourceLog.ScopeLogs {
			scopeName := helper.GetScopeName(scopeLog.Scope)
			for _, record := range scopeLog.LogRecords {
				messages = append(messages, typeLog(record, serviceName, scopeName, registered)...)
			}
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Time.Before(messages[j].Time)
	})
	return messages
}

func typeLog(
	record *v1.LogRecord,
	serviceName string,
	scopeName string,
	registered map[model.CallsiteId]struct{},
) []model.Message {
	timestamp := helper.ToTime(getTimestamp(record))
	level := getSeverity(record.SeverityNumber)
	callsite := model.Callsite{
		Id:       helper.ToCallsiteId(serviceName, scopeName, "log", string(level)),
		Name:     getCallsiteName(scopeName),
		Level:    level,
		Location: serviceName + "/" + scopeName,
	}

	var messages []model.Message
	if _, ok := registered[callsite.Id]; !ok {
		registered[callsite.Id] = struct{}{}
		messages = append(messages, model.Message{Time: timestamp, Body: model.RegisterCallsite{Callsite: callsite}})
	}

	var parent *model.SpanId
	if spanId, ok := helper.ToSpanId(record.SpanId); ok {
		parent = model.SpanIdPtr(spanId)
	}
	fields := model.Fields{
		{Key: "message", Value: helper.AnyValueToString(record.Body)},
		{Key: "severity", Value: string(level)},
	}
	fields = append(fields, helper.ToFields(record.Attributes)...)
	return append(messages, model.Message{
		Time: timestamp,
		Body: model.RecordDataEvent{
			Event: model.DataEvent{CallsiteId: callsite.Id, ParentSpanId: parent, Fields: fields},
		},
	})
}

func getTimestamp(record *v1.LogRecord) uint64 {
	if record.TimeUnixNano != 0 {
		return record.TimeUnixNano
	}
	return record.ObservedTimeUnixNano
}

func getCallsiteName(scopeName string) string {
	if scopeName == "" {
		return "log"
	}
	return scopeName
}

func getSeverity(severityNumber v1.SeverityNumber) model.Level {
	switch {
	case severityNumber == v1.SeverityNumber_SEVERITY_NUMBER_UNSPECIFIED:
		return model.InfoLevel
	case severityNumber < v1.SeverityNumber_SEVERITY_NUMBER_DEBUG:
		return model.TraceLevel
	case severityNumber < v1.SeverityNumber_SEVERITY_NUMBER_INFO:
		return model.DebugLevel
	case severityNumber < v1.SeverityNumber_SEVERITY_NUMBER_WARN:
		return model.InfoLevel
	case severityNumber < v1.SeverityNumber_SEVERITY_NUMBER_ERROR:
		return model.WarnLevel
	default:
		return model.ErrorLevel
	}
}
