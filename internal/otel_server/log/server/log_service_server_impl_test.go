package server

import (
	"context"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protoLogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonV1 "go.opentelemetry.io/proto/otlp/common/v1"
	v1 "go.opentelemetry.io/proto/otlp/logs/v1"
	"go.uber.org/zap"
	"testing"
	"time"
)

type fakeIngester struct {
	messages []model.Message
}

func (f *fakeIngester) Enqueue(messages ...model.Message) {
	f.messages = append(f.messages, messages...)
}

func stringValue(s string) *commonV1.AnyValue {
	return &commonV1.AnyValue{Value: &commonV1.AnyValue_StringValue{StringValue: s}}
}

func TestLogServiceServerImpl_Export(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("should turn log records into data events", func(t *testing.T) {
		ingester := &fakeIngester{}
		lss := NewLogServiceServerImpl(zap.NewNop(), ingester)
		req := &protoLogs.ExportLogsServiceRequest{
			ResourceLogs: []*v1.ResourceLogs{
				{
					ScopeLogs: []*v1.ScopeLogs{
						{
							Scope: &commonV1.InstrumentationScope{Name: "payments"},
							LogRecords: []*v1.LogRecord{
								{
									TimeUnixNano:   uint64(timestamp.Add(time.Second).UnixNano()),
									SeverityNumber: v1.SeverityNumber_SEVERITY_NUMBER_ERROR,
									Body:           stringValue("card declined"),
									SpanId:         []byte{0, 0, 0, 0, 0, 0, 0, 7},
									Attributes:     []*commonV1.KeyValue{{Key: "user", Value: stringValue("bob")}},
								},
								{
									TimeUnixNano: uint64(timestamp.UnixNano()),
									Body:         stringValue("started"),
								},
							},
						},
					},
				},
			},
		}

		_, err := lss.Export(context.Background(), req)
		require.NoError(t, err)

		var events []model.RecordDataEvent
		for _, message := range ingester.messages {
			if event, ok := message.Body.(model.RecordDataEvent); ok {
				events = append(events, event)
			}
		}
		require.Len(t, events, 2)

		assert.Nil(t, events[0].Event.ParentSpanId)
		message, _ := events[0].Event.Fields.Get("message")
		assert.Equal(t, "started", message)

		require.NotNil(t, events[1].Event.ParentSpanId)
		assert.Equal(t, model.SpanId(7), *events[1].Event.ParentSpanId)
		assert.Equal(t, model.Fields{
			{Key: "message", Value: "card declined"},
			{Key: "severity", Value: "error"},
			{Key: "user", Value: "bob"},
		}, events[1].Event.Fields)
	})
}

func TestGetSeverity(t *testing.T) {
	t.Run("should map severity numbers onto levels", func(t *testing.T) {
		assert.Equal(t, model.InfoLevel, getSeverity(v1.SeverityNumber_SEVERITY_NUMBER_UNSPECIFIED))
		assert.Equal(t, model.TraceLevel, getSeverity(v1.SeverityNumber_SEVERITY_NUMBER_TRACE2))
		assert.Equal(t, model.DebugLevel, getSeverity(v1.SeverityNumber_SEVERITY_NUMBER_DEBUG))
		assert.Equal(t, model.InfoLevel, getSeverity(v1.SeverityNumber_SEVERITY_NUMBER_INFO4))
		assert.Equal(t, model.WarnLevel, getSeverity(v1.SeverityNumber_SEVERITY_NUMBER_WARN))
		assert.Equal(t, model.ErrorLevel, getSeverity(v1.SeverityNumber_SEVERITY_NUMBER_FATAL))
	})
}
