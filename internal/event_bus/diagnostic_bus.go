package event_bus

import (
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

const diagnosticsTopicPrefix = "span_tree_diagnostics"

// DiagnosticBus fans out the diagnostics of a single session. Sessions may
// share the underlying bus; each one publishes on its own topic.
type DiagnosticBus interface {
	Subscribe(handler func(diagnostic model.Diagnostic) error) error
	Publish(diagnostic model.Diagnostic)
	// WaitAsync blocks until every handler has returned.
	WaitAsync()
}

type diagnosticBus struct {
	eventBus EventBus.Bus
	topic    string
	logger   *zap.Logger
}

func DiagnosticsTopic(sessionId string) string {
	return diagnosticsTopicPrefix + ":" + sessionId
}

func NewDiagnosticBus(eventBus EventBus.Bus, sessionId string, logger *zap.Logger) DiagnosticBus {
	return &diagnosticBus{
		eventBus: eventBus,
		topic:    DiagnosticsTopic(sessionId),
		logger:   logger,
	}
}

// Subscribe runs handler asynchronously, one diagnostic at a time, in
// publication order.
func (b *diagnosticBus) Subscribe(handler func(diagnostic model.Diagnostic) error) error {
	wrapped := func(diagnostic model.Diagnostic) {
		if err := handler(diagnostic); err != nil {
			b.logger.Error("Failed to handle diagnostic",
				zap.String("topic", b.topic),
				zap.String("kind", string(diagnostic.Kind)),
				zap.Error(err),
			)
		}
	}
	if err := b.eventBus.SubscribeAsync(b.topic, wrapped, true); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", b.topic, err)
	}
	return nil
}

func (b *diagnosticBus) Publish(diagnostic model.Diagnostic) {
	b.eventBus.Publish(b.topic, diagnostic)
}

func (b *diagnosticBus) WaitAsync() {
	b.eventBus.WaitAsync()
}
