package session

import (
	"context"
	"errors"
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/event_bus"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"github.com/Avi18971911/SpanTree/internal/span_tree/service"
	"github.com/asaskevich/EventBus"
	"github.com/eapache/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"sync"
)

// Ingester is what transports feed decoded messages into.
type Ingester interface {
	Enqueue(messages ...model.Message)
}

// Session owns a SpanTree and serialises access to it: a single pump applies queued
// messages under the write lock, queries run under the read lock.
type Session struct {
	id         string
	tree       *service.SpanTree
	strict     *service.StrictIngester
	mu         sync.RWMutex
	generation uint64

	queueMu sync.Mutex
	queue   *queue.Queue
	notify  chan struct{}

	cache   AncestryCache
	metrics *Metrics
	bus     event_bus.DiagnosticBus
	logger  *zap.Logger
}

func NewSession(
	cache AncestryCache,
	eventBus EventBus.Bus,
	metrics *Metrics,
	strict bool,
	logger *zap.Logger,
) (*Session, error) {
	id := uuid.NewString()
	logger = logger.With(zap.String("session_id", id))
	s := &Session{
		id:      id,
		tree:    service.NewSpanTree(logger),
		queue:   queue.New(),
		notify:  make(chan struct{}, 1),
		cache:   cache,
		metrics: metrics,
		bus:     event_bus.NewDiagnosticBus(eventBus, id, logger),
		logger:  logger,
	}
	if strict {
		s.strict = service.NewStrictIngester(s.tree)
	}

	err := s.bus.Subscribe(func(diagnostic model.Diagnostic) error {
		s.metrics.diagnostics.WithLabelValues(string(diagnostic.Kind)).Inc()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe session metrics to diagnostics: %w", err)
	}
	s.tree.OnDiagnostic(func(diagnostic model.Diagnostic) {
		s.bus.Publish(diagnostic)
	})

	logger.Info("Created span tree session", zap.Bool("strict", strict))
	return s, nil
}

func (s *Session) Id() string {
	return s.id
}

// Enqueue appends messages to the ingestion queue. The messages of one call stay contiguous.
func (s *Session) Enqueue(messages ...model.Message) {
	s.queueMu.Lock()
	for _, message := range messages {
		s.queue.Add(message)
	}
	s.metrics.queueDepth.Set(float64(s.queue.Length()))
	s.queueMu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run pumps queued messages into the tree until ctx is done. In strict mode it stops at the
// first message that raised a diagnostic.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("Starting span tree ingestion pump")
	for {
		if err := s.Flush(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.notify:
		}
	}
}

// Flush ingests everything currently queued.
func (s *Session) Flush() error {
	for {
		message, ok := s.dequeue()
		if !ok {
			return nil
		}
		if err := s.IngestNow(message); err != nil {
			return err
		}
	}
}

// IngestNow applies one message immediately, bypassing the queue.
func (s *Session) IngestNow(message model.Message) error {
	if message.Body == nil {
		s.logger.Warn("Skipping message without body", zap.Time("log_time", message.Time))
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch message.Body.(type) {
	case model.RegisterCallsite, model.CreateSpan:
		s.generation++
	}
	s.metrics.messages.WithLabelValues(string(message.Body.Kind())).Inc()
	if s.strict == nil {
		s.tree.Ingest(message)
		return nil
	}
	if err := s.strict.Ingest(message); err != nil {
		return fmt.Errorf("%w: %w", ErrStrictViolation, err)
	}
	return nil
}

// View runs a sequence of queries against a consistent state of the tree.
// The tree must not be retained or modified after fn returns.
func (s *Session) View(fn func(tree *service.SpanTree)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.tree)
}

func (s *Session) SpanAncestry(id model.SpanId) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	generation := s.generation
	ancestry, err := s.cache.Get(generation, id)
	if err == nil {
		return ancestry
	}
	if !errors.Is(err, ErrKeyNotFound) {
		s.logger.Warn("Failed to read ancestry from cache", zap.Error(err))
	}
	ancestry = s.tree.SpanAncestry(id)
	if err := s.cache.Put(generation, id, ancestry); err != nil {
		s.logger.Debug("Ancestry was not cached", zap.Uint64("span_id", uint64(id)), zap.Error(err))
	}
	return ancestry
}

// WaitForDiagnostics blocks until published diagnostics have reached every subscriber.
func (s *Session) WaitForDiagnostics() {
	s.bus.WaitAsync()
}

func (s *Session) QueueLength() int {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return s.queue.Length()
}

func (s *Session) dequeue() (model.Message, bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if s.queue.Length() == 0 {
		return model.Message{}, false
	}
	message := s.queue.Remove().(model.Message)
	s.metrics.queueDepth.Set(float64(s.queue.Length()))
	return message, true
}

var ErrStrictViolation = errors.New("strict ingestion rejected message")
