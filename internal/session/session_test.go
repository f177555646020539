package session

import (
	"context"
	"errors"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"github.com/Avi18971911/SpanTree/internal/span_tree/service"
	"github.com/asaskevich/EventBus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"testing"
	"time"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, strict bool) (*Session, *Metrics) {
	cache, err := NewDefaultRistrettoCache(1e4, 1<<20)
	require.NoError(t, err)
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	s, err := NewSession(NewAncestryCacheImpl(cache), EventBus.New(), metrics, strict, zap.NewNop())
	require.NoError(t, err)
	return s, metrics
}

func callsiteMessage(seconds int, id model.CallsiteId, name string) model.Message {
	return model.Message{
		Time: baseTime.Add(time.Duration(seconds) * time.Second),
		Body: model.RegisterCallsite{Callsite: model.Callsite{Id: id, Name: name, Level: model.InfoLevel}},
	}
}

func spanMessage(seconds int, id model.SpanId, parent *model.SpanId, callsite model.CallsiteId) model.Message {
	return model.Message{
		Time: baseTime.Add(time.Duration(seconds) * time.Second),
		Body: model.CreateSpan{Span: model.Span{Id: id, ParentSpanId: parent, CallsiteId: callsite}},
	}
}

func TestSession_Flush(t *testing.T) {
	t.Run("should ingest queued messages in order", func(t *testing.T) {
		s, metrics := newTestSession(t, false)
		s.Enqueue(
			callsiteMessage(0, 1, "root"),
			spanMessage(1, 1, nil, 1),
			model.Message{Time: baseTime.Add(2 * time.Second), Body: model.EnterSpan{Id: 1}},
		)
		assert.Equal(t, 3, s.QueueLength())

		require.NoError(t, s.Flush())

		assert.Equal(t, 0, s.QueueLength())
		s.View(func(tree *service.SpanTree) {
			assert.Equal(t, "root", tree.SpanName(1))
			node, ok := tree.Node(1)
			require.True(t, ok)
			assert.Len(t, node.Intervals, 1)
		})
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.messages.WithLabelValues(string(model.EnterSpanKind))))
		assert.Equal(t, float64(0), testutil.ToFloat64(metrics.queueDepth))
	})

	t.Run("should count diagnostics through the event bus", func(t *testing.T) {
		s, metrics := newTestSession(t, false)
		s.Enqueue(model.Message{Time: baseTime, Body: model.ExitSpan{Id: 9}})
		require.NoError(t, s.Flush())
		s.WaitForDiagnostics()

		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.diagnostics.WithLabelValues(string(model.UnknownReference))))
	})

	t.Run("should stop at the first anomaly in strict mode", func(t *testing.T) {
		s, _ := newTestSession(t, true)
		s.Enqueue(
			spanMessage(0, 1, nil, 1),
			spanMessage(1, 1, nil, 1),
			spanMessage(2, 2, nil, 1),
		)

		err := s.Flush()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStrictViolation))
		assert.Equal(t, 1, s.QueueLength())
	})

	t.Run("should skip messages without body", func(t *testing.T) {
		s, _ := newTestSession(t, true)
		assert.NoError(t, s.IngestNow(model.Message{Time: baseTime}))
	})
}

func TestSession_Run(t *testing.T) {
	t.Run("should ingest messages enqueued while running and stop on cancellation", func(t *testing.T) {
		s, _ := newTestSession(t, false)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- s.Run(ctx)
		}()

		s.Enqueue(spanMessage(0, 1, nil, 1))
		s.Enqueue(spanMessage(1, 2, model.SpanIdPtr(1), 1))
		assert.Eventually(t, func() bool {
			count := 0
			s.View(func(tree *service.SpanTree) {
				count = tree.SpanCount()
			})
			return count == 2
		}, time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("Run did not return after cancellation")
		}
		s.View(func(tree *service.SpanTree) {
			assert.Equal(t, []model.SpanId{2}, tree.Children(1))
		})
	})
}

func TestSession_SpanAncestry(t *testing.T) {
	t.Run("should not serve a stale chain after a callsite is renamed", func(t *testing.T) {
		s, _ := newTestSession(t, false)
		require.NoError(t, s.IngestNow(callsiteMessage(0, 1, "A")))
		require.NoError(t, s.IngestNow(callsiteMessage(0, 2, "B")))
		require.NoError(t, s.IngestNow(spanMessage(1, 1, nil, 1)))
		require.NoError(t, s.IngestNow(spanMessage(2, 2, model.SpanIdPtr(1), 2)))

		assert.Equal(t, "A ➡ B", s.SpanAncestry(2))
		assert.Equal(t, "A ➡ B", s.SpanAncestry(2))

		require.NoError(t, s.IngestNow(callsiteMessage(3, 1, "Renamed")))
		assert.Equal(t, "Renamed ➡ B", s.SpanAncestry(2))
	})
}

func TestAncestryCacheImpl(t *testing.T) {
	t.Run("Returns error if key is not found", func(t *testing.T) {
		cache, err := NewDefaultRistrettoCache(1e3, 1<<10)
		require.NoError(t, err)
		ac := NewAncestryCacheImpl(cache)
		_, err = ac.Get(0, 1)
		assert.Equal(t, ErrKeyNotFound, err)
	})

	t.Run("Rejects non-positive sizes", func(t *testing.T) {
		_, err := NewDefaultRistrettoCache(0, 1<<10)
		assert.ErrorIs(t, err, ErrInvalidCacheSize)
		_, err = NewDefaultRistrettoCache(1e3, 0)
		assert.ErrorIs(t, err, ErrInvalidCacheSize)
	})

	t.Run("Returns value if key is found for the same generation only", func(t *testing.T) {
		cache, err := NewDefaultRistrettoCache(1e3, 1<<10)
		require.NoError(t, err)
		ac := NewAncestryCacheImpl(cache)
		require.NoError(t, ac.Put(3, 1, "A ➡ B"))
		cache.Wait()

		res, err := ac.Get(3, 1)
		assert.Nil(t, err)
		assert.Equal(t, "A ➡ B", res)
		_, err = ac.Get(4, 1)
		assert.Equal(t, ErrKeyNotFound, err)
	})
}
