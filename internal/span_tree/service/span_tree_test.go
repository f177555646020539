package service

import (
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"testing"
	"time"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return baseTime.Add(time.Duration(seconds) * time.Second)
}

func newTestTree() *SpanTree {
	return NewSpanTree(zap.NewNop())
}

func registerCallsite(t time.Time, id model.CallsiteId, name string) model.Message {
	return model.Message{
		Time: t,
		Body: model.RegisterCallsite{
			Callsite: model.Callsite{Id: id, Name: name, Level: model.InfoLevel, Location: "main.go:1"},
		},
	}
}

func createSpan(t time.Time, id model.SpanId, parent *model.SpanId, callsite model.CallsiteId) model.Message {
	return model.Message{
		Time: t,
		Body: model.CreateSpan{Span: model.Span{Id: id, ParentSpanId: parent, CallsiteId: callsite}},
	}
}

func enter(t time.Time, id model.SpanId) model.Message {
	return model.Message{Time: t, Body: model.EnterSpan{Id: id}}
}

func exit(t time.Time, id model.SpanId) model.Message {
	return model.Message{Time: t, Body: model.ExitSpan{Id: id}}
}

func destroy(t time.Time, id model.SpanId) model.Message {
	return model.Message{Time: t, Body: model.DestroySpan{Id: id}}
}

func follows(t time.Time, id model.SpanId, predecessor model.SpanId) model.Message {
	return model.Message{Time: t, Body: model.RecordFollows{Id: id, Follows: predecessor}}
}

func dataEvent(t time.Time, parent *model.SpanId, fields ...model.Field) model.Message {
	return model.Message{
		Time: t,
		Body: model.RecordDataEvent{Event: model.DataEvent{CallsiteId: 9, ParentSpanId: parent, Fields: fields}},
	}
}

func ingestAll(tree *SpanTree, messages ...model.Message) {
	for _, message := range messages {
		tree.Ingest(message)
	}
}

func diagnosticKinds(tree *SpanTree) []model.AnomalyKind {
	var kinds []model.AnomalyKind
	for _, diagnostic := range tree.Diagnostics() {
		kinds = append(kinds, diagnostic.Kind)
	}
	return kinds
}

func TestSpanTree_RegisterCallsite(t *testing.T) {
	t.Run("should overwrite a callsite silently", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(tree, registerCallsite(at(0), 1, "first"), registerCallsite(at(1), 1, "second"))

		callsite, ok := tree.Callsite(1)
		assert.True(t, ok)
		assert.Equal(t, "second", callsite.Name)
		assert.Equal(t, 1, tree.CallsiteCount())
		assert.Empty(t, tree.Diagnostics())
	})
}

func TestSpanTree_CreateSpan(t *testing.T) {
	t.Run("should add a span without parent to the roots", func(t *testing.T) {
		tree := newTestTree()
		tree.Ingest(createSpan(at(0), 1, nil, 1))

		assert.Equal(t, []model.SpanId{1}, tree.Roots())
		node, ok := tree.Node(1)
		require.True(t, ok)
		assert.Equal(t, at(0), *node.Lifetime.Entered)
		assert.Nil(t, node.Lifetime.Exited)
		assert.Empty(t, node.Intervals)
	})

	t.Run("should add a span with a known parent to the parent's children", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(tree, createSpan(at(0), 1, nil, 1), createSpan(at(1), 2, model.SpanIdPtr(1), 1))

		assert.Equal(t, []model.SpanId{1}, tree.Roots())
		assert.Equal(t, []model.SpanId{2}, tree.Children(1))
	})

	t.Run("should keep children in insertion order", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(
			tree,
			createSpan(at(0), 1, nil, 1),
			createSpan(at(1), 30, model.SpanIdPtr(1), 1),
			createSpan(at(2), 10, model.SpanIdPtr(1), 1),
			createSpan(at(3), 20, model.SpanIdPtr(1), 1),
		)

		assert.Equal(t, []model.SpanId{30, 10, 20}, tree.Children(1))
	})

	t.Run("should discard prior state when an id is reused", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(
			tree,
			createSpan(at(0), 1, nil, 1),
			enter(at(1), 1),
			dataEvent(at(2), model.SpanIdPtr(1)),
			createSpan(at(3), 1, nil, 1),
		)

		node, ok := tree.Node(1)
		require.True(t, ok)
		assert.Empty(t, node.Intervals)
		assert.Empty(t, node.Events)
		assert.Equal(t, at(3), *node.Lifetime.Entered)
		assert.Equal(t, []model.SpanId{1}, tree.Roots())
		assert.Equal(t, []model.AnomalyKind{model.ReusedIdentifier}, diagnosticKinds(tree))
	})

	t.Run("should not add a span with an unknown parent to the roots or any children", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(tree, createSpan(at(0), 1, nil, 1), createSpan(at(1), 2, model.SpanIdPtr(99), 1))

		assert.Equal(t, []model.SpanId{1}, tree.Roots())
		assert.Empty(t, tree.Children(1))
		_, ok := tree.Node(2)
		assert.True(t, ok)
		assert.Equal(t, []model.AnomalyKind{model.UnknownReference}, diagnosticKinds(tree))
	})
}

func TestSpanTree_EnterAndExitSpan(t *testing.T) {
	t.Run("should close the most recently opened interval", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(tree, createSpan(at(0), 1, nil, 1), enter(at(1), 1), enter(at(2), 1), exit(at(3), 1))

		node, _ := tree.Node(1)
		require.Len(t, node.Intervals, 2)
		assert.Equal(t, at(1), *node.Intervals[0].Entered)
		assert.Nil(t, node.Intervals[0].Exited)
		assert.Equal(t, at(2), *node.Intervals[1].Entered)
		assert.Equal(t, at(3), *node.Intervals[1].Exited)
		assert.Empty(t, tree.Diagnostics())
	})

	t.Run("should push a closed-only interval when exiting a span that was never opened", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(tree, createSpan(at(0), 1, nil, 1), exit(at(1), 1))

		node, _ := tree.Node(1)
		require.Len(t, node.Intervals, 1)
		assert.Nil(t, node.Intervals[0].Entered)
		assert.Equal(t, at(1), *node.Intervals[0].Exited)
		assert.Equal(t, []model.AnomalyKind{model.InconsistentInterval}, diagnosticKinds(tree))
	})

	t.Run("should push a closed-only interval when the last interval is already closed", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(tree, createSpan(at(0), 1, nil, 1), enter(at(1), 1), exit(at(2), 1), exit(at(3), 1))

		node, _ := tree.Node(1)
		require.Len(t, node.Intervals, 2)
		assert.Equal(t, "[00:00:01.000000 - 00:00:02.000000]", node.Intervals[0].String())
		assert.Equal(t, "[? - 00:00:03.000000]", node.Intervals[1].String())
		assert.Equal(t, []model.AnomalyKind{model.InconsistentInterval}, diagnosticKinds(tree))
	})

	t.Run("should ignore enter and exit of unknown spans", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(tree, enter(at(0), 5), exit(at(1), 5))

		assert.Equal(t, 0, tree.SpanCount())
		assert.Equal(t, []model.AnomalyKind{model.UnknownReference, model.UnknownReference}, diagnosticKinds(tree))
	})
}

func TestSpanTree_DestroySpan(t *testing.T) {
	t.Run("should set the end of the lifetime", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(tree, createSpan(at(0), 1, nil, 1), destroy(at(5), 1))

		node, _ := tree.Node(1)
		assert.Equal(t, at(5), *node.Lifetime.Exited)
		assert.Empty(t, tree.Diagnostics())
	})

	t.Run("should overwrite the end of the lifetime when destroyed twice", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(tree, createSpan(at(0), 1, nil, 1), destroy(at(5), 1), destroy(at(6), 1))

		node, _ := tree.Node(1)
		assert.Equal(t, at(6), *node.Lifetime.Exited)
		assert.Equal(t, []model.AnomalyKind{model.InconsistentInterval}, diagnosticKinds(tree))
	})

	t.Run("should ignore destroying an unknown span", func(t *testing.T) {
		tree := newTestTree()
		tree.Ingest(destroy(at(0), 3))

		assert.Equal(t, 0, tree.SpanCount())
		assert.Equal(t, []model.AnomalyKind{model.UnknownReference}, diagnosticKinds(tree))
	})
}

func TestSpanTree_RecordFollows(t *testing.T) {
	t.Run("should record and then overwrite the follows link", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(
			tree,
			createSpan(at(0), 1, nil, 1),
			createSpan(at(0), 2, nil, 1),
			follows(at(1), 2, 1),
			follows(at(2), 2, 7),
		)

		node, _ := tree.Node(2)
		require.NotNil(t, node.Follows)
		assert.Equal(t, model.SpanId(7), *node.Follows)
		assert.Equal(t, []model.AnomalyKind{model.InconsistentInterval}, diagnosticKinds(tree))
	})

	t.Run("should ignore follows for an unknown span", func(t *testing.T) {
		tree := newTestTree()
		tree.Ingest(follows(at(0), 2, 1))

		assert.Equal(t, []model.AnomalyKind{model.UnknownReference}, diagnosticKinds(tree))
	})
}

func TestSpanTree_DataEvent(t *testing.T) {
	t.Run("should put an event without parent in the orphan list", func(t *testing.T) {
		tree := newTestTree()
		tree.Ingest(dataEvent(at(0), nil, model.Field{Key: "message", Value: "hello"}))

		orphans := tree.OrphanEvents()
		require.Len(t, orphans, 1)
		assert.Equal(t, at(0), orphans[0].Time)
		value, ok := orphans[0].Event.Fields.Get("message")
		assert.True(t, ok)
		assert.Equal(t, "hello", value)
	})

	t.Run("should attach an event to its known parent span", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(tree, createSpan(at(0), 1, nil, 1), dataEvent(at(1), model.SpanIdPtr(1)))

		node, _ := tree.Node(1)
		assert.Len(t, node.Events, 1)
		assert.Empty(t, tree.OrphanEvents())
	})

	t.Run("should drop an event whose parent span is unknown", func(t *testing.T) {
		tree := newTestTree()
		ingestAll(tree, createSpan(at(0), 1, nil, 1), dataEvent(at(1), model.SpanIdPtr(42)))

		node, _ := tree.Node(1)
		assert.Empty(t, node.Events)
		assert.Empty(t, tree.OrphanEvents())
		assert.Equal(t, []model.AnomalyKind{model.UnknownReference}, diagnosticKinds(tree))
	})
}

func TestSpanTree_Diagnostics(t *testing.T) {
	t.Run("should call listeners with the diagnostic details", func(t *testing.T) {
		tree := newTestTree()
		var received []model.Diagnostic
		tree.OnDiagnostic(func(diagnostic model.Diagnostic) {
			received = append(received, diagnostic)
		})
		tree.Ingest(exit(at(4), 8))

		require.Len(t, received, 1)
		assert.Equal(t, model.UnknownReference, received[0].Kind)
		assert.Equal(t, model.ExitSpanKind, received[0].MessageKind)
		assert.Equal(t, model.SpanId(8), received[0].SpanId)
		assert.Equal(t, at(4), received[0].Time)
	})
}

func TestSpanTree_MonotonicGrowth(t *testing.T) {
	t.Run("should never lose callsites or spans", func(t *testing.T) {
		tree := newTestTree()
		messages := []model.Message{
			registerCallsite(at(0), 1, "a"),
			createSpan(at(1), 1, nil, 1),
			registerCallsite(at(2), 1, "renamed"),
			createSpan(at(3), 1, model.SpanIdPtr(5), 1),
			destroy(at(4), 1),
			createSpan(at(5), 2, nil, 2),
			exit(at(6), 3),
			registerCallsite(at(7), 2, "b"),
		}
		callsites, spans := 0, 0
		for _, message := range messages {
			tree.Ingest(message)
			assert.GreaterOrEqual(t, tree.CallsiteCount(), callsites)
			assert.GreaterOrEqual(t, tree.SpanCount(), spans)
			callsites, spans = tree.CallsiteCount(), tree.SpanCount()
		}
		assert.Equal(t, 2, callsites)
		assert.Equal(t, 2, spans)
	})
}
