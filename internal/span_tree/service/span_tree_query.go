package service

import (
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"sort"
	"strings"
)

const AncestrySeparator = " ➡ "

// A Visitor's Visit method is invoked for each span reached by Walk.
// If the result of Visit is not nil, Walk visits each of the node's children with it.
type Visitor interface {
	Visit(depth int, node *model.SpanNode) Visitor
}

type ChildOrder int

const (
	InsertionOrder ChildOrder = iota
	BySpanId
	ByFirstEntered
)

// SpanName is the name of the span's callsite, or the span id when either is unknown.
func (st *SpanTree) SpanName(id model.SpanId) string {
	node, ok := st.nodes[id]
	if !ok {
		return id.String()
	}
	callsite, ok := st.callsites[node.Span.CallsiteId]
	if !ok {
		return id.String()
	}
	return callsite.Name
}

// SpanAncestry renders the structural parent chain of id, root first. The walk stops at a
// span without a parent, at a parent that was never created, or when a span repeats.
func (st *SpanTree) SpanAncestry(id model.SpanId) string {
	ancestry := []string{st.SpanName(id)}
	visited := map[model.SpanId]struct{}{id: {}}
	current := id
	for {
		node, ok := st.nodes[current]
		if !ok || node.Span.ParentSpanId == nil {
			break
		}
		parent := *node.Span.ParentSpanId
		if _, seen := visited[parent]; seen {
			break
		}
		visited[parent] = struct{}{}
		ancestry = append(ancestry, st.SpanName(parent))
		current = parent
	}

	for i, j := 0, len(ancestry)-1; i < j; i, j = i+1, j-1 {
		ancestry[i], ancestry[j] = ancestry[j], ancestry[i]
	}
	return strings.Join(ancestry, AncestrySeparator)
}

// Node gives read access to the runtime record of a span. The node must not be modified.
func (st *SpanTree) Node(id model.SpanId) (*model.SpanNode, bool) {
	node, ok := st.nodes[id]
	return node, ok
}

func (st *SpanTree) Callsite(id model.CallsiteId) (model.Callsite, bool) {
	callsite, ok := st.callsites[id]
	return callsite, ok
}

func (st *SpanTree) Roots() []model.SpanId {
	return append([]model.SpanId{}, st.roots...)
}

func (st *SpanTree) Children(id model.SpanId) []model.SpanId {
	node, ok := st.nodes[id]
	if !ok {
		return nil
	}
	return append([]model.SpanId{}, node.Children...)
}

// SortedRoots and SortedChildren give presentation layers a deterministic traversal order.
func (st *SpanTree) SortedRoots(order ChildOrder) []model.SpanId {
	return st.sortSpanIds(st.Roots(), order)
}

func (st *SpanTree) SortedChildren(id model.SpanId, order ChildOrder) []model.SpanId {
	return st.sortSpanIds(st.Children(id), order)
}

func (st *SpanTree) OrphanEvents() []model.TimedDataEvent {
	return append([]model.TimedDataEvent{}, st.orphanEvents...)
}

func (st *SpanTree) Diagnostics() []model.Diagnostic {
	return append([]model.Diagnostic{}, st.diagnostics...)
}

// SpanIds lists every created span, reachable or not, in ascending order.
func (st *SpanTree) SpanIds() []model.SpanId {
	ids := make([]model.SpanId, 0, len(st.nodes))
	for id := range st.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (st *SpanTree) CallsiteCount() int {
	return len(st.callsites)
}

func (st *SpanTree) SpanCount() int {
	return len(st.nodes)
}

// Walk traverses every span reachable from the roots depth-first, in the given order.
// A span listed under several parents is visited under each of them. Spans whose parent
// was unknown at creation are not reachable.
func (st *SpanTree) Walk(v Visitor, order ChildOrder) {
	path := make(map[model.SpanId]struct{})
	for _, root := range st.SortedRoots(order) {
		st.walk(v, root, 0, order, path)
	}
}

func (st *SpanTree) walk(
	v Visitor,
	id model.SpanId,
	depth int,
	order ChildOrder,
	path map[model.SpanId]struct{},
) {
	// path holds the ancestors of id on the current branch only
	if _, onPath := path[id]; onPath {
		return
	}
	node, ok := st.nodes[id]
	if !ok {
		return
	}
	next := v.Visit(depth, node)
	if next == nil {
		return
	}
	path[id] = struct{}{}
	for _, child := range st.SortedChildren(id, order) {
		st.walk(next, child, depth+1, order, path)
	}
	delete(path, id)
}

// SpanSummary resolves everything a detail view shows for one span.
func (st *SpanTree) SpanSummary(id model.SpanId) (model.SpanSummary, bool) {
	node, ok := st.nodes[id]
	if !ok {
		return model.SpanSummary{Id: id, Name: model.MissingSpan}, false
	}

	summary := model.SpanSummary{
		Id:        id,
		Name:      st.SpanName(id),
		Lifetime:  node.Lifetime.String(),
		Intervals: make([]string, len(node.Intervals)),
		Children:  append([]model.SpanId{}, node.Children...),
		Events:    append([]model.TimedDataEvent{}, node.Events...),
	}
	if callsite, ok := st.callsites[node.Span.CallsiteId]; ok {
		summary.Level = callsite.Level
		summary.Location = callsite.Location
	} else {
		summary.MissingCallsite = true
	}
	if node.Span.ParentSpanId != nil {
		summary.Ancestry = st.SpanAncestry(*node.Span.ParentSpanId) + AncestrySeparator + "(this span)"
	} else {
		summary.Ancestry = model.RootAncestry
	}
	if node.Follows != nil {
		summary.Follows = st.SpanName(*node.Follows)
	}
	for i, interval := range node.Intervals {
		summary.Intervals[i] = interval.String()
	}
	return summary, true
}

func (st *SpanTree) sortSpanIds(ids []model.SpanId, order ChildOrder) []model.SpanId {
	switch order {
	case BySpanId:
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	case ByFirstEntered:
		sort.SliceStable(ids, func(i, j int) bool {
			return st.firstEnteredNanos(ids[i]) < st.firstEnteredNanos(ids[j])
		})
	}
	return ids
}

// firstEnteredNanos falls back to the creation time for spans that were never entered.
func (st *SpanTree) firstEnteredNanos(id model.SpanId) int64 {
	node, ok := st.nodes[id]
	if !ok {
		return 0
	}
	for _, interval := range node.Intervals {
		if interval.Entered != nil {
			return interval.Entered.UnixNano()
		}
	}
	if node.Lifetime.Entered != nil {
		return node.Lifetime.Entered.UnixNano()
	}
	return 0
}
