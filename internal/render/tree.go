package render

import (
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"github.com/Avi18971911/SpanTree/internal/span_tree/service"
	"github.com/xlab/treeprint"
	"strings"
)

const orphanBranchName = "events outside of any span"

// Tree renders every span reachable from the roots, ordered by span id, followed by the
// events that arrived outside of any span.
func Tree(tree *service.SpanTree) string {
	root := treeprint.New()
	tree.Walk(&treeVisitor{tree: tree, branch: root}, service.BySpanId)

	if orphans := tree.OrphanEvents(); len(orphans) > 0 {
		branch := root.AddBranch(orphanBranchName)
		for _, event := range orphans {
			branch.AddNode(eventLabel(tree, event))
		}
	}
	return root.String()
}

// Diagnostics lists anomalies in the order they were raised, one per line.
func Diagnostics(diagnostics []model.Diagnostic) string {
	var sb strings.Builder
	for _, diagnostic := range diagnostics {
		sb.WriteString(fmt.Sprintf(
			"%s %s [%s] %s\n",
			model.FormatTime(diagnostic.Time),
			diagnostic.Kind,
			diagnostic.MessageKind,
			diagnostic.Message,
		))
	}
	return sb.String()
}

type treeVisitor struct {
	tree   *service.SpanTree
	branch treeprint.Tree
}

func (v *treeVisitor) Visit(_ int, node *model.SpanNode) service.Visitor {
	branch := v.branch.AddBranch(spanLabel(v.tree, node))
	if node.Follows != nil {
		branch.AddNode("follows " + v.tree.SpanName(*node.Follows))
	}
	for _, interval := range node.Intervals {
		branch.AddNode("entered " + interval.String())
	}
	for _, event := range node.Events {
		branch.AddNode(eventLabel(v.tree, event))
	}
	return &treeVisitor{tree: v.tree, branch: branch}
}

func spanLabel(tree *service.SpanTree, node *model.SpanNode) string {
	label := fmt.Sprintf("%s %s", tree.SpanName(node.Span.Id), node.Lifetime.String())
	if callsite, ok := tree.Callsite(node.Span.CallsiteId); ok && callsite.Level != "" {
		label = fmt.Sprintf("%s (%s)", label, callsite.Level)
	}
	return label
}

func eventLabel(tree *service.SpanTree, event model.TimedDataEvent) string {
	name := model.MissingCallsite
	if callsite, ok := tree.Callsite(event.Event.CallsiteId); ok {
		name = callsite.Name
	}
	parts := []string{model.FormatTime(event.Time), name}
	for _, field := range event.Event.Fields {
		parts = append(parts, field.Key+"="+field.Value)
	}
	return strings.Join(parts, " ")
}
