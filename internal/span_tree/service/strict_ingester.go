package service

import (
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"go.uber.org/multierr"
)

// StrictIngester turns the diagnostics raised by a single Ingest call into an error.
// The tree is still updated exactly as SpanTree.Ingest would.
type StrictIngester struct {
	tree    *SpanTree
	pending []error
}

func NewStrictIngester(tree *SpanTree) *StrictIngester {
	si := &StrictIngester{tree: tree}
	tree.OnDiagnostic(func(diagnostic model.Diagnostic) {
		si.pending = append(si.pending, diagnostic)
	})
	return si
}

func (si *StrictIngester) Ingest(message model.Message) error {
	si.pending = nil
	si.tree.Ingest(message)
	err := multierr.Combine(si.pending...)
	si.pending = nil
	return err
}
