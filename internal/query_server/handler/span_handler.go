package handler

import (
	"github.com/Avi18971911/SpanTree/internal/render"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"github.com/Avi18971911/SpanTree/internal/span_tree/service"
	"go.uber.org/zap"
	"net/http"
)

// SpanTreeReader is the read side of a session.
type SpanTreeReader interface {
	View(fn func(tree *service.SpanTree))
	SpanAncestry(id model.SpanId) string
}

// RootsHandler creates a handler listing the summaries of every root span.
// @Summary List root spans.
// @Tags spans
// @Produce json
// @Param order query string false "id, entered or insertion"
// @Success 200 {object} SpansResponseDTO "Root spans"
// @Failure 400 {object} ErrorMessage "Invalid order"
// @Router /spans/roots [get]
func RootsHandler(reader SpanTreeReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug(
			"Received Roots Handler",
			zap.String("URL Path", r.URL.Path),
			zap.String("Method", r.Method),
		)
		order, err := childOrderFromRequest(r)
		if err != nil {
			HttpError(w, err.Error(), http.StatusBadRequest, logger)
			return
		}
		var res SpansResponseDTO
		reader.View(func(tree *service.SpanTree) {
			res.Spans = summariesToDTO(tree, tree.SortedRoots(order))
		})
		writeJSON(w, res, logger)
	}
}

// SpanHandler creates a handler for the detail view of one span.
// @Summary Get a span summary.
// @Tags spans
// @Produce json
// @Param id path string true "Decimal span id"
// @Success 200 {object} SpanDTO "The span"
// @Failure 400 {object} ErrorMessage "Invalid span id"
// @Failure 404 {object} ErrorMessage "Missing span"
// @Router /spans/{id} [get]
func SpanHandler(reader SpanTreeReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := spanIdFromRequest(r)
		if err != nil {
			HttpError(w, err.Error(), http.StatusBadRequest, logger)
			return
		}
		var dto SpanDTO
		var found bool
		reader.View(func(tree *service.SpanTree) {
			var summary model.SpanSummary
			summary, found = tree.SpanSummary(id)
			if found {
				dto = mapSpanSummaryToDTO(summary, tree)
			}
		})
		if !found {
			HttpError(w, model.MissingSpan, http.StatusNotFound, logger)
			return
		}
		writeJSON(w, dto, logger)
	}
}

// ChildrenHandler creates a handler listing the summaries of a span's children.
// @Summary List the children of a span.
// @Tags spans
// @Produce json
// @Param id path string true "Decimal span id"
// @Param order query string false "id, entered or insertion"
// @Success 200 {object} SpansResponseDTO "Child spans"
// @Failure 400 {object} ErrorMessage "Invalid span id or order"
// @Failure 404 {object} ErrorMessage "Missing span"
// @Router /spans/{id}/children [get]
func ChildrenHandler(reader SpanTreeReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := spanIdFromRequest(r)
		if err != nil {
			HttpError(w, err.Error(), http.StatusBadRequest, logger)
			return
		}
		order, err := childOrderFromRequest(r)
		if err != nil {
			HttpError(w, err.Error(), http.StatusBadRequest, logger)
			return
		}
		var res SpansResponseDTO
		var found bool
		reader.View(func(tree *service.SpanTree) {
			if _, found = tree.Node(id); found {
				res.Spans = summariesToDTO(tree, tree.SortedChildren(id, order))
			}
		})
		if !found {
			HttpError(w, model.MissingSpan, http.StatusNotFound, logger)
			return
		}
		writeJSON(w, res, logger)
	}
}

// AncestryHandler creates a handler for the structural ancestry of a span. Unknown spans
// resolve to their own id rather than an error.
// @Summary Get the ancestry of a span.
// @Tags spans
// @Produce json
// @Param id path string true "Decimal span id"
// @Success 200 {object} AncestryDTO "The ancestry"
// @Failure 400 {object} ErrorMessage "Invalid span id"
// @Router /spans/{id}/ancestry [get]
func AncestryHandler(reader SpanTreeReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := spanIdFromRequest(r)
		if err != nil {
			HttpError(w, err.Error(), http.StatusBadRequest, logger)
			return
		}
		writeJSON(w, AncestryDTO{Id: id.String(), Ancestry: reader.SpanAncestry(id)}, logger)
	}
}

// OrphansHandler creates a handler listing events recorded outside of any span.
// @Summary List orphan events.
// @Tags events
// @Produce json
// @Success 200 {object} EventsResponseDTO "Orphan events"
// @Router /orphans [get]
func OrphansHandler(reader SpanTreeReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var res EventsResponseDTO
		reader.View(func(tree *service.SpanTree) {
			res.Events = mapEventsToDTO(tree.OrphanEvents(), tree)
		})
		writeJSON(w, res, logger)
	}
}

// DiagnosticsHandler creates a handler listing every anomaly found so far.
// @Summary List diagnostics.
// @Tags diagnostics
// @Produce json
// @Success 200 {object} DiagnosticsResponseDTO "Diagnostics"
// @Router /diagnostics [get]
func DiagnosticsHandler(reader SpanTreeReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var res DiagnosticsResponseDTO
		reader.View(func(tree *service.SpanTree) {
			res.Diagnostics = mapDiagnosticsToDTO(tree.Diagnostics())
		})
		writeJSON(w, res, logger)
	}
}

// TreeHandler creates a handler rendering the whole tree as text.
// @Summary Render the span tree.
// @Tags spans
// @Produce plain
// @Success 200 {string} string "The rendered tree"
// @Router /tree [get]
func TreeHandler(reader SpanTreeReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var out string
		reader.View(func(tree *service.SpanTree) {
			out = render.Tree(tree)
		})
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := w.Write([]byte(out)); err != nil {
			logger.Error("Error encountered when writing tree", zap.Error(err))
		}
	}
}

func summariesToDTO(tree *service.SpanTree, ids []model.SpanId) []SpanDTO {
	dtos := make([]SpanDTO, 0, len(ids))
	for _, id := range ids {
		summary, ok := tree.SpanSummary(id)
		if !ok {
			continue
		}
		dtos = append(dtos, mapSpanSummaryToDTO(summary, tree))
	}
	return dtos
}
