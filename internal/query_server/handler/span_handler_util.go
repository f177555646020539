package handler

import (
	"errors"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"github.com/Avi18971911/SpanTree/internal/span_tree/service"
	"github.com/gorilla/mux"
	"net/http"
)

func spanIdFromRequest(r *http.Request) (model.SpanId, error) {
	raw, ok := mux.Vars(r)["id"]
	if !ok || raw == "" {
		return 0, ErrNoId
	}
	id, err := model.ParseSpanId(raw)
	if err != nil {
		return 0, ErrInvalidId
	}
	return id, nil
}

func childOrderFromRequest(r *http.Request) (service.ChildOrder, error) {
	switch r.URL.Query().Get("order") {
	case "", "id":
		return service.BySpanId, nil
	case "entered":
		return service.ByFirstEntered, nil
	case "insertion":
		return service.InsertionOrder, nil
	default:
		return 0, ErrInvalidOrder
	}
}

func mapSpanSummaryToDTO(summary model.SpanSummary, tree *service.SpanTree) SpanDTO {
	children := make([]string, len(summary.Children))
	for i, child := range summary.Children {
		children[i] = child.String()
	}
	return SpanDTO{
		Id:              summary.Id.String(),
		Name:            summary.Name,
		MissingCallsite: summary.MissingCallsite,
		Level:           string(summary.Level),
		Location:        summary.Location,
		Ancestry:        summary.Ancestry,
		Follows:         summary.Follows,
		Lifetime:        summary.Lifetime,
		Intervals:       summary.Intervals,
		Children:        children,
		Events:          mapEventsToDTO(summary.Events, tree),
	}
}

func mapEventsToDTO(events []model.TimedDataEvent, tree *service.SpanTree) []EventDTO {
	dtos := make([]EventDTO, len(events))
	for i, event := range events {
		callsite := model.MissingCallsite
		if c, ok := tree.Callsite(event.Event.CallsiteId); ok {
			callsite = c.Name
		}
		var parent string
		if event.Event.ParentSpanId != nil {
			parent = event.Event.ParentSpanId.String()
		}
		dtos[i] = EventDTO{
			Time:     event.Time,
			Callsite: callsite,
			Parent:   parent,
			Fields:   event.Event.Fields.ToMap(),
		}
	}
	return dtos
}

func mapDiagnosticsToDTO(diagnostics []model.Diagnostic) []DiagnosticDTO {
	dtos := make([]DiagnosticDTO, len(diagnostics))
	for i, diagnostic := range diagnostics {
		dtos[i] = DiagnosticDTO{
			Kind:        string(diagnostic.Kind),
			MessageKind: string(diagnostic.MessageKind),
			Time:        diagnostic.Time,
			SpanId:      diagnostic.SpanId.String(),
			Message:     diagnostic.Message,
		}
	}
	return dtos
}

var (
	ErrNoId         = errors.New("no span id provided")
	ErrInvalidId    = errors.New("span id must be an unsigned decimal integer")
	ErrInvalidOrder = errors.New("order must be one of id, entered or insertion")
)
