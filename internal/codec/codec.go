package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"time"
)

// envelope is the wire form of a model.Message: {"time": ..., "kind": ..., "body": {...}}.
type envelope struct {
	Time *time.Time        `json:"time"`
	Kind model.MessageKind `json:"kind"`
	Body json.RawMessage   `json:"body"`
}

type callsiteBody struct {
	Id       model.CallsiteId `json:"id"`
	Name     string           `json:"name"`
	Level    model.Level      `json:"level"`
	Location string           `json:"location"`
}

type createSpanBody struct {
	Id       model.SpanId     `json:"id"`
	Parent   *model.SpanId    `json:"parent,omitempty"`
	Callsite model.CallsiteId `json:"callsite"`
}

type spanIdBody struct {
	Id model.SpanId `json:"id"`
}

type followsBody struct {
	Id      model.SpanId `json:"id"`
	Follows model.SpanId `json:"follows"`
}

type dataEventBody struct {
	Callsite model.CallsiteId `json:"callsite"`
	Parent   *model.SpanId    `json:"parent,omitempty"`
	Fields   model.Fields     `json:"fields"`
}

func Decode(data []byte) (model.Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.Message{}, fmt.Errorf("failed to unmarshal message envelope: %w", err)
	}
	if env.Time == nil {
		return model.Message{}, ErrMissingTime
	}
	body, err := decodeBody(env.Kind, env.Body)
	if err != nil {
		return model.Message{}, err
	}
	return model.Message{Time: *env.Time, Body: body}, nil
}

func decodeBody(kind model.MessageKind, raw json.RawMessage) (model.MessageBody, error) {
	switch kind {
	case model.RegisterCallsiteKind:
		var b callsiteBody
		if err := unmarshalBody(kind, raw, &b); err != nil {
			return nil, err
		}
		return model.RegisterCallsite{
			Callsite: model.Callsite{Id: b.Id, Name: b.Name, Level: b.Level, Location: b.Location},
		}, nil
	case model.CreateSpanKind:
		var b createSpanBody
		if err := unmarshalBody(kind, raw, &b); err != nil {
			return nil, err
		}
		return model.CreateSpan{Span: model.Span{Id: b.Id, ParentSpanId: b.Parent, CallsiteId: b.Callsite}}, nil
	case model.EnterSpanKind, model.ExitSpanKind, model.DestroySpanKind:
		var b spanIdBody
		if err := unmarshalBody(kind, raw, &b); err != nil {
			return nil, err
		}
		switch kind {
		case model.EnterSpanKind:
			return model.EnterSpan{Id: b.Id}, nil
		case model.ExitSpanKind:
			return model.ExitSpan{Id: b.Id}, nil
		default:
			return model.DestroySpan{Id: b.Id}, nil
		}
	case model.RecordFollowsKind:
		var b followsBody
		if err := unmarshalBody(kind, raw, &b); err != nil {
			return nil, err
		}
		return model.RecordFollows{Id: b.Id, Follows: b.Follows}, nil
	case model.DataEventKind:
		var b dataEventBody
		if err := unmarshalBody(kind, raw, &b); err != nil {
			return nil, err
		}
		if b.Fields == nil {
			b.Fields = model.Fields{}
		}
		return model.RecordDataEvent{
			Event: model.DataEvent{CallsiteId: b.Callsite, ParentSpanId: b.Parent, Fields: b.Fields},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func unmarshalBody(kind model.MessageKind, raw json.RawMessage, target interface{}) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("%w for kind %s", ErrMissingBody, kind)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to unmarshal %s body: %w", kind, err)
	}
	return nil
}

func Encode(message model.Message) ([]byte, error) {
	if message.Body == nil {
		return nil, ErrMissingBody
	}
	var body interface{}
	switch b := message.Body.(type) {
	case model.RegisterCallsite:
		body = callsiteBody{Id: b.Callsite.Id, Name: b.Callsite.Name, Level: b.Callsite.Level, Location: b.Callsite.Location}
	case model.CreateSpan:
		body = createSpanBody{Id: b.Span.Id, Parent: b.Span.ParentSpanId, Callsite: b.Span.CallsiteId}
	case model.EnterSpan:
		body = spanIdBody{Id: b.Id}
	case model.ExitSpan:
		body = spanIdBody{Id: b.Id}
	case model.DestroySpan:
		body = spanIdBody{Id: b.Id}
	case model.RecordFollows:
		body = followsBody{Id: b.Id, Follows: b.Follows}
	case model.RecordDataEvent:
		body = dataEventBody{Callsite: b.Event.CallsiteId, Parent: b.Event.ParentSpanId, Fields: b.Event.Fields}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, message.Body)
	}

	rawBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s body: %w", message.Body.Kind(), err)
	}
	t := message.Time
	data, err := json.Marshal(envelope{Time: &t, Kind: message.Body.Kind(), Body: rawBody})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message envelope: %w", err)
	}
	return data, nil
}

var (
	ErrUnknownKind = errors.New("unknown message kind")
	ErrMissingTime = errors.New("message has no time")
	ErrMissingBody = errors.New("message has no body")
)
