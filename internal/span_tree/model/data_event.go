package model

import "time"

type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Fields keeps the order the producer logged them in, for display.
type Fields []Field

func (f Fields) Get(key string) (string, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

func (f Fields) ToMap() map[string]string {
	m := make(map[string]string, len(f))
	for _, field := range f {
		m[field.Key] = field.Value
	}
	return m
}

type DataEvent struct {
	CallsiteId   CallsiteId `json:"callsite_id"`
	ParentSpanId *SpanId    `json:"parent_span_id,omitempty"`
	Fields       Fields     `json:"fields"`
}

type TimedDataEvent struct {
	Time  time.Time `json:"time"`
	Event DataEvent `json:"event"`
}
