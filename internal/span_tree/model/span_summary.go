package model

// SpanSummary is the detail view of one span, with every reference already resolved to text.
type SpanSummary struct {
	Id              SpanId           `json:"id"`
	Name            string           `json:"name"`
	MissingCallsite bool             `json:"missing_callsite"`
	Level           Level            `json:"level,omitempty"`
	Location        string           `json:"location,omitempty"`
	Ancestry        string           `json:"ancestry"`
	Follows         string           `json:"follows,omitempty"`
	Lifetime        string           `json:"lifetime"`
	Intervals       []string         `json:"intervals"`
	Children        []SpanId         `json:"children"`
	Events          []TimedDataEvent `json:"events"`
}

const (
	MissingSpan     = "Missing span"
	MissingCallsite = "Missing callsite"
	RootAncestry    = "(root)"
)
