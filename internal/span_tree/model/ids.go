package model

import "strconv"

type SpanId uint64

func (id SpanId) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

type CallsiteId uint64

func (id CallsiteId) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseSpanId reads the decimal form produced by SpanId.String.
func ParseSpanId(s string) (SpanId, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return SpanId(id), nil
}
