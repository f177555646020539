package model

type Level string

const (
	TraceLevel Level = "trace"
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Callsite describes one instrumentation point in the traced program.
type Callsite struct {
	Id       CallsiteId `json:"id"`
	Name     string     `json:"name"`
	Level    Level      `json:"level"`
	Location string     `json:"location"`
}
