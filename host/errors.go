package host

import (
	"errors"
	"fmt"
)

var (
	// ErrExportNotFound is returned when a guest does not export a required function.
	ErrExportNotFound = errors.New("host: export not found")

	// ErrNullFrame is returned when a guest export returns address 0.
	ErrNullFrame = errors.New("host: guest returned a null frame")

	// ErrRequestTooLarge is returned when a payload exceeds the configured limit.
	ErrRequestTooLarge = errors.New("host: request too large")

	// ErrNoMemory is returned when a guest does not export its linear memory.
	ErrNoMemory = errors.New("host: guest does not export memory")
)

// Call phases reported in CallError.
const (
	PhaseLookup   = "lookup"
	PhaseAllocate = "allocate"
	PhaseWrite    = "write"
	PhaseInvoke   = "invoke"
	PhaseRead     = "read"
	PhaseFree     = "free"
	PhaseDecode   = "decode"
)

// CallError describes a failed boundary call.
type CallError struct {
	Err    error
	Export string
	Phase  string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("host: call %q failed during %s: %v", e.Export, e.Phase, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// ManifestError is returned when a manifest cannot be parsed or fails validation.
type ManifestError struct {
	Err    error
	Fields []FieldError
}

// FieldError is one failed manifest constraint.
type FieldError struct {
	Field   string
	Message string
}

func (e *ManifestError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("host: invalid manifest: %v", e.Err)
	}
	msg := "host: manifest validation failed:"
	for _, f := range e.Fields {
		msg += fmt.Sprintf("\n- %s: %s", f.Field, f.Message)
	}
	return msg
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}
