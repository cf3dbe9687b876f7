package handler

import "fmt"

// Adapter flavors, as reported in HandlerError.
const (
	FlavorBytes        = "bytes"
	FlavorString       = "string"
	FlavorLoggedString = "logged-string"
)

// HandlerError wraps an error returned by injected business logic.
type HandlerError struct {
	Err    error
	Flavor string
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler: %s handler failed: %v", e.Flavor, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// RequestTooLargeError is returned when a request exceeds the adapter's limit.
type RequestTooLargeError struct {
	Size  uint32
	Limit uint32
}

func (e *RequestTooLargeError) Error() string {
	return fmt.Sprintf("handler: request size %d exceeds maximum %d bytes", e.Size, e.Limit)
}

// ValidationError is returned when a typed request fails its validation tags.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("handler: request validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
