package tts

import (
	"fmt"
	"net/http"
)

// Stable machine-readable error codes. Clients branch on these instead of
// matching message text, so the values never change.
const (
	CodeUnknown             = 0
	CodeUnknownVoice        = 1
	CodeAudioTooLong        = 2
	CodeInvalidSpeakingRate = 3
	CodeUnauthorized        = 4
)

// RequestError is a client-caused failure. Its message is safe to return
// verbatim in the error envelope.
type RequestError struct {
	Code    int
	Status  int
	Message string
}

func (e *RequestError) Error() string { return e.Message }

var (
	ErrAudioTooLong = &RequestError{
		Code:    CodeAudioTooLong,
		Status:  http.StatusBadRequest,
		Message: "Max length exceeded!",
	}

	ErrUnauthorized = &RequestError{
		Code:    CodeUnauthorized,
		Status:  http.StatusForbidden,
		Message: "Unauthorized request",
	}
)

func NewInvalidSpeakingRate(rate float64) *RequestError {
	return &RequestError{
		Code:    CodeInvalidSpeakingRate,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Invalid speaking rate: %v", rate),
	}
}

func NewUnknownVoice(voice string) *RequestError {
	return &RequestError{
		Code:    CodeUnknownVoice,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Unknown voice: %s", voice),
	}
}

// BackendError is a server-caused provider failure. The wrapped cause is for
// logs only and never reaches the client.
type BackendError struct {
	Mode TTSMode
	Op   string // "synthesize", "voices", ...
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Mode, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
