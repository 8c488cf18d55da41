package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnavailable wraps every failure to obtain a usable answer from the oracle.
var ErrUnavailable = errors.New("oracle unavailable")

// GenerateRequest is one prompt sent to a text-generation model.
type GenerateRequest struct {
	Model  string
	Prompt string
	// JSON asks the provider to constrain output to a JSON document.
	JSON bool
}

// Provider is a text-generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// StatusError is a non-2xx answer from a provider endpoint.
type StatusError struct {
	Provider string
	Model    string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s model %s status %d: %s", e.Provider, e.Model, e.Code, msg)
}

// Retryable reports rate limiting or temporary overload.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code == http.StatusServiceUnavailable
}

// ModelMissing reports that the requested model does not exist on the endpoint.
func (e *StatusError) ModelMissing() bool {
	if e.Code == http.StatusNotFound {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "is not found") || strings.Contains(msg, "not supported for generatecontent")
}

// ServerError reports a 5xx answer.
func (e *StatusError) ServerError() bool {
	return e.Code >= 500
}
