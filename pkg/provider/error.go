package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ConfigError reports missing or inconsistent provider configuration. It is
// always returned before any network call is made.
type ConfigError struct {
	Provider string
	Msg      string
}

func (e *ConfigError) Error() string {
	if e.Provider == "" {
		return e.Msg
	}
	return e.Provider + ": " + e.Msg
}

// RequestError reports a malformed request (empty prompt, bad temperature).
type RequestError struct {
	Provider string
	Msg      string
}

func (e *RequestError) Error() string {
	return e.Provider + ": " + e.Msg
}

// NetworkError wraps transport failures: refused connections, DNS errors,
// timeouts.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("%s: request timed out: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline rather than a refusal.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ProviderResponseError reports a non-2xx response. Message holds the parsed
// error body when it was JSON, otherwise the status text.
type ProviderResponseError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderResponseError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s API error: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

// EmptyResponseError reports a response without any generated text.
type EmptyResponseError struct {
	Provider string
}

func (e *EmptyResponseError) Error() string {
	return e.Provider + ": response contained no text"
}

// responseError builds a ProviderResponseError, falling back to the status
// text when the body carried nothing useful.
func responseError(provider string, status int, message string) *ProviderResponseError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &ProviderResponseError{Provider: provider, StatusCode: status, Message: message}
}

// transportError wraps err as a NetworkError when it came from the transport,
// and returns nil otherwise. Cancellation by the caller is passed through.
func transportError(ctx context.Context, provider string, err error) error {
	if ctx.Err() == context.Canceled {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{Provider: provider, Err: err}
	}
	return nil
}
