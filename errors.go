package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// The error types below partition every request-level failure the proxy can
// produce. They are all recoverable: a failed call answers its own caller and
// leaves the process and other in-flight requests untouched.

// ConfigurationError indicates a missing or malformed connection parameter.
// It is produced before any Jenkins call is attempted.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required parameter %q", e.Param)
	}
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

// AuthenticationError indicates Jenkins rejected the supplied credentials.
type AuthenticationError struct {
	Status int
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("jenkins rejected credentials (status %d)", e.Status)
}

// NotFoundError indicates the referenced Jenkins resource does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// NetworkError indicates a transport failure reaching Jenkins.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError covers every other non-2xx answer from Jenkins.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("jenkins api returned status %d: %s", e.Status, e.Body)
}

const maxErrorBodyBytes = 2048

// statusError maps a received HTTP response to the error taxonomy. A 2xx
// status maps to nil. The resource string names what was being fetched and
// ends up in NotFoundError messages, e.g. `job "deploy" build #4`.
func statusError(resp *http.Response, resource string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthenticationError{Status: resp.StatusCode}
	case http.StatusNotFound:
		return &NotFoundError{Resource: resource}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// errorKind returns the taxonomy label for err, used in logs and metrics.
func errorKind(err error) string {
	if err == nil {
		return "success"
	}
	{
		var e *ConfigurationError
		if errors.As(err, &e) {
			return "configuration"
		}
	}
	{
		var e *AuthenticationError
		if errors.As(err, &e) {
			return "authentication"
		}
	}
	{
		var e *NotFoundError
		if errors.As(err, &e) {
			return "not_found"
		}
	}
	{
		var e *NetworkError
		if errors.As(err, &e) {
			return "network"
		}
	}
	{
		var e *UpstreamError
		if errors.As(err, &e) {
			return "upstream"
		}
	}
	return "internal"
}
