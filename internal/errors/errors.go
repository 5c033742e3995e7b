// Package errors provides error types and handling for the coverage pipeline.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"syscall"
)

// ErrorType categorizes errors for handling decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// Network represents network-related errors (DNS, connection).
	Network
	// Timeout represents timeout errors.
	Timeout
	// NotFound represents 404 errors.
	NotFound
	// ServerError represents 5xx errors.
	ServerError
	// ClientError represents 4xx errors other than 404.
	ClientError
	// Parse represents a source that does not match its expected grammar.
	Parse
	// Structure represents a document whose shape broke an extractor assumption.
	Structure
	// AmbiguousRename represents a rename with more than one candidate.
	AmbiguousRename
	// Mismatch represents sources disagreeing about the same endpoint.
	Mismatch
	// Config represents invalid configuration.
	Config
	// Cancelled represents context cancellation.
	Cancelled
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case Network:
		return "network"
	case Timeout:
		return "timeout"
	case NotFound:
		return "not_found"
	case ServerError:
		return "server_error"
	case ClientError:
		return "client_error"
	case Parse:
		return "parse"
	case Structure:
		return "structure"
	case AmbiguousRename:
		return "ambiguous_rename"
	case Mismatch:
		return "mismatch"
	case Config:
		return "config"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsFetchFailure reports whether errors of this type come from fetching a
// source rather than from interpreting it.
func (t ErrorType) IsFetchFailure() bool {
	switch t {
	case Network, Timeout, NotFound, ServerError, ClientError:
		return true
	default:
		return false
	}
}

// CoverageError is a categorized pipeline error.
type CoverageError struct {
	Type       ErrorType
	Source     string
	Key        string
	Operation  string
	Message    string
	Cause      error
	StatusCode int
}

// Error implements the error interface.
func (e *CoverageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error during %s", e.Type.String(), e.Operation)
	if e.Source != "" {
		fmt.Fprintf(&b, " on %s", e.Source)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " [%s]", e.Key)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *CoverageError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target.
func (e *CoverageError) Is(target error) bool {
	t, ok := target.(*CoverageError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewCoverageError creates a new CoverageError.
func NewCoverageError(errType ErrorType, source, operation, message string, cause error) *CoverageError {
	return &CoverageError{
		Type:      errType,
		Source:    source,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// WithKey returns the error annotated with an endpoint key.
func (e *CoverageError) WithKey(key string) *CoverageError {
	e.Key = key
	return e
}

// NewNetworkError creates a network error.
func NewNetworkError(source, operation string, cause error) *CoverageError {
	return NewCoverageError(Network, source, operation, "network failure", cause)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(source, operation string, cause error) *CoverageError {
	return NewCoverageError(Timeout, source, operation, "request timed out", cause)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(source string) *CoverageError {
	err := NewCoverageError(NotFound, source, "fetch", "source not found", nil)
	err.StatusCode = 404
	return err
}

// NewServerError creates a server error.
func NewServerError(source string, statusCode int, message string) *CoverageError {
	err := NewCoverageError(ServerError, source, "fetch", message, nil)
	err.StatusCode = statusCode
	return err
}

// NewClientError creates a client error.
func NewClientError(source string, statusCode int, message string) *CoverageError {
	err := NewCoverageError(ClientError, source, "fetch", message, nil)
	err.StatusCode = statusCode
	return err
}

// NewParseError creates a parse error.
func NewParseError(source, operation string, cause error) *CoverageError {
	return NewCoverageError(Parse, source, operation, "parsing failed", cause)
}

// NewStructureError creates an error for a document that no longer has the
// shape an extractor relies on.
func NewStructureError(source, key, message string) *CoverageError {
	err := NewCoverageError(Structure, source, "extract", message, nil)
	err.Key = key
	return err
}

// NewAmbiguousRenameError creates an error for a rename that cannot be
// decided automatically.
func NewAmbiguousRenameError(source, key, message string) *CoverageError {
	err := NewCoverageError(AmbiguousRename, source, "rename", message, nil)
	err.Key = key
	return err
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *CoverageError {
	return NewCoverageError(Config, "", "config", message, cause)
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(source, operation string) *CoverageError {
	return NewCoverageError(Cancelled, source, operation, "operation cancelled", nil)
}

// URIMismatch is one endpoint whose sources disagree on the URI.
type URIMismatch struct {
	Key      string
	Left     string
	LeftURI  string
	Right    string
	RightURI string
}

// String formats the mismatch for logs.
func (m URIMismatch) String() string {
	return fmt.Sprintf("%s: %s: %s, %s: %s", m.Key, m.Left, m.LeftURI, m.Right, m.RightURI)
}

// MismatchError reports every URI disagreement found in one sweep.
type MismatchError struct {
	Mismatches []URIMismatch
}

// NewMismatchError creates a MismatchError with mismatches sorted by key.
func NewMismatchError(mismatches []URIMismatch) *MismatchError {
	sorted := append([]URIMismatch(nil), mismatches...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return &MismatchError{Mismatches: sorted}
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	lines := make([]string, 0, len(e.Mismatches)+1)
	lines = append(lines, fmt.Sprintf("%d endpoint(s) disagree between sources:", len(e.Mismatches)))
	for _, m := range e.Mismatches {
		lines = append(lines, "  "+m.String())
	}
	return strings.Join(lines, "\n")
}

// Is matches any CoverageError of type Mismatch.
func (e *MismatchError) Is(target error) bool {
	t, ok := target.(*CoverageError)
	return ok && t.Type == Mismatch
}

// Categorize determines the error type from a generic error.
func Categorize(err error, source string) *CoverageError {
	if err == nil {
		return nil
	}

	// Already a CoverageError
	var covErr *CoverageError
	if errors.As(err, &covErr) {
		return covErr
	}

	if errors.Is(err, context.Canceled) {
		return NewCancelledError(source, "fetch")
	}

	if isTimeout(err) {
		return NewTimeoutError(source, "fetch", err)
	}

	if isNetworkError(err) {
		return NewNetworkError(source, "fetch", err)
	}

	return NewCoverageError(Unknown, source, "fetch", err.Error(), err)
}

// CategorizeHTTPStatus creates an error from HTTP status code.
func CategorizeHTTPStatus(statusCode int, source string) *CoverageError {
	switch {
	case statusCode == 404:
		return NewNotFoundError(source)
	case statusCode >= 500:
		return NewServerError(source, statusCode, fmt.Sprintf("server returned %d", statusCode))
	case statusCode >= 400:
		return NewClientError(source, statusCode, fmt.Sprintf("client error %d", statusCode))
	default:
		return nil
	}
}

// isTimeout checks if an error is a timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp")
}

// GetErrorType extracts the error type from an error.
func GetErrorType(err error) ErrorType {
	var covErr *CoverageError
	if errors.As(err, &covErr) {
		return covErr.Type
	}
	var mismatch *MismatchError
	if errors.As(err, &mismatch) {
		return Mismatch
	}
	return Unknown
}

// GetStatusCode extracts the status code from an error.
func GetStatusCode(err error) int {
	var covErr *CoverageError
	if errors.As(err, &covErr) {
		return covErr.StatusCode
	}
	return 0
}
