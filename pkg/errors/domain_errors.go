package errors

import (
	"errors"
	"fmt"
)

// Domain enumerates the stages of the artifact lifecycle an error can come from.
type Domain string

const (
	DomainBuild  Domain = "build"
	DomainDeploy Domain = "deploy"
	DomainStatus Domain = "status"
)

// Code enumerates possible error codes for each domain
type Code string

// Build error codes
const (
	CodeToolchainFailure   Code = "toolchain_failure"
	CodeNoArtifactProduced Code = "no_artifact_produced"
	CodeIOFailure          Code = "io_failure"
	CodeInvalidOptions     Code = "invalid_options"
)

// Network error codes, shared by deploy and status
const (
	CodeConnectionFailure  Code = "connection_failure"
	CodeSubmissionRejected Code = "submission_rejected"
	CodeQueryFailure       Code = "query_failure"
)

// DomainError represents a lifecycle error. The diagnostic text of the
// underlying failure (toolchain stderr, transport error, ledger message) is
// kept in Message or Cause and is never dropped.
type DomainError struct {
	// The lifecycle stage (build, deploy, status)
	ErrDomain Domain

	// Error code unique within the domain
	ErrCode Code

	// Human-readable error message
	Message string

	// Optional context
	Identity string
	Path     string
	Endpoint string

	// Original error that caused this one, if any
	Cause error
}

// Error returns the error message.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.ErrDomain, e.ErrCode, e.Message)

	if e.Identity != "" {
		msg = fmt.Sprintf("%s (program: %s)", msg, e.Identity)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (path: %s)", msg, e.Path)
	}
	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s (endpoint: %s)", msg, e.Endpoint)
	}

	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}

	return msg
}

// Unwrap returns the cause of this error
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches another DomainError with the same domain and code, so the
// sentinels below work with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.ErrDomain == t.ErrDomain && e.ErrCode == t.ErrCode
}

// New creates a new DomainError.
func New(domain Domain, code Code, message string) *DomainError {
	return &DomainError{
		ErrDomain: domain,
		ErrCode:   code,
		Message:   message,
	}
}

// Wrap wraps an error with domain context.
func Wrap(domain Domain, code Code, message string, err error) *DomainError {
	return &DomainError{
		ErrDomain: domain,
		ErrCode:   code,
		Message:   message,
		Cause:     err,
	}
}

// The With* methods return a copy, so they are safe on the package sentinels.

// WithIdentity adds program identity context to the error
func (e *DomainError) WithIdentity(id fmt.Stringer) *DomainError {
	c := *e
	c.Identity = id.String()
	return &c
}

// WithPath adds filesystem context to the error
func (e *DomainError) WithPath(path string) *DomainError {
	c := *e
	c.Path = path
	return &c
}

// WithEndpoint adds endpoint context to the error
func (e *DomainError) WithEndpoint(endpoint string) *DomainError {
	c := *e
	c.Endpoint = endpoint
	return &c
}

// Is checks if an error is a DomainError with the specified domain and code.
func Is(err error, domain Domain, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.ErrDomain == domain && de.ErrCode == code
	}
	return false
}

// HasCode checks the code regardless of domain. Connection failures occur in
// both deploy and status.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.ErrCode == code
	}
	return false
}

// Build errors
var (
	ErrToolchainFailure   = New(DomainBuild, CodeToolchainFailure, "toolchain failed")
	ErrNoArtifactProduced = New(DomainBuild, CodeNoArtifactProduced, "no compiled program found")
	ErrIOFailure          = New(DomainBuild, CodeIOFailure, "failed to read build output")
	ErrInvalidOptions     = New(DomainBuild, CodeInvalidOptions, "invalid build options")
)

// Deploy errors
var (
	ErrDeployConnectionFailure = New(DomainDeploy, CodeConnectionFailure, "cannot reach ledger endpoint")
	ErrSubmissionRejected      = New(DomainDeploy, CodeSubmissionRejected, "ledger rejected the program")
)

// Status errors
var (
	ErrStatusConnectionFailure = New(DomainStatus, CodeConnectionFailure, "cannot reach ledger endpoint")
	ErrQueryFailure            = New(DomainStatus, CodeQueryFailure, "account query failed")
)
