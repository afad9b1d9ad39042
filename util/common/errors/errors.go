package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages
var (
	ErrSecretNotFound  = errors.New("secret not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotRepository   = errors.New("not a git repository")
)

// ConfigurationError reports an unresolvable pipeline parameter.
// It aborts the run before any side effect takes place.
type ConfigurationError struct {
	Param   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("configuration error for parameter %q: %s", e.Param, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(param, message string) error {
	return &ConfigurationError{
		Param:   param,
		Message: message,
	}
}

// EnvironmentProvisioningError reports a failure while preparing the
// build environment. There is no partial-environment fallback.
type EnvironmentProvisioningError struct {
	Stage   string
	Wrapped error
}

func (e *EnvironmentProvisioningError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("provisioning build environment failed at %s: %v", e.Stage, e.Wrapped)
	}
	return fmt.Sprintf("provisioning build environment failed at %s", e.Stage)
}

func (e *EnvironmentProvisioningError) Unwrap() error {
	return e.Wrapped
}

// NewEnvironmentProvisioningError creates a new EnvironmentProvisioningError
func NewEnvironmentProvisioningError(stage string, wrapped error) error {
	return &EnvironmentProvisioningError{
		Stage:   stage,
		Wrapped: wrapped,
	}
}

// ArchivalError reports a filesystem-level failure during license
// archiving (missing cache root, unwritable output path). Fatal.
type ArchivalError struct {
	Op      string
	Path    string
	Wrapped error
}

func (e *ArchivalError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("license archival %s failed on %s: %v", e.Op, e.Path, e.Wrapped)
	}
	return fmt.Sprintf("license archival %s failed on %s", e.Op, e.Path)
}

func (e *ArchivalError) Unwrap() error {
	return e.Wrapped
}

// NewArchivalError creates a new ArchivalError
func NewArchivalError(op, path string, wrapped error) error {
	return &ArchivalError{
		Op:      op,
		Path:    path,
		Wrapped: wrapped,
	}
}

// DependencyNotFoundError marks an expected dependency source that was
// absent from the package cache. Non-fatal: the archiver records and
// logs it, the run continues.
type DependencyNotFoundError struct {
	Dependency string
	Root       string
}

func (e *DependencyNotFoundError) Error() string {
	return fmt.Sprintf("no source directory matching %q under %s", e.Dependency, e.Root)
}

// NewDependencyNotFoundError creates a new DependencyNotFoundError
func NewDependencyNotFoundError(dependency, root string) error {
	return &DependencyNotFoundError{
		Dependency: dependency,
		Root:       root,
	}
}

// VersionDerivationError reports a failed or empty version query
// against the build environment. Fatal: blocks every downstream step.
type VersionDerivationError struct {
	Message string
	Wrapped error
}

func (e *VersionDerivationError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("version derivation failed: %s: %v", e.Message, e.Wrapped)
	}
	return fmt.Sprintf("version derivation failed: %s", e.Message)
}

func (e *VersionDerivationError) Unwrap() error {
	return e.Wrapped
}

// NewVersionDerivationError creates a new VersionDerivationError
func NewVersionDerivationError(message string, wrapped error) error {
	return &VersionDerivationError{
		Message: message,
		Wrapped: wrapped,
	}
}

// BuildFailure reports a non-zero exit from the build entry point.
// Fatal, aborts before publication.
type BuildFailure struct {
	ExitCode int
	Wrapped  error
}

func (e *BuildFailure) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("build failed with exit code %d: %v", e.ExitCode, e.Wrapped)
	}
	return fmt.Sprintf("build failed with exit code %d", e.ExitCode)
}

func (e *BuildFailure) Unwrap() error {
	return e.Wrapped
}

// NewBuildFailure creates a new BuildFailure
func NewBuildFailure(exitCode int, wrapped error) error {
	return &BuildFailure{
		ExitCode: exitCode,
		Wrapped:  wrapped,
	}
}

// ChangelogGenerationError reports a missing token or a failed
// changelog tool invocation.
type ChangelogGenerationError struct {
	Message string
	Wrapped error
}

func (e *ChangelogGenerationError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("changelog generation failed: %s: %v", e.Message, e.Wrapped)
	}
	return fmt.Sprintf("changelog generation failed: %s", e.Message)
}

func (e *ChangelogGenerationError) Unwrap() error {
	return e.Wrapped
}

// NewChangelogGenerationError creates a new ChangelogGenerationError
func NewChangelogGenerationError(message string, wrapped error) error {
	return &ChangelogGenerationError{
		Message: message,
		Wrapped: wrapped,
	}
}

// PublicationError reports a failed transfer of a single object or
// image. The publisher attempts every transfer and joins the failures.
type PublicationError struct {
	Object  string
	Wrapped error
}

func (e *PublicationError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("publication of %s failed: %v", e.Object, e.Wrapped)
	}
	return fmt.Sprintf("publication of %s failed", e.Object)
}

func (e *PublicationError) Unwrap() error {
	return e.Wrapped
}

// NewPublicationError creates a new PublicationError
func NewPublicationError(object string, wrapped error) error {
	return &PublicationError{
		Object:  object,
		Wrapped: wrapped,
	}
}

// Is reports whether target matches err.
// It enables errors.Is() to work with our custom error types.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// It enables errors.As() to work with our custom error types.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
