// Package config defines the resolved configuration for one invocation.
//
// Values are resolved via a priority chain:
//
//	Command-line flags (highest) -> OS environment -> dotenv file -> defaults
//
// Configuration is resolved once at process start and is immutable
// thereafter. Any missing required value or invalid format aborts the
// invocation before any extraction or I/O happens.
package config

import (
	"fmt"
)

// Config is the fully-resolved configuration for one invocation. All paths
// are absolute after Load; derived defaults (state file, manifest) are filled
// in from the artifact path when not set explicitly.
type Config struct {
	// TemplatePath is the input template containing @NAME@ placeholders.
	TemplatePath string `envconfig:"TEMPLATE" validate:"required"`

	// ArtifactPath is the generated output file, fully owned by this
	// program.
	ArtifactPath string `envconfig:"ARTIFACT" validate:"required"`

	// StateFilePath is where the persisted snapshot lives. Defaults to
	// "<artifact>.gitstamp-state" next to the artifact.
	StateFilePath string `envconfig:"STATE_FILE"`

	// WorkDir is the directory backend queries run from. Defaults to the
	// process working directory.
	WorkDir string `envconfig:"WORKDIR"`

	// GitPath is the git executable. Resolved via PATH lookup when unset;
	// an unresolvable backend is a configuration error.
	GitPath string `envconfig:"GIT"`

	// ManifestPath is where setup mode writes the deferred-task manifest.
	// Defaults to "gitstamp-task.yaml" next to the artifact.
	ManifestPath string `envconfig:"MANIFEST"`

	// LogLevel controls diagnostic verbosity on stderr.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

// ErrorType classifies configuration failures for diagnostics.
type ErrorType string

const (
	ErrorTypeMissing ErrorType = "MISSING_REQUIRED"
	ErrorTypeInvalid ErrorType = "INVALID_VALUE"
	ErrorTypeBackend ErrorType = "BACKEND_UNRESOLVED"
	ErrorTypeProcess ErrorType = "PROCESS_ENV"
)

// Error is the diagnostic error type returned by Load.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
