package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"gitstamp/internal/config"
)

const (
	ExitSuccess           = 0
	ExitCheckFailure      = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// Mode selects which phase of the two-phase protocol this invocation runs.
//
// There is no auto-detection and no state carried between phases inside the
// process: every invocation reads the flag fresh.
type Mode string

const (
	// ModeSetup registers the deferred check task with the build system
	// and does nothing else.
	ModeSetup Mode = "setup"

	// ModeCheck runs the extract -> compare -> (conditionally) regenerate
	// pipeline once.
	ModeCheck Mode = "check"
)

// Invocation is the canonicalized description of one run: the selected mode
// plus the raw flag-level configuration overrides. Path resolution and
// defaulting happen in config.Load, not here, so parsing stays free of
// filesystem and environment access.
type Invocation struct {
	Mode      Mode
	Overrides config.Config
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses command-line flags into an Invocation.
//
// Parsing errors are returned, not printed; the caller maps them to exit
// codes and stderr output.
func ParseInvocation(args []string) (Invocation, error) {
	fs := pflag.NewFlagSet("gitstamp", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var mode string
	var overrides config.Config

	fs.StringVar(&mode, "mode", "", "Invocation mode: setup|check. Required.")
	fs.StringVar(&overrides.TemplatePath, "template", "", "Template input path.")
	fs.StringVar(&overrides.ArtifactPath, "artifact", "", "Artifact output path.")
	fs.StringVar(&overrides.StateFilePath, "state-file", "", "Persisted state path (default: next to the artifact).")
	fs.StringVar(&overrides.WorkDir, "workdir", "", "Directory git queries run from (default: process CWD).")
	fs.StringVar(&overrides.GitPath, "git", "", "Git executable (default: PATH lookup).")
	fs.StringVar(&overrides.ManifestPath, "manifest", "", "Deferred-task manifest path (setup mode).")
	fs.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug|info|warn|error.")

	if err := fs.Parse(args); err != nil {
		return Invocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() != 0 {
		return Invocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	parsedMode, err := parseMode(mode)
	if err != nil {
		return Invocation{}, err
	}

	return Invocation{Mode: parsedMode, Overrides: overrides}, nil
}

func parseMode(raw string) (Mode, error) {
	n := strings.ToLower(strings.TrimSpace(raw))
	switch Mode(n) {
	case ModeSetup, ModeCheck:
		return Mode(n), nil
	case "":
		return "", invalidInvocationf("--mode is required")
	default:
		return "", invalidInvocationf("invalid --mode %q (expected setup|check)", raw)
	}
}

// ExitCode extracts a semantic exit code from a ParseInvocation error.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
