// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Load a dotenv file if present (non-fatal if absent).
//  2. Populate the struct from GITSTAMP_-prefixed environment variables.
//  3. Apply command-line overrides (non-empty override fields win).
//  4. Fill derived defaults: working directory, state file path, manifest
//     path, git executable (PATH lookup).
//  5. Absolutize all paths against the working directory.
//  6. Validate the struct with go-playground/validator.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces all environment variables read by the loader.
const envPrefix = "gitstamp"

// Loader holds the injectable dependencies for configuration loading,
// enabling tests that do not depend on the host PATH or working directory.
type Loader struct {
	// DotenvPath overrides the dotenv file location. Empty means the
	// default ".env" in the process working directory.
	DotenvPath string

	// LookPath resolves the git executable. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)

	// Getwd returns the process working directory. Defaults to os.Getwd.
	Getwd func() (string, error)
}

// NewLoader returns a Loader backed by the real OS.
func NewLoader() *Loader {
	return &Loader{LookPath: exec.LookPath, Getwd: os.Getwd}
}

// Load resolves the configuration. overrides carries the command-line flag
// values; a non-empty override field takes precedence over the environment.
func (l *Loader) Load(overrides Config) (Config, error) {
	lookPath := l.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	getwd := l.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}

	// Dotenv is a convenience layer only; a missing file is the normal case.
	if l.DotenvPath != "" {
		_ = godotenv.Load(l.DotenvPath)
	} else {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, &Error{Type: ErrorTypeProcess, Message: "processing environment", Err: err}
	}

	applyOverrides(&cfg, overrides)

	if cfg.WorkDir == "" {
		wd, err := getwd()
		if err != nil {
			return Config{}, &Error{Type: ErrorTypeProcess, Message: "resolving working directory", Err: err}
		}
		cfg.WorkDir = wd
	}
	absWorkDir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return Config{}, &Error{Type: ErrorTypeInvalid, Message: fmt.Sprintf("working directory %q", cfg.WorkDir), Err: err}
	}
	cfg.WorkDir = filepath.Clean(absWorkDir)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	cfg.TemplatePath = resolveUnder(cfg.WorkDir, cfg.TemplatePath)
	cfg.ArtifactPath = resolveUnder(cfg.WorkDir, cfg.ArtifactPath)

	if cfg.StateFilePath == "" {
		cfg.StateFilePath = cfg.ArtifactPath + ".gitstamp-state"
	} else {
		cfg.StateFilePath = resolveUnder(cfg.WorkDir, cfg.StateFilePath)
	}
	if cfg.ManifestPath == "" {
		cfg.ManifestPath = filepath.Join(filepath.Dir(cfg.ArtifactPath), "gitstamp-task.yaml")
	} else {
		cfg.ManifestPath = resolveUnder(cfg.WorkDir, cfg.ManifestPath)
	}

	if cfg.GitPath == "" {
		resolved, err := lookPath("git")
		if err != nil {
			return Config{}, &Error{Type: ErrorTypeBackend, Message: "git executable not found on PATH and --git not set", Err: err}
		}
		cfg.GitPath = resolved
	}

	return cfg, nil
}

func applyOverrides(cfg *Config, overrides Config) {
	if overrides.TemplatePath != "" {
		cfg.TemplatePath = overrides.TemplatePath
	}
	if overrides.ArtifactPath != "" {
		cfg.ArtifactPath = overrides.ArtifactPath
	}
	if overrides.StateFilePath != "" {
		cfg.StateFilePath = overrides.StateFilePath
	}
	if overrides.WorkDir != "" {
		cfg.WorkDir = overrides.WorkDir
	}
	if overrides.GitPath != "" {
		cfg.GitPath = overrides.GitPath
	}
	if overrides.ManifestPath != "" {
		cfg.ManifestPath = overrides.ManifestPath
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
}

// resolveUnder resolves p relative to workDir without consulting the process
// CWD; workDir is guaranteed absolute by the caller.
func resolveUnder(workDir, p string) string {
	clean := filepath.Clean(p)
	if filepath.IsAbs(clean) {
		return clean
	}
	return filepath.Clean(filepath.Join(workDir, clean))
}

func validate(cfg Config) error {
	v := validator.New()
	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		missing := make([]string, 0, len(verrs))
		invalid := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				missing = append(missing, fe.Field())
			} else {
				invalid = append(invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
		}
		if len(missing) > 0 {
			return &Error{Type: ErrorTypeMissing, Message: "missing required settings: " + strings.Join(missing, ", ")}
		}
		return &Error{Type: ErrorTypeInvalid, Message: "invalid settings: " + strings.Join(invalid, ", ")}
	}
	return &Error{Type: ErrorTypeInvalid, Message: "validating configuration", Err: err}
}
