// Package register implements the setup-phase half of the two-phase protocol:
// declaring a deferred check task to the host build system.
package register

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gitstamp/internal/atomicfile"
)

// Task describes the deferred check invocation the build system must run
// before every build that consumes the artifact.
type Task struct {
	// Name identifies the task in the host build graph.
	Name string `yaml:"name"`

	// Command is the exact argv that re-invokes this program in check mode
	// with the same resolved configuration.
	Command []string `yaml:"command"`

	// Inputs are the declared input files (the template).
	Inputs []string `yaml:"inputs"`

	// Outputs are the declared output files (the artifact).
	Outputs []string `yaml:"outputs"`

	// AlwaysRun forces the build system to run the task on every build
	// rather than only when Inputs change; repository state is invisible
	// to the build system's own dependency tracking.
	AlwaysRun bool `yaml:"always_run"`
}

func (t Task) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("task name is required")
	}
	if len(t.Command) == 0 {
		return fmt.Errorf("task command is required")
	}
	if len(t.Inputs) == 0 {
		return fmt.Errorf("task inputs are required")
	}
	if len(t.Outputs) == 0 {
		return fmt.Errorf("task outputs are required")
	}
	return nil
}

// Registrar records deferred tasks with the host build system.
type Registrar interface {
	Register(task Task) error
}

// FileRegistrar writes the task declaration as a YAML manifest at a fixed
// path. The host build system consumes the manifest and guarantees the task
// runs before any target depending on the artifact.
type FileRegistrar struct {
	manifestPath string
}

func NewFileRegistrar(manifestPath string) (*FileRegistrar, error) {
	if strings.TrimSpace(manifestPath) == "" {
		return nil, fmt.Errorf("manifest path is required")
	}
	return &FileRegistrar{manifestPath: manifestPath}, nil
}

// Register validates and writes the manifest. Registration is the setup
// phase's only side effect: no extraction, no state I/O, no artifact I/O.
func (r *FileRegistrar) Register(task Task) error {
	if err := task.validate(); err != nil {
		return fmt.Errorf("invalid task registration: %w", err)
	}
	data, err := yaml.Marshal(map[string]Task{"task": task})
	if err != nil {
		return fmt.Errorf("marshal task manifest: %w", err)
	}
	if err := atomicfile.WriteFile(r.manifestPath, data, 0o644); err != nil {
		return fmt.Errorf("write task manifest: %w", err)
	}
	return nil
}

// Load reads a manifest back. Primarily used by integration checks that
// verify a registered command line round-trips exactly.
func Load(path string) (Task, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Task{}, fmt.Errorf("read task manifest: %w", err)
	}
	var doc map[string]Task
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Task{}, fmt.Errorf("unmarshal task manifest: %w", err)
	}
	task, ok := doc["task"]
	if !ok {
		return Task{}, fmt.Errorf("task manifest %s has no task entry", path)
	}
	return task, nil
}
