// Package vcs queries the git backend and produces snapshots.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// QueryRunner runs a single backend query and returns its standard output.
//
// An error means the query failed (backend missing, not a repository,
// non-zero exit); callers distinguish failure from empty output.
type QueryRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// GitRunner executes git queries as subprocesses.
type GitRunner struct {
	// Executable is the resolved path of the git binary.
	Executable string

	// WorkDir is the directory queries run from.
	WorkDir string
}

func NewGitRunner(executable, workDir string) *GitRunner {
	return &GitRunner{Executable: executable, WorkDir: workDir}
}

// Run executes one git query synchronously.
//
// GIT_OPTIONAL_LOCKS=0 keeps queries read-only: without it, a status query
// may opportunistically refresh the index and take a lock, which would make
// the check itself mutate the repository.
func (g *GitRunner) Run(ctx context.Context, args ...string) (string, error) {
	if g.Executable == "" {
		return "", fmt.Errorf("git executable is not configured")
	}

	cmd := exec.CommandContext(ctx, g.Executable, args...)
	cmd.Dir = g.WorkDir
	cmd.Env = append(os.Environ(), "GIT_OPTIONAL_LOCKS=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, msg)
	}
	return stdout.String(), nil
}
