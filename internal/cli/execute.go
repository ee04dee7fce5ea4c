package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"gitstamp/internal/config"
	"gitstamp/internal/register"
	"gitstamp/internal/render"
	"gitstamp/internal/snapshot"
	"gitstamp/internal/state"
	"gitstamp/internal/vcs"
)

// CheckOutcome reports what a check invocation decided and did.
type CheckOutcome struct {
	// Snapshot is the state extracted by this invocation.
	Snapshot snapshot.Snapshot

	// Changed is true when the snapshot differs from persisted state.
	Changed bool

	// Regenerated is true when the artifact was written.
	Regenerated bool

	// Reason explains the decision: "first-run", "state-mismatch", or
	// "unchanged".
	Reason string
}

// Result carries the semantic exit code plus, for check mode, the outcome.
type Result struct {
	ExitCode int
	Outcome  *CheckOutcome
}

// Deps holds the injectable collaborators for Execute. The zero value wires
// the real implementations; tests substitute pieces to exercise the pipeline
// without a git checkout or a populated PATH.
type Deps struct {
	// Loader resolves configuration. Nil means config.NewLoader().
	Loader *config.Loader

	// Runner overrides the backend query runner. Nil means a GitRunner
	// built from the resolved configuration.
	Runner vcs.QueryRunner

	// Executable is the argv[0] recorded in the setup-phase manifest.
	// Empty means os.Executable().
	Executable string

	// LogWriter receives diagnostics. Nil means os.Stderr.
	LogWriter io.Writer
}

// Execute runs one invocation end to end with the default dependencies.
func Execute(ctx context.Context, inv Invocation) (Result, error) {
	return ExecuteWithDeps(ctx, inv, Deps{})
}

// ExecuteWithDeps resolves configuration and dispatches on the invocation
// mode.
//
// Responsibilities:
//   - Configuration errors abort before any extraction or I/O (exit 3).
//   - Setup mode's only side effect is the task manifest write.
//   - Check mode runs the strict linear pipeline: extract, load, compare,
//     then conditionally regenerate and persist.
//   - Backend failures never abort; they degrade the snapshot.
func ExecuteWithDeps(ctx context.Context, inv Invocation, deps Deps) (Result, error) {
	loader := deps.Loader
	if loader == nil {
		loader = config.NewLoader()
	}
	cfg, err := loader.Load(inv.Overrides)
	if err != nil {
		return Result{ExitCode: ExitConfigError}, err
	}

	logWriter := deps.LogWriter
	if logWriter == nil {
		logWriter = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})).With(
		"invocation_id", uuid.NewString(),
		"mode", string(inv.Mode),
	)

	switch inv.Mode {
	case ModeSetup:
		return executeSetup(cfg, deps, logger)
	case ModeCheck:
		return executeCheck(ctx, cfg, deps, logger)
	default:
		return Result{ExitCode: ExitInternalError}, fmt.Errorf("unknown mode %q", inv.Mode)
	}
}

// executeSetup registers the deferred check task. It must not touch the
// extractor, detector, regenerator, or state store.
func executeSetup(cfg config.Config, deps Deps, logger *slog.Logger) (Result, error) {
	executable := deps.Executable
	if executable == "" {
		resolved, err := os.Executable()
		if err != nil {
			return Result{ExitCode: ExitInternalError}, fmt.Errorf("resolving own executable: %w", err)
		}
		executable = resolved
	}

	// Both registrar failure modes land on the I/O-failure exit: the build
	// system cannot distinguish an unwritable manifest from an invalid one.
	registrar, err := register.NewFileRegistrar(cfg.ManifestPath)
	if err != nil {
		return Result{ExitCode: ExitCheckFailure}, err
	}

	task := register.Task{
		Name: "gitstamp-check",
		Command: []string{
			executable,
			"--mode", string(ModeCheck),
			"--template", cfg.TemplatePath,
			"--artifact", cfg.ArtifactPath,
			"--state-file", cfg.StateFilePath,
			"--workdir", cfg.WorkDir,
			"--git", cfg.GitPath,
			"--log-level", cfg.LogLevel,
		},
		Inputs:    []string{cfg.TemplatePath},
		Outputs:   []string{cfg.ArtifactPath},
		AlwaysRun: true,
	}
	if err := registrar.Register(task); err != nil {
		return Result{ExitCode: ExitCheckFailure}, err
	}

	logger.Info("registered deferred check task",
		"manifest", cfg.ManifestPath,
		"artifact", cfg.ArtifactPath)
	return Result{ExitCode: ExitSuccess}, nil
}

// executeCheck runs the extract -> load -> compare -> regenerate pipeline.
func executeCheck(ctx context.Context, cfg config.Config, deps Deps, logger *slog.Logger) (Result, error) {
	runner := deps.Runner
	if runner == nil {
		runner = vcs.NewGitRunner(cfg.GitPath, cfg.WorkDir)
	}
	extractor, err := vcs.NewExtractor(runner, logger)
	if err != nil {
		return Result{ExitCode: ExitInternalError}, err
	}

	snap := extractor.Extract(ctx)
	if !snap.RetrievedState {
		logger.Warn("repository state could not be fully retrieved; recording degraded snapshot")
	}

	store, err := state.NewStore(cfg.StateFilePath)
	if err != nil {
		return Result{ExitCode: ExitInternalError}, err
	}
	persisted, found, err := store.Load()
	if err != nil {
		return Result{ExitCode: ExitCheckFailure}, err
	}

	outcome := &CheckOutcome{Snapshot: snap}
	switch {
	case !found:
		outcome.Changed = true
		outcome.Reason = "first-run"
	case snapshot.HasChanged(snap, persisted, found):
		outcome.Changed = true
		outcome.Reason = "state-mismatch"
	default:
		outcome.Reason = "unchanged"
	}

	if !outcome.Changed {
		logger.Info("repository state unchanged; artifact left untouched",
			"state_file", cfg.StateFilePath)
		return Result{ExitCode: ExitSuccess, Outcome: outcome}, nil
	}

	renderer := render.NewRenderer(cfg.TemplatePath, cfg.ArtifactPath)
	if err := renderer.Write(snap); err != nil {
		return Result{ExitCode: ExitCheckFailure, Outcome: outcome}, err
	}
	outcome.Regenerated = true

	// Persist only after the artifact write succeeded; a failed write must
	// leave the old state in place so the next invocation retries.
	if err := store.Save(snap); err != nil {
		return Result{ExitCode: ExitCheckFailure, Outcome: outcome}, err
	}

	logger.Info("repository state changed; artifact regenerated",
		"reason", outcome.Reason,
		"artifact", cfg.ArtifactPath)
	return Result{ExitCode: ExitSuccess, Outcome: outcome}, nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
