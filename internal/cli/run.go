package cli

import "context"

// Run is a high-level CLI entrypoint suitable for black-box tests.
// It accepts the argument slice (excluding argv[0]) and returns the semantic
// exit code plus any error.
func Run(ctx context.Context, args []string) (Result, error) {
	inv, err := ParseInvocation(args)
	if err != nil {
		return Result{ExitCode: ExitCode(err)}, err
	}
	return Execute(ctx, inv)
}

// RunWithDeps is Run with injectable collaborators, for tests that need a
// fake backend or a captured log stream.
func RunWithDeps(ctx context.Context, args []string, deps Deps) (Result, error) {
	inv, err := ParseInvocation(args)
	if err != nil {
		return Result{ExitCode: ExitCode(err)}, err
	}
	return ExecuteWithDeps(ctx, inv, deps)
}
