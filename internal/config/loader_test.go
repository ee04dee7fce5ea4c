package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLoader returns a Loader that never consults the host PATH or CWD.
func testLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	workDir := t.TempDir()
	l := &Loader{
		// Point dotenv at a path that never exists so host .env files
		// cannot leak into tests.
		DotenvPath: filepath.Join(workDir, "no-such.env"),
		LookPath: func(string) (string, error) {
			return "/fake/bin/git", nil
		},
		Getwd: func() (string, error) { return workDir, nil },
	}
	return l, workDir
}

func requireConfigError(t *testing.T, err error, wantType ErrorType) {
	t.Helper()
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, wantType, cfgErr.Type)
}

func TestLoad_MissingRequiredSettings(t *testing.T) {
	l, _ := testLoader(t)

	_, err := l.Load(Config{})
	requireConfigError(t, err, ErrorTypeMissing)
	assert.Contains(t, err.Error(), "TemplatePath")
	assert.Contains(t, err.Error(), "ArtifactPath")
}

func TestLoad_FlagsProvideRequiredSettings(t *testing.T) {
	l, workDir := testLoader(t)

	cfg, err := l.Load(Config{
		TemplatePath: "version.h.in",
		ArtifactPath: "gen/version.h",
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(workDir, "version.h.in"), cfg.TemplatePath)
	assert.Equal(t, filepath.Join(workDir, "gen", "version.h"), cfg.ArtifactPath)
}

func TestLoad_EnvironmentProvidesSettings(t *testing.T) {
	l, workDir := testLoader(t)
	t.Setenv("GITSTAMP_TEMPLATE", "tmpl.in")
	t.Setenv("GITSTAMP_ARTIFACT", "out.h")
	t.Setenv("GITSTAMP_LOG_LEVEL", "debug")

	cfg, err := l.Load(Config{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(workDir, "tmpl.in"), cfg.TemplatePath)
	assert.Equal(t, filepath.Join(workDir, "out.h"), cfg.ArtifactPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	l, workDir := testLoader(t)
	t.Setenv("GITSTAMP_TEMPLATE", "from-env.in")
	t.Setenv("GITSTAMP_ARTIFACT", "out.h")

	cfg, err := l.Load(Config{TemplatePath: "from-flag.in"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(workDir, "from-flag.in"), cfg.TemplatePath)
}

func TestLoad_DotenvIsLowestPriority(t *testing.T) {
	l, workDir := testLoader(t)

	// godotenv mutates the process environment; register cleanup so the
	// injected variables do not leak into other tests.
	for _, key := range []string{"GITSTAMP_TEMPLATE", "GITSTAMP_ARTIFACT"} {
		t.Setenv(key, "placeholder")
		os.Unsetenv(key)
	}

	envFile := filepath.Join(workDir, "test.env")
	require.NoError(t, os.WriteFile(envFile,
		[]byte("GITSTAMP_TEMPLATE=from-dotenv.in\nGITSTAMP_ARTIFACT=out.h\n"), 0o644))
	l.DotenvPath = envFile

	cfg, err := l.Load(Config{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, "from-dotenv.in"), cfg.TemplatePath)

	// An explicit process-level variable beats the dotenv file.
	t.Setenv("GITSTAMP_TEMPLATE", "from-env.in")
	cfg, err = l.Load(Config{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, "from-env.in"), cfg.TemplatePath)
}

func TestLoad_DerivedDefaults(t *testing.T) {
	l, workDir := testLoader(t)

	cfg, err := l.Load(Config{
		TemplatePath: "version.h.in",
		ArtifactPath: "gen/version.h",
	})
	require.NoError(t, err)

	artifact := filepath.Join(workDir, "gen", "version.h")
	assert.Equal(t, artifact+".gitstamp-state", cfg.StateFilePath)
	assert.Equal(t, filepath.Join(workDir, "gen", "gitstamp-task.yaml"), cfg.ManifestPath)
	assert.Equal(t, "/fake/bin/git", cfg.GitPath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_ExplicitPathsAreNotDerived(t *testing.T) {
	l, _ := testLoader(t)

	cfg, err := l.Load(Config{
		TemplatePath:  "version.h.in",
		ArtifactPath:  "version.h",
		StateFilePath: "/var/state/gitstamp.state",
		GitPath:       "/opt/git/bin/git",
	})
	require.NoError(t, err)

	assert.Equal(t, "/var/state/gitstamp.state", cfg.StateFilePath)
	assert.Equal(t, "/opt/git/bin/git", cfg.GitPath)
}

func TestLoad_UnresolvableBackendIsConfigError(t *testing.T) {
	l, _ := testLoader(t)
	l.LookPath = func(string) (string, error) {
		return "", errors.New("executable file not found in $PATH")
	}

	_, err := l.Load(Config{TemplatePath: "t.in", ArtifactPath: "a.h"})
	requireConfigError(t, err, ErrorTypeBackend)
}

func TestLoad_ExplicitGitPathSkipsLookup(t *testing.T) {
	l, _ := testLoader(t)
	l.LookPath = func(string) (string, error) {
		t.Fatal("LookPath must not be called when --git is set")
		return "", nil
	}

	cfg, err := l.Load(Config{TemplatePath: "t.in", ArtifactPath: "a.h", GitPath: "/custom/git"})
	require.NoError(t, err)
	assert.Equal(t, "/custom/git", cfg.GitPath)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	l, _ := testLoader(t)

	_, err := l.Load(Config{TemplatePath: "t.in", ArtifactPath: "a.h", LogLevel: "loud"})
	requireConfigError(t, err, ErrorTypeInvalid)
}

func TestLoad_WorkDirIsAbsolutized(t *testing.T) {
	l, _ := testLoader(t)
	sub := t.TempDir()

	cfg, err := l.Load(Config{TemplatePath: "t.in", ArtifactPath: "a.h", WorkDir: sub})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.WorkDir))
	assert.Equal(t, filepath.Clean(sub), cfg.WorkDir)
}
