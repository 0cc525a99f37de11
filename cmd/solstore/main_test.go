package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/solstore/core"
	"github.com/poiesic/solstore/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func findStringFlag(flags []cli.Flag, name string) *cli.StringFlag {
	for _, flag := range flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

// run executes the CLI and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var stdout, stderr bytes.Buffer
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader("")
	err := app.Run(append([]string{"solstore"}, args...))
	return stdout.String(), err
}

func TestCommandFlags(t *testing.T) {
	app := newApp()

	for _, name := range []string{"put", "get", "info", "purge"} {
		t.Run(name+" requires solution", func(t *testing.T) {
			flag := findStringFlag(findCommand(t, app, name).Flags, "solution")
			require.NotNil(t, flag)
			assert.True(t, flag.Required)
			assert.Empty(t, flag.Value)
			assert.Empty(t, flag.EnvVars)
		})
	}

	t.Run("scope defaults to solution", func(t *testing.T) {
		flag := findStringFlag(findCommand(t, app, "put").Flags, "scope")
		require.NotNil(t, flag)
		assert.Equal(t, "solution", flag.Value)
	})

	t.Run("log-level defaults to info", func(t *testing.T) {
		flag := findStringFlag(app.Flags, "log-level")
		require.NotNil(t, flag)
		assert.Equal(t, "info", flag.Value)
	})

	t.Run("name is required", func(t *testing.T) {
		_, err := run(t, "--root", t.TempDir(), "get", "--solution", "/src/app.sln")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name")
	})
}

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "INFO", "warn", "error"} {
			_, err := run(t, "--log-level", level, "--root", t.TempDir(), "info", "--solution", filepath.Join(t.TempDir(), "app.sln"))
			assert.NoError(t, err, level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := run(t, "--log-level", "loud", "info", "--solution", "/src/app.sln")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestPutGetRoundTrip(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()
	solution := filepath.Join(dir, "app.sln")
	require.NoError(t, os.WriteFile(solution, []byte("solution"), 0644))
	input := filepath.Join(dir, "input.bin")
	require.NoError(t, os.WriteFile(input, []byte("cached analysis"), 0644))
	project := core.NewProjectID()

	_, err := run(t, "--root", root, "--size-threshold", "0",
		"put", "--solution", solution, "--scope", "project:"+project.String(), "--name", "index", "--file", input)
	require.NoError(t, err)

	out, err := run(t, "--root", root, "--size-threshold", "0",
		"get", "--solution", solution, "--scope", "project:"+project.String(), "--name", "index")
	require.NoError(t, err)
	assert.Equal(t, "cached analysis", out)

	t.Run("to file", func(t *testing.T) {
		output := filepath.Join(t.TempDir(), "out.bin")
		_, err := run(t, "--root", root, "--size-threshold", "0",
			"get", "--solution", solution, "--scope", "project:"+project.String(), "--name", "index", "--file", output)
		require.NoError(t, err)
		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Equal(t, "cached analysis", string(data))
	})

	t.Run("other scope misses", func(t *testing.T) {
		_, err := run(t, "--root", root, "--size-threshold", "0",
			"get", "--solution", solution, "--name", "index")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestPut_BelowThreshold(t *testing.T) {
	dir := t.TempDir()
	solution := filepath.Join(dir, "app.sln")
	require.NoError(t, os.WriteFile(solution, []byte("tiny"), 0644))

	_, err := run(t, "--root", t.TempDir(), "--size-threshold", "1048576",
		"put", "--solution", solution, "--name", "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available")
}

func TestPut_InvalidScope(t *testing.T) {
	_, err := run(t, "--root", t.TempDir(), "put", "--solution", "/src/app.sln", "--name", "k", "--scope", "galaxy")
	require.Error(t, err)
}

func TestInfoAndPurge(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()
	solution := filepath.Join(dir, "app.sln")
	require.NoError(t, os.WriteFile(solution, []byte("solution"), 0644))

	_, err := run(t, "--root", root, "--size-threshold", "0",
		"put", "--solution", solution, "--name", "k", "--file", solution)
	require.NoError(t, err)

	out, err := run(t, "--root", root, "--size-threshold", "0", "info", "--solution", solution)
	require.NoError(t, err)
	folder := filepath.Join(root, core.FolderNameFor(solution))
	assert.Contains(t, out, "Working folder: "+folder)
	assert.Contains(t, out, "exists: true")
	assert.Contains(t, out, "Eligible: true")
	assert.DirExists(t, storage.StoreDirectory(folder))

	_, err = run(t, "--root", root, "purge", "--solution", solution)
	require.NoError(t, err)
	assert.NoDirExists(t, folder)

	out, err = run(t, "--root", root, "--size-threshold", "0", "info", "--solution", solution)
	require.NoError(t, err)
	assert.Contains(t, out, "exists: false")
}

func TestLoadConfigFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "from-config")
	path := filepath.Join(t.TempDir(), "solstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: "+root+"\nsize_threshold: 7\n"), 0644))

	out, err := run(t, "--config", path, "info", "--solution", filepath.Join(t.TempDir(), "app.sln"))
	require.NoError(t, err)
	assert.Contains(t, out, "Root: "+root)
	assert.Contains(t, out, "Size threshold: 7")
}
