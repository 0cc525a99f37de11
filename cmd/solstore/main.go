// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/solstore"
	"github.com/poiesic/solstore/core"
	"github.com/poiesic/solstore/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	solutionFlag := &cli.StringFlag{
		Name:     "solution",
		Aliases:  []string{"s"},
		Usage:    "Path to the solution file",
		Required: true,
	}
	scopeFlag := &cli.StringFlag{
		Name:  "scope",
		Usage: "Storage scope: solution, project:<id> or document:<project>:<id>",
		Value: "solution",
	}
	nameFlag := &cli.StringFlag{
		Name:     "name",
		Aliases:  []string{"n"},
		Usage:    "Name of the stored item",
		Required: true,
	}

	return &cli.App{
		Name:  "solstore",
		Usage: "Inspect and manage persistent solution storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "root",
				Usage: "Storage root directory (overrides config)",
			},
			&cli.Int64Flag{
				Name:  "size-threshold",
				Usage: "Solution size in bytes at which storage is used (overrides config)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "put",
				Usage:  "Store a file under a name",
				Action: putCommand,
				Flags: []cli.Flag{
					solutionFlag,
					scopeFlag,
					nameFlag,
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "File to store (defaults to stdin)",
					},
				},
			},
			{
				Name:   "get",
				Usage:  "Read a stored item",
				Action: getCommand,
				Flags: []cli.Flag{
					solutionFlag,
					scopeFlag,
					nameFlag,
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "File to write (defaults to stdout)",
					},
				},
			},
			{
				Name:   "info",
				Usage:  "Show where a solution's store lives and whether it is used",
				Action: infoCommand,
				Flags:  []cli.Flag{solutionFlag},
			},
			{
				Name:   "purge",
				Usage:  "Delete a solution's store",
				Action: purgeCommand,
				Flags:  []cli.Flag{solutionFlag},
			},
		},
	}
}

// loadConfig builds the host config from the config file and global flags.
func loadConfig(c *cli.Context) (*solstore.Config, error) {
	cfg := solstore.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := solstore.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet("root") {
		cfg.Root = c.String("root")
	}
	if c.IsSet("size-threshold") {
		cfg.SizeThreshold = c.Int64("size-threshold")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openHost loads configuration and the solution named by --solution.
func openHost(c *cli.Context) (*solstore.Host, *core.Solution, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	solution, err := solutionFromFlag(c.String("solution"))
	if err != nil {
		return nil, nil, err
	}
	host, err := solstore.NewHost(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start storage host: %w", err)
	}
	return host, solution, nil
}

func solutionFromFlag(path string) (*core.Solution, error) {
	if path == "" {
		return nil, errors.New("solution path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &core.Solution{
		ID:            core.SolutionIDFromPath(abs),
		FilePath:      abs,
		WorkspaceKind: core.WorkspaceKindHost,
	}, nil
}

func putCommand(c *cli.Context) error {
	ctx := context.Background()

	scope, err := storage.ParseScope(c.String("scope"))
	if err != nil {
		return err
	}

	var data []byte
	if path := c.String("file"); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(c.App.Reader)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	host, solution, err := openHost(c)
	if err != nil {
		return err
	}
	defer host.Close()

	s := host.Storage(ctx, solution)
	defer s.Close()
	if storage.IsNoOp(s) {
		return errors.New("storage is not available for this solution (below size threshold or store failed to open)")
	}

	checksum := core.ChecksumOf(data)
	if !s.WriteStream(ctx, scope, c.String("name"), bytes.NewReader(data), checksum) {
		return errors.New("write failed")
	}
	fmt.Fprintf(c.App.ErrWriter, "Stored %d bytes as %s in %s (checksum %s)\n", len(data), c.String("name"), scope, checksum)
	return nil
}

func getCommand(c *cli.Context) error {
	ctx := context.Background()

	scope, err := storage.ParseScope(c.String("scope"))
	if err != nil {
		return err
	}

	host, solution, err := openHost(c)
	if err != nil {
		return err
	}
	defer host.Close()

	s := host.Storage(ctx, solution)
	defer s.Close()

	rc, ok := s.ReadStream(ctx, scope, c.String("name"), nil)
	if !ok {
		return fmt.Errorf("%s not found in %s", c.String("name"), scope)
	}
	defer rc.Close()

	out := c.App.Writer
	if path := c.String("file"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func infoCommand(c *cli.Context) error {
	ctx := context.Background()

	host, solution, err := openHost(c)
	if err != nil {
		return err
	}
	defer host.Close()

	w := c.App.Writer
	fmt.Fprintf(w, "Solution: %s\n", solution.FilePath)
	fmt.Fprintf(w, "Solution ID: %s\n", solution.ID)
	fmt.Fprintf(w, "Root: %s\n", host.Config().Root)
	fmt.Fprintf(w, "Size threshold: %d\n", host.Config().SizeThreshold)

	folder, ok := host.Location().WorkingFolder(solution)
	if !ok {
		fmt.Fprintln(w, "Working folder: none")
		return nil
	}
	storePath := storage.StoreDirectory(folder)
	_, statErr := os.Stat(storePath)
	fmt.Fprintf(w, "Working folder: %s\n", folder)
	fmt.Fprintf(w, "Store: %s (exists: %t)\n", storePath, statErr == nil)

	fmt.Fprintf(w, "Eligible: %t\n", host.Eligible(ctx, solution))
	return nil
}

func purgeCommand(c *cli.Context) error {
	host, solution, err := openHost(c)
	if err != nil {
		return err
	}
	defer host.Close()

	folder, ok := host.Location().WorkingFolder(solution)
	if !ok {
		return errors.New("solution has no storage location")
	}
	host.Service().CloseSolution(solution.ID)
	if err := os.RemoveAll(folder); err != nil {
		return fmt.Errorf("failed to delete %s: %w", folder, err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Deleted %s\n", folder)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
