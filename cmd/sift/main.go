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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/sift/core"
	"github.com/urfave/cli/v2"
)

// Process exit codes.
const (
	exitOK                   = 0
	exitGeneric              = 1
	exitConfiguration        = 2
	exitInvalidQuery         = 3
	exitIndexUnavailable     = 4
	exitEmbeddingUnavailable = 5
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "sift",
		Usage: "Hybrid semantic and keyword search for articles",
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
				Usage:   "Path to the TOML configuration file",
				Value:   "sift.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file with SIFT_* overrides",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the index directory (overrides database.path)",
			},
			&cli.StringFlag{
				Name:  "content",
				Usage: "Content root directory (overrides content.root)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Index articles from the content root",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Usage: "Only index this category"},
					&cli.StringFlag{Name: "slug", Usage: "Only index this article (requires --category)"},
					&cli.BoolFlag{Name: "force", Usage: "Re-embed every chunk, ignoring the cache"},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Do not print progress"},
					&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
				},
			},
			{
				Name:      "search",
				Usage:     "Search indexed articles",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "semantic, keyword or hybrid", Value: "hybrid"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of results", Value: core.DefaultLimit},
					&cli.IntFlag{Name: "offset", Usage: "Number of results to skip"},
					&cli.StringFlag{Name: "category", Usage: "Restrict results to a category"},
					&cli.Float64Flag{Name: "threshold", Usage: "Minimum semantic similarity (0..1)", Value: core.DefaultSimilarityThreshold},
					&cli.BoolFlag{Name: "case-sensitive", Usage: "Match keywords case-sensitively"},
					&cli.BoolFlag{Name: "json", Usage: "Print the response as JSON"},
					&cli.BoolFlag{Name: "explain", Usage: "Log every search stage"},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show index statistics",
				Action: statsCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print statistics as JSON"},
				},
			},
			{
				Name:   "clear",
				Usage:  "Remove indexed articles",
				Action: clearCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Usage: "Only clear this category"},
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the deletion"},
				},
			},
			{
				Name:   "health",
				Usage:  "Check the index and the embedding service",
				Action: healthCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the report as JSON"},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides server.addr)"},
				},
			},
			{
				Name:   "watch",
				Usage:  "Re-index articles as their files change",
				Action: watchCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "initial", Usage: "Index everything before watching", Value: true},
				},
			},
		},
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, core.ErrConfiguration):
		return exitConfiguration
	case errors.Is(err, core.ErrInvalidQuery):
		return exitInvalidQuery
	case errors.Is(err, core.ErrIndexUnavailable):
		return exitIndexUnavailable
	case errors.Is(err, core.ErrEmbeddingUnavailable), errors.Is(err, core.ErrServiceUnavailable):
		return exitEmbeddingUnavailable
	default:
		return exitGeneric
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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
		return fmt.Errorf("%w: invalid log level %q: must be one of debug, info, warn, error", core.ErrConfiguration, levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
