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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "safetyrag",
		Usage: "Search safety protocols and incident reports",
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
				Usage:   "Path to TOML config file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
			},
			&cli.StringFlag{
				Name:  "guidebook",
				Usage: "Emergency guidebook JSON file; searches the files instead of the database",
			},
			&cli.StringFlag{
				Name:  "incidents",
				Usage: "Incident reports JSON file; searches the files instead of the database",
			},
			&cli.BoolFlag{
				Name:  "embeddings",
				Usage: "Rank by embedding similarity (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "generation",
				Usage: "Generate answers with the language model (overrides config)",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name (overrides config)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "load",
				Usage:  "Load guidebook and incident files into the database",
				Action: loadCommand,
			},
			{
				Name:      "search",
				Usage:     "Search protocols and incidents",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags:     []cli.Flag{topFlag(), jsonFlag()},
			},
			{
				Name:      "similar",
				Usage:     "Find incidents similar to a description or incident id",
				ArgsUsage: "<description or id>",
				Action:    similarCommand,
				Flags:     []cli.Flag{topFlag(), jsonFlag()},
			},
			{
				Name:      "show",
				Usage:     "Show a single document",
				ArgsUsage: "<protocol|incident> <id>",
				Action:    showCommand,
			},
			{
				Name:      "answer",
				Usage:     "Answer a safety question from the best matching documents",
				ArgsUsage: "<question>",
				Action:    answerCommand,
				Flags:     []cli.Flag{topFlag()},
			},
			{
				Name:      "risk",
				Usage:     "Rate the severity of an incident description and predict follow-on risks",
				ArgsUsage: "<incident details>",
				Action:    riskCommand,
				Flags:     []cli.Flag{jsonFlag()},
			},
			{
				Name:      "summarize",
				Usage:     "Summarize several documents together",
				ArgsUsage: "<id|kind:id>...",
				Action:    summarizeCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored documents with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
				},
			},
			{
				Name:   "shell",
				Usage:  "Run queries interactively",
				Action: shellCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Rebuild the index when the corpus files change",
					},
				},
			},
		},
	}
}

func topFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "top",
		Aliases: []string{"n"},
		Usage:   "Maximum number of results (default from config)",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print results as JSON",
	}
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
