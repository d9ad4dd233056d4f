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
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/mediamind"
	"github.com/poiesic/mediamind/ai"
	"github.com/poiesic/mediamind/core"
	"github.com/poiesic/mediamind/ingest"
	"github.com/poiesic/mediamind/storage"
)

func main() {
	app := &cli.App{
		Name:   "mediamind",
		Usage:  "Media ingestion and semantic indexing",
		Before: setupLogger,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "./mediamind-db",
			},
			&cli.StringFlag{
				Name:  "analyzer-host",
				Usage: "Media analysis service URL",
				Value: "http://localhost:9400",
			},
			&cli.StringFlag{
				Name:    "analyzer-api-key",
				Usage:   "Media analysis service API key",
				EnvVars: []string{"MEDIAMIND_ANALYZER_API_KEY"},
			},
			&cli.StringFlag{
				Name:  "language-host",
				Usage: "OpenAI-compatible host for embeddings and tagging",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
				Value: "embeddinggemma",
			},
			&cli.StringFlag{
				Name:  "tagger-model",
				Usage: "Tagger model name",
				Value: "qwen2.5:3b",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Submit a media file for analysis and indexing",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "library",
						Aliases:  []string{"L"},
						Usage:    "Target library for the indexed content",
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "wait",
						Aliases: []string{"w"},
						Usage:   "Block and show progress until the task finishes",
					},
					&cli.DurationFlag{
						Name:  "poll-interval",
						Usage: "How often to poll the remote analysis",
						Value: 10 * time.Second,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Maximum concurrent ingestion pipelines",
						Value: 4,
					},
				},
			},
			{
				Name:      "status",
				Usage:     "Show the status of an ingestion task",
				ArgsUsage: "<task-id>",
				Action:    statusCommand,
			},
			{
				Name:   "tasks",
				Usage:  "List ingestion tasks",
				Action: tasksCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "library",
						Aliases: []string{"L"},
						Usage:   "Only tasks for this library",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only tasks with this status (pending, processing, completed, failed, cancelled)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tasks to show",
						Value: 50,
					},
				},
			},
			{
				Name:      "cancel",
				Usage:     "Request cancellation of an ingestion task",
				ArgsUsage: "<task-id>",
				Action:    cancelCommand,
			},
			{
				Name:   "sweep",
				Usage:  "Remove terminal tasks older than the retention window",
				Action: sweepCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "retention",
						Usage: "Retention window for terminal tasks",
						Value: ingest.DefaultRetention,
					},
				},
			},
			{
				Name:  "cache",
				Usage: "Inspect the duplicate-detection cache",
				Subcommands: []*cli.Command{
					{
						Name:   "ls",
						Usage:  "List cached analyses",
						Action: cacheListCommand,
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "limit",
								Usage: "Maximum number of entries to show",
								Value: 50,
							},
						},
					},
					{
						Name:   "stats",
						Usage:  "Summarize the cache",
						Action: cacheStatsCommand,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openService builds the Service from the global flags.
func openService(c *cli.Context) (*mediamind.Service, error) {
	cfg := ai.NewConfig(
		ai.WithAnalyzerHost(c.String("analyzer-host")),
		ai.WithAnalyzerAPIKey(c.String("analyzer-api-key")),
		ai.WithLanguageHost(c.String("language-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithTaggerModel(c.String("tagger-model")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	service, err := mediamind.NewService(c.String("db"), mediamind.WithAIConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return service, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	manager, err := service.NewManager(
		[]ingest.PipelineOption{ingest.WithPollInterval(c.Duration("poll-interval"))},
		ingest.WithWorkers(c.Int("workers")),
	)
	if err != nil {
		return err
	}
	defer manager.Close()

	id, err := manager.Submit(c.Context, path, c.String("library"))
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}
	fmt.Println(id)

	if !c.Bool("wait") {
		// Without --wait the process must still see the task through;
		// Close blocks until in-flight pipelines finish.
		manager.Wait()
		return nil
	}

	display := newProgressDisplay(os.Stderr)
	for {
		status, err := manager.GetStatus(c.Context, id)
		if err != nil {
			return err
		}
		display.Update(status.Progress, status.CurrentStep)
		if status.Status.Terminal() {
			display.Finish(status.Status.String())
			if status.Status == core.StatusFailed {
				return fmt.Errorf("ingestion failed: %s", status.ErrorMessage)
			}
			return nil
		}

		select {
		case <-c.Context.Done():
			return c.Context.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func statusCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one task-id argument")
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	task, err := service.TaskRepository().GetTask(c.Context, core.TaskID(c.Args().First()))
	if err != nil {
		return err
	}

	fmt.Printf("Task:      %s\n", task.ID)
	fmt.Printf("Library:   %s\n", task.Library)
	fmt.Printf("File:      %s\n", task.Filename)
	fmt.Printf("Status:    %s\n", task.Status)
	fmt.Printf("Progress:  %d%%\n", task.Progress)
	fmt.Printf("Step:      %s\n", task.CurrentStep)
	if task.Fingerprint != "" {
		fmt.Printf("Content:   %s\n", task.Fingerprint)
	}
	if task.ExternalID != "" {
		fmt.Printf("Analysis:  %s\n", task.ExternalID)
	}
	if task.ErrorMessage != "" {
		fmt.Printf("Error:     %s\n", task.ErrorMessage)
	}
	fmt.Printf("Created:   %s\n", task.CreatedAt.Format(time.RFC3339))
	if !task.CompletedAt.IsZero() {
		fmt.Printf("Finished:  %s\n", task.CompletedAt.Format(time.RFC3339))
	}
	return nil
}

func tasksCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	filter := storage.TaskFilter{
		Library: c.String("library"),
		Limit:   c.Int("limit"),
	}
	if name := c.String("status"); name != "" {
		status, ok := core.ParseTaskStatus(name)
		if !ok {
			return fmt.Errorf("unknown status %q", name)
		}
		filter.Statuses = []core.TaskStatus{status}
	}

	tasks, err := service.TaskRepository().ListTasks(c.Context, filter)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		fmt.Printf("%s  %-10s  %3d%%  %-12s  %s/%s\n",
			task.ID, task.Status, task.Progress, task.CurrentStep, task.Library, task.Filename)
	}
	fmt.Fprintf(os.Stderr, "%d task(s)\n", len(tasks))
	return nil
}

func cancelCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one task-id argument")
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	_, err = service.TaskRepository().UpdateTask(c.Context, core.TaskID(c.Args().First()), func(t *core.TaskRecord) error {
		t.CancelRequested = true
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Println("cancellation requested")
	return nil
}

func sweepCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	removed, err := service.TaskRepository().SweepTasks(c.Context, c.Duration("retention"))
	if err != nil {
		return err
	}
	fmt.Printf("removed %d task(s)\n", removed)
	return nil
}

func cacheListCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	entries, err := service.AnalysisCache().ListEntries(c.Context, time.Time{}, c.Int("limit"))
	if err != nil {
		return err
	}

	for _, entry := range entries {
		reused := "never reused"
		if !entry.LastReusedAt.IsZero() {
			reused = "last reused " + entry.LastReusedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %s  first seen %s  %s\n",
			entry.Fingerprint, entry.ExternalID,
			entry.FirstSeenAt.Format(time.RFC3339), reused)
	}
	fmt.Fprintf(os.Stderr, "%d entr(ies)\n", len(entries))
	return nil
}

func cacheStatsCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	entries, err := service.AnalysisCache().ListEntries(c.Context, time.Time{}, 0)
	if err != nil {
		return err
	}

	reused := 0
	for _, entry := range entries {
		if !entry.LastReusedAt.IsZero() {
			reused++
		}
	}

	fmt.Printf("Entries:   %d\n", len(entries))
	fmt.Printf("Reused:    %d\n", reused)
	if len(entries) > 0 {
		fmt.Printf("Oldest:    %s\n", entries[0].FirstSeenAt.Format(time.RFC3339))
		fmt.Printf("Newest:    %s\n", entries[len(entries)-1].FirstSeenAt.Format(time.RFC3339))
	}
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
