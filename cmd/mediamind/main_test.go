package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestSetupLogger(t *testing.T) {
	newApp := func() *cli.App {
		return &cli.App{
			Name:   "mediamind",
			Before: setupLogger,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Action: func(c *cli.Context) error { return nil },
		}
	}

	t.Run("valid levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "Info"} {
			err := newApp().Run([]string{"mediamind", "--log-level", level})
			assert.NoError(t, err, "level %q should be accepted", level)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		err := newApp().Run([]string{"mediamind", "--log-level", "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("debug level enabled", func(t *testing.T) {
		require.NoError(t, newApp().Run([]string{"mediamind", "--log-level", "debug"}))
		assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
	})
}

func TestIngestCommandValidation(t *testing.T) {
	app := &cli.App{
		Name: "mediamind",
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "library",
						Required: true,
					},
				},
			},
		},
	}

	t.Run("library is required", func(t *testing.T) {
		err := app.Run([]string{"mediamind", "ingest", "some.mp4"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "library")
	})
}

func TestProgressDisplay(t *testing.T) {
	var buf bytes.Buffer
	display := newProgressDisplay(&buf)

	display.Update(5, "fingerprint")
	first := buf.Len()
	require.Greater(t, first, 0)
	assert.Contains(t, buf.String(), "fingerprint")

	// Unchanged state does not redraw
	display.Update(5, "fingerprint")
	assert.Equal(t, first, buf.Len())

	display.Update(60, "await-analysis")
	assert.Contains(t, buf.String(), "await-analysis")

	display.Finish("completed")
	assert.Contains(t, buf.String(), "completed")
}
