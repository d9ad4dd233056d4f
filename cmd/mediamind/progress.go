package main

import (
	"fmt"
	"io"
	"time"
)

// progressDisplay renders a polled task status to a terminal on one
// updating line. It remembers what it printed last so unchanged polls do
// not redraw.
type progressDisplay struct {
	writer       io.Writer
	startTime    time.Time
	lastProgress int
	lastStep     string
}

func newProgressDisplay(writer io.Writer) *progressDisplay {
	return &progressDisplay{
		writer:       writer,
		startTime:    time.Now(),
		lastProgress: -1,
	}
}

// Update redraws the progress line if anything changed.
func (p *progressDisplay) Update(progress int, step string) {
	if progress == p.lastProgress && step == p.lastStep {
		return
	}
	p.lastProgress = progress
	p.lastStep = step

	elapsed := time.Since(p.startTime).Round(time.Second)
	fmt.Fprintf(p.writer, "\r%3d%%  %-16s  %s elapsed", progress, step, elapsed)
}

// Finish prints the terminal outcome on its own line.
func (p *progressDisplay) Finish(status string) {
	elapsed := time.Since(p.startTime).Round(time.Second)
	fmt.Fprintf(p.writer, "\r%s after %s%-24s\n", status, elapsed, "")
}
