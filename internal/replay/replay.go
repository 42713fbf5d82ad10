// Package replay drives a fusion session from recorded observations:
// one JSON object per line, each a frame's collaborator outputs. This
// is the offline path; live ingestion goes through the HTTP server.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/singharyan006/ride-secure/internal/security"
	"github.com/singharyan006/ride-secure/internal/vision"
)

// maxLineBytes bounds a single observation line. Frames with hundreds
// of detections stay well under this.
const maxLineBytes = 4 * 1024 * 1024

// Options configure one replay run.
type Options struct {
	// VideoName labels exported rows.
	VideoName string
	// FPS is the nominal frame rate, used to derive session duration
	// when timestamps are absent.
	FPS float64
	// Export receives violation rows as CSV when non-nil.
	Export io.Writer
}

// Result is the outcome of a replay run.
type Result struct {
	Summary    vision.SessionSummary
	Frames     int
	Violations int
}

// Runner replays observation streams through a fusion pipeline.
type Runner struct {
	pipeline *vision.FusionPipeline
	log      zerolog.Logger
}

// NewRunner wraps a constructed pipeline.
func NewRunner(pipeline *vision.FusionPipeline, log zerolog.Logger) *Runner {
	return &Runner{pipeline: pipeline, log: log}
}

// Run streams frames from r through the pipeline until EOF or context
// cancellation. Blank lines are skipped; a malformed line aborts the
// run with a line-numbered error.
func (rn *Runner) Run(ctx context.Context, r io.Reader, opts Options) (Result, error) {
	var exporter *vision.CSVExporter
	if opts.Export != nil {
		// The video name is operator input; sanitize it before it labels
		// every exported row.
		exporter = vision.NewCSVExporter(opts.Export, security.SanitizeFilename(opts.VideoName))
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var res Result
	var lastTimestampMs int64
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return res, err
		}

		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var obs vision.FrameObservations
		if err := json.Unmarshal(raw, &obs); err != nil {
			return res, fmt.Errorf("line %d: decode observations: %w", line, err)
		}

		frame := rn.pipeline.ProcessObservations(obs)
		res.Frames++
		res.Violations += len(frame.Violations)
		if obs.TimestampMs > lastTimestampMs {
			lastTimestampMs = obs.TimestampMs
		}

		if exporter != nil {
			for _, rec := range frame.Violations {
				if err := exporter.WriteViolation(rec); err != nil {
					return res, fmt.Errorf("line %d: export violation: %w", line, err)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read observations: %w", err)
	}

	if exporter != nil {
		if err := exporter.Flush(); err != nil {
			return res, fmt.Errorf("flush export: %w", err)
		}
	}

	res.Summary = rn.pipeline.FinalizeSession(rn.duration(res.Frames, lastTimestampMs, opts.FPS))
	return res, nil
}

// duration prefers recorded timestamps; frame count over nominal fps is
// the fallback for streams without timing.
func (rn *Runner) duration(frames int, lastTimestampMs int64, fps float64) float64 {
	if lastTimestampMs > 0 {
		return float64(lastTimestampMs) / 1000.0
	}
	if fps > 0 {
		return float64(frames) / fps
	}
	return 0
}
