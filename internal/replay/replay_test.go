package replay

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singharyan006/ride-secure/internal/vision"
)

func newRunner(t *testing.T) *Runner {
	t.Helper()
	fp, err := vision.NewFusionPipeline(vision.DefaultPipelineConfig(), vision.FusionDeps{Log: zerolog.Nop()})
	require.NoError(t, err)
	return NewRunner(fp, zerolog.Nop())
}

func obsLine(t *testing.T, frameIndex int, worn bool) string {
	t.Helper()
	obs := vision.FrameObservations{
		FrameIndex:  frameIndex,
		TimestampMs: int64(frameIndex) * 40,
		Persons: []vision.Detection{
			{Box: vision.BoxFromXYWH(100, 100, 50, 100), Confidence: 0.8, Class: vision.ClassPerson},
		},
		Vehicles: []vision.Detection{
			{Box: vision.BoxFromXYWH(90, 150, 80, 60), Confidence: 0.9, Class: vision.ClassMotorcycle},
		},
	}
	if worn {
		obs.Headgear = []vision.Detection{
			{Box: vision.BoxFromXYWH(100, 95, 50, 20), Confidence: 0.85, Class: vision.ClassHeadgear},
		}
	}
	raw, err := json.Marshal(obs)
	require.NoError(t, err)
	return string(raw)
}

func TestRun_ProcessesStream(t *testing.T) {
	rn := newRunner(t)

	stream := strings.Join([]string{
		obsLine(t, 1, false),
		"",
		obsLine(t, 2, true),
		obsLine(t, 3, true),
	}, "\n")

	res, err := rn.Run(context.Background(), strings.NewReader(stream), Options{FPS: 25})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Frames)
	assert.Equal(t, 1, res.Violations)
	assert.Equal(t, 3, res.Summary.FramesProcessed)
	assert.Equal(t, 1, res.Summary.TotalViolations)
	// Duration derives from the last recorded timestamp (120 ms).
	assert.InDelta(t, 0.12, res.Summary.DurationSeconds, 1e-9)
}

func TestRun_ExportsViolations(t *testing.T) {
	rn := newRunner(t)

	var export bytes.Buffer
	stream := obsLine(t, 1, false) + "\n" + obsLine(t, 2, true) + "\n"

	res, err := rn.Run(context.Background(), strings.NewReader(stream), Options{
		VideoName: "clip.mp4",
		FPS:       25,
		Export:    &export,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Violations)

	rows, err := csv.NewReader(&export).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2) // header + one violation
	assert.Equal(t, "clip.mp4", rows[1][0])
	assert.Equal(t, "no-headgear", rows[1][5])
}

func TestRun_ExportLabelSanitized(t *testing.T) {
	rn := newRunner(t)

	var export bytes.Buffer
	_, err := rn.Run(context.Background(), strings.NewReader(obsLine(t, 1, false)), Options{
		VideoName: "../cams/gate 3.mp4",
		FPS:       25,
		Export:    &export,
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(&export).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cams_gate_3.mp4", rows[1][0])
}

func TestRun_MalformedLine(t *testing.T) {
	rn := newRunner(t)

	stream := obsLine(t, 1, true) + "\nnot-json\n"
	res, err := rn.Run(context.Background(), strings.NewReader(stream), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, res.Frames)
}

func TestRun_ContextCancellation(t *testing.T) {
	rn := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rn.Run(ctx, strings.NewReader(obsLine(t, 1, false)+"\n"), Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_FallbackDurationFromFPS(t *testing.T) {
	rn := newRunner(t)

	// Timestamps absent: two frames at 25 fps is 0.08 seconds.
	obs := vision.FrameObservations{FrameIndex: 0}
	raw, err := json.Marshal(obs)
	require.NoError(t, err)
	obs2 := vision.FrameObservations{FrameIndex: 1}
	raw2, err := json.Marshal(obs2)
	require.NoError(t, err)

	res, runErr := rn.Run(context.Background(), strings.NewReader(string(raw)+"\n"+string(raw2)+"\n"), Options{FPS: 25})
	require.NoError(t, runErr)
	assert.InDelta(t, 0.08, res.Summary.DurationSeconds, 1e-9)
}

func TestRun_EmptyStream(t *testing.T) {
	rn := newRunner(t)

	res, err := rn.Run(context.Background(), strings.NewReader(""), Options{FPS: 25})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Frames)
	assert.Equal(t, 0, res.Summary.FramesProcessed)
}
