package vision

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// csvHeader is the violation export column set. Box columns use the
// x,y,w,h-free corner convention to match downstream tooling.
var csvHeader = []string{
	"video_filename", "frame_id", "frame_timestamp_ms", "wall_clock_iso",
	"track_id", "class", "confidence",
	"xmin", "ymin", "xmax", "ymax",
	"plate_text", "plate_confidence",
}

// CSVExporter writes violation records as CSV rows. It is a sink
// adapter for session callers; the engine itself owns no file format.
type CSVExporter struct {
	w         *csv.Writer
	videoName string
	wroteHead bool
}

// NewCSVExporter wraps a writer. The header row is written lazily on
// the first record so an empty session produces no file content, which
// matches the behavior of sessions with zero violations.
func NewCSVExporter(w io.Writer, videoName string) *CSVExporter {
	return &CSVExporter{w: csv.NewWriter(w), videoName: videoName}
}

// WriteViolation appends one record.
func (e *CSVExporter) WriteViolation(rec ViolationRecord) error {
	if !e.wroteHead {
		if err := e.w.Write(csvHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		e.wroteHead = true
	}

	plateText := ""
	plateConf := "0"
	if rec.Plate != nil {
		plateText = rec.Plate.Text
		plateConf = strconv.FormatFloat(rec.Plate.Confidence, 'f', 4, 64)
	}

	row := []string{
		e.videoName,
		strconv.Itoa(rec.FrameIndex),
		strconv.FormatInt(rec.FrameTimestampMs, 10),
		rec.WallClock.Format(time.RFC3339Nano),
		rec.TrackID,
		rec.ViolationType,
		strconv.FormatFloat(rec.Confidence, 'f', 4, 64),
		strconv.Itoa(rec.Box.X1),
		strconv.Itoa(rec.Box.Y1),
		strconv.Itoa(rec.Box.X2),
		strconv.Itoa(rec.Box.Y2),
		plateText,
		plateConf,
	}
	if err := e.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	return nil
}

// Flush drains buffered rows to the underlying writer.
func (e *CSVExporter) Flush() error {
	e.w.Flush()
	return e.w.Error()
}
