package vision

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// SessionStats accumulates per-frame counters across one processing
// session. Thread-safe so a caller may snapshot mid-session from another
// goroutine (e.g. a statistics endpoint) while the pipeline runs.
// Reset only by constructing a new session.
type SessionStats struct {
	mu              sync.Mutex
	framesProcessed int
	violations      int
	withPlate       int
	withoutPlate    int
	platesSeen      int
	faults          int
	frameTimesMs    []float64
	plateTexts      map[string]struct{}
}

// NewSessionStats creates an empty accumulator.
func NewSessionStats() *SessionStats {
	return &SessionStats{plateTexts: make(map[string]struct{})}
}

// AddFrame records one processed frame and its processing duration.
func (s *SessionStats) AddFrame(processingMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesProcessed++
	s.frameTimesMs = append(s.frameTimesMs, processingMs)
}

// AddViolation records an emitted violation and its plate evidence.
func (s *SessionStats) AddViolation(rec ViolationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations++
	if rec.Plate != nil {
		s.withPlate++
		s.plateTexts[rec.Plate.Text] = struct{}{}
	} else {
		s.withoutPlate++
	}
}

// AddPlatesSeen records the number of valid plate readings in a frame.
func (s *SessionStats) AddPlatesSeen(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.platesSeen += n
}

// AddFault records one collaborator fault (degraded frame).
func (s *SessionStats) AddFault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults++
}

// SessionSnapshot is a point-in-time view of the running counters.
type SessionSnapshot struct {
	FramesProcessed    int `json:"frames_processed"`
	Violations         int `json:"violations"`
	PlatesSeen         int `json:"plates_seen"`
	CollaboratorFaults int `json:"collaborator_faults"`
}

// Snapshot returns the current counters without finalizing the session.
func (s *SessionStats) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		FramesProcessed:    s.framesProcessed,
		Violations:         s.violations,
		PlatesSeen:         s.platesSeen,
		CollaboratorFaults: s.faults,
	}
}

// SessionSummary is the finalized result of one session.
type SessionSummary struct {
	FramesProcessed        int      `json:"frames_processed"`
	TotalViolations        int      `json:"total_violations"`
	ViolationsWithPlate    int      `json:"violations_with_plate"`
	ViolationsWithoutPlate int      `json:"violations_without_plate"`
	UniquePlates           []string `json:"unique_plates"`
	PlatesSeen             int      `json:"plates_seen"`
	CollaboratorFaults     int      `json:"collaborator_faults"`

	DurationSeconds        float64 `json:"duration_seconds"`
	ViolationRatePerMinute float64 `json:"violation_rate_per_minute"`

	AvgProcessingMs        float64 `json:"avg_processing_ms"`
	P95ProcessingMs        float64 `json:"p95_processing_ms"`
	ProcessingFPS          float64 `json:"processing_fps"`
	TotalProcessingSeconds float64 `json:"total_processing_seconds"`
}

// Summarize finalizes the session over the video duration in seconds.
// Zero duration or zero average time report zero rates rather than
// dividing by zero.
func (s *SessionStats) Summarize(durationSeconds float64) SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := SessionSummary{
		FramesProcessed:        s.framesProcessed,
		TotalViolations:        s.violations,
		ViolationsWithPlate:    s.withPlate,
		ViolationsWithoutPlate: s.withoutPlate,
		PlatesSeen:             s.platesSeen,
		CollaboratorFaults:     s.faults,
		DurationSeconds:        durationSeconds,
	}

	summary.UniquePlates = make([]string, 0, len(s.plateTexts))
	for text := range s.plateTexts {
		summary.UniquePlates = append(summary.UniquePlates, text)
	}
	sort.Strings(summary.UniquePlates)

	if durationSeconds > 0 {
		summary.ViolationRatePerMinute = float64(s.violations) / (durationSeconds / 60.0)
	}

	if len(s.frameTimesMs) > 0 {
		summary.AvgProcessingMs = stat.Mean(s.frameTimesMs, nil)

		sorted := make([]float64, len(s.frameTimesMs))
		copy(sorted, s.frameTimesMs)
		sort.Float64s(sorted)
		summary.P95ProcessingMs = stat.Quantile(0.95, stat.Empirical, sorted, nil)

		var total float64
		for _, ms := range s.frameTimesMs {
			total += ms
		}
		summary.TotalProcessingSeconds = total / 1000.0
	}

	if summary.AvgProcessingMs > 0 {
		summary.ProcessingFPS = 1000.0 / summary.AvgProcessingMs
	}

	return summary
}
