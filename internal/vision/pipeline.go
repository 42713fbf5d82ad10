package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/singharyan006/ride-secure/internal/timeutil"
)

// ObjectDetector is the detection collaborator contract: given a frame
// and a confidence floor, return labeled detections. A failure is
// treated as zero detections for the frame, never as a session abort.
type ObjectDetector interface {
	Detect(ctx context.Context, frame Frame, confidenceFloor float64) ([]Detection, error)
}

// PlateReader is the OCR collaborator contract: locate plate regions in
// a frame and return raw text candidates per region.
type PlateReader interface {
	ReadPlates(ctx context.Context, frame Frame) ([]PlateReading, error)
}

// FusionDeps holds the collaborator handles injected into a pipeline.
// Handles are owned by the pipeline for the session's lifetime; never
// process-wide singletons, so sessions stay isolated.
type FusionDeps struct {
	// Tracker assigns stable identities to rider detections. Nil gets a
	// default IoUTracker.
	Tracker RiderTracker
	// Detector yields person/vehicle/headgear detections. Required only
	// for ProcessFrame; callers of ProcessObservations may omit it.
	Detector ObjectDetector
	// Plates reads identification plates. Optional.
	Plates PlateReader
	// Log receives structured pipeline events.
	Log zerolog.Logger
	// Clock supplies session and frame timing. Nil gets the real clock.
	Clock timeutil.Clock
}

// FusionPipeline composes the rider associator, headgear classifier,
// debounce table and plate correlator into the per-frame fusion step.
// One pipeline per session; not safe for concurrent use. Frames must be
// applied in strict arrival order.
type FusionPipeline struct {
	cfg        PipelineConfig
	rider      *RiderAssociator
	headgear   *HeadgearClassifier
	debounce   *DebounceTable
	validator  *PlateValidator
	correlator *PlateCorrelator
	tracker    RiderTracker
	detector   ObjectDetector
	plates     PlateReader
	stats      *SessionStats
	log        zerolog.Logger

	clock          timeutil.Clock
	sessionStart   time.Time
	lastFrameIndex int
	sawFrame       bool
}

// NewFusionPipeline validates the configuration and builds a session
// pipeline. Configuration errors are the only fatal errors in this
// package; everything after construction degrades per frame.
func NewFusionPipeline(cfg PipelineConfig, deps FusionDeps) (*FusionPipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	validator, err := NewPlateValidator(cfg.PlatePatterns)
	if err != nil {
		return nil, err
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = NewIoUTracker(DefaultTrackerConfig())
	}
	clock := deps.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &FusionPipeline{
		cfg:          cfg,
		rider:        NewRiderAssociator(cfg),
		headgear:     NewHeadgearClassifier(cfg),
		debounce:     NewDebounceTable(cfg.ReLogInterval),
		validator:    validator,
		correlator:   NewPlateCorrelator(cfg),
		tracker:      tracker,
		detector:     deps.Detector,
		plates:       deps.Plates,
		stats:        NewSessionStats(),
		log:          deps.Log,
		clock:        clock,
		sessionStart: clock.Now(),
	}, nil
}

// Config returns the session's immutable configuration.
func (fp *FusionPipeline) Config() PipelineConfig {
	return fp.cfg
}

// Stats exposes the session accumulator for snapshotting.
func (fp *FusionPipeline) Stats() *SessionStats {
	return fp.stats
}

// ProcessFrame runs the injected detector and OCR collaborators on a
// frame, then fuses their outputs. Collaborator failures degrade to
// "fewer detections this frame" and surface in
// FrameResult.CollaboratorFaults.
func (fp *FusionPipeline) ProcessFrame(ctx context.Context, frame Frame) FrameResult {
	// ProcessingMs covers the whole frame, collaborators included.
	start := fp.clock.Now()
	obs := FrameObservations{FrameIndex: frame.Index, TimestampMs: frame.TimestampMs}
	var faults []string

	if fp.detector == nil {
		faults = append(faults, "object detector not configured")
	} else if dets, err := fp.detector.Detect(ctx, frame, fp.cfg.DetectorConfidence); err != nil {
		fp.log.Warn().Err(err).Int("frame", frame.Index).Msg("object detector unavailable, continuing with zero detections")
		faults = append(faults, fmt.Sprintf("object detector: %v", err))
	} else {
		vehicleSet := fp.cfg.vehicleClassSet()
		for _, d := range dets {
			switch {
			case d.Class == ClassPerson:
				obs.Persons = append(obs.Persons, d)
			case vehicleSet[d.Class]:
				obs.Vehicles = append(obs.Vehicles, d)
			case d.Class == ClassHeadgear:
				obs.Headgear = append(obs.Headgear, d)
			}
		}
	}

	if fp.plates != nil {
		readings, err := fp.plates.ReadPlates(ctx, frame)
		if err != nil {
			fp.log.Warn().Err(err).Int("frame", frame.Index).Msg("plate reader unavailable, continuing without plates")
			faults = append(faults, fmt.Sprintf("plate reader: %v", err))
		} else {
			obs.Plates = readings
		}
	}

	result := fp.processObservations(obs, start)
	for range faults {
		fp.stats.AddFault()
	}
	result.CollaboratorFaults = append(result.CollaboratorFaults, faults...)
	return result
}

// ProcessObservations fuses one frame's collaborator outputs: rider
// association, tracking, headgear classification, debounce, plate
// correlation. Mutates the debounce table and session stats.
func (fp *FusionPipeline) ProcessObservations(obs FrameObservations) FrameResult {
	return fp.processObservations(obs, fp.clock.Now())
}

// processObservations is the shared fusion step. start is when work on
// the frame began, so ProcessFrame charges collaborator time to the
// frame it belongs to.
func (fp *FusionPipeline) processObservations(obs FrameObservations, start time.Time) FrameResult {
	if fp.sawFrame && obs.FrameIndex <= fp.lastFrameIndex {
		fp.log.Warn().
			Int("frame", obs.FrameIndex).
			Int("last_frame", fp.lastFrameIndex).
			Msg("frame applied out of order; debounce timing may be unreliable")
	}
	fp.lastFrameIndex = obs.FrameIndex
	fp.sawFrame = true

	result := FrameResult{FrameIndex: obs.FrameIndex, TimestampMs: obs.TimestampMs}

	// Stage 1: rider association (stateless).
	riders := fp.rider.Associate(obs.Persons, obs.Vehicles)

	// Stage 2: tracking. Unconfirmed tracks drop out before headgear
	// classification; their debounce state stays untouched.
	tracked := fp.tracker.Update(riders, obs.FrameIndex)

	// Stage 3: resolve and filter plate evidence once per frame.
	var resolved []PlateMatch
	for _, reading := range obs.Plates {
		if match, ok := fp.validator.Resolve(reading); ok {
			resolved = append(resolved, match)
			result.Annotations = append(result.Annotations, Annotation{
				Kind:  AnnotatePlate,
				Box:   match.Box,
				Label: fmt.Sprintf("%s (%.2f)", match.Text, match.Confidence),
			})
		}
	}
	validPlates := fp.correlator.FilterValid(resolved)
	result.ValidPlates = len(validPlates)
	fp.stats.AddPlatesSeen(len(validPlates))

	// Stage 4: headgear classification + debounce per confirmed rider.
	plateUsed := make([]bool, len(validPlates))
	for _, rider := range tracked {
		if !rider.IsConfirmed() {
			continue
		}
		result.RidersTracked++

		hg := fp.headgear.Classify(rider.Box, obs.Headgear)

		verdict := "no-headgear"
		if hg.Present {
			verdict = "headgear"
		}
		result.Annotations = append(result.Annotations,
			Annotation{Kind: AnnotateRider, Box: rider.Box, Label: fmt.Sprintf("ID%s %s", rider.TrackID, verdict)},
			Annotation{Kind: AnnotateHeadRegion, Box: hg.Region, Label: rider.TrackID},
		)

		if !fp.debounce.Observe(rider.TrackID, obs.FrameIndex, hg.Present) {
			continue
		}

		rec := ViolationRecord{
			ID:               uuid.NewString(),
			FrameIndex:       obs.FrameIndex,
			FrameTimestampMs: obs.TimestampMs,
			WallClock:        fp.sessionStart.Add(time.Duration(obs.TimestampMs) * time.Millisecond),
			TrackID:          rider.TrackID,
			ViolationType:    ViolationNoHeadgear,
			Confidence:       rider.TrackConfidence,
			Box:              rider.Box,
		}

		// Stage 5: plate correlation. Each plate attaches to at most one
		// record per frame (nearest wins, no sharing).
		if plate, ok := fp.correlator.Attach(rec.Box, validPlates, plateUsed); ok {
			rec.Plate = &plate
			rec.Confidence = FuseConfidence(rec.Confidence, plate.Confidence)
		} else if fp.cfg.RequirePlate {
			// Normal discard path, not an error. The debounce timer has
			// already advanced, so the withheld report is not retried on
			// every subsequent frame.
			fp.log.Debug().
				Str("track", rider.TrackID).
				Int("frame", obs.FrameIndex).
				Msg("violation discarded: no valid plate and plate is required")
			continue
		}

		result.Violations = append(result.Violations, rec)
		result.Annotations = append(result.Annotations, Annotation{
			Kind:  AnnotateViolation,
			Box:   rec.Box,
			Label: rec.ViolationType,
		})
		fp.stats.AddViolation(rec)

		event := fp.log.Info().
			Str("track", rider.TrackID).
			Int("frame", obs.FrameIndex).
			Float64("confidence", rec.Confidence)
		if rec.Plate != nil {
			event = event.Str("plate", rec.Plate.Text)
		}
		event.Msg("violation recorded")
	}

	fp.debounce.Prune(obs.FrameIndex)

	result.ProcessingMs = float64(fp.clock.Since(start)) / float64(time.Millisecond)
	fp.stats.AddFrame(result.ProcessingMs)
	return result
}

// FinalizeSession computes the summary over the session's video duration
// in seconds. The pipeline remains usable afterwards, but a fresh
// session should be constructed for a new video.
func (fp *FusionPipeline) FinalizeSession(durationSeconds float64) SessionSummary {
	summary := fp.stats.Summarize(durationSeconds)
	fp.log.Info().
		Int("frames", summary.FramesProcessed).
		Int("violations", summary.TotalViolations).
		Float64("rate_per_minute", summary.ViolationRatePerMinute).
		Float64("avg_ms", summary.AvgProcessingMs).
		Msg("session finalized")
	return summary
}
