package vision

import "fmt"

// RiderTracker is the multi-object tracker collaborator contract: given
// the current frame's rider detections, return tracked riders with
// stable identities. Implementations own identity assignment and track
// lifecycle; the fusion pipeline only filters on IsConfirmed.
type RiderTracker interface {
	Update(riders []Detection, frameIndex int) []TrackedRider
}

// TrackerConfig holds configuration for the default IoU tracker.
type TrackerConfig struct {
	MaxTracks     int     // maximum concurrent tracks
	MaxMisses     int     // consecutive missed frames before deletion
	HitsToConfirm int     // consecutive hits needed for confirmation
	MinIoU        float64 // association gate
}

// DefaultTrackerConfig returns defaults tuned for rider tracking at
// typical traffic-camera frame rates: tracks confirm on first hit and
// survive one second of misses at 30 fps.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxTracks:     64,
		MaxMisses:     30,
		HitsToConfirm: 1,
		MinIoU:        0.2,
	}
}

// riderTrack is the internal per-identity tracker state.
type riderTrack struct {
	id         string
	det        Detection
	hits       int
	misses     int
	confirmed  bool
	lastFrame  int
	matchedNow bool
}

// IoUTracker is the default in-process RiderTracker: greedy
// nearest-by-IoU association with a hit/miss lifecycle. It trades the
// appearance features of heavier trackers for zero external
// dependencies; swap in a real tracker via the RiderTracker interface
// when identity robustness matters.
//
// Not safe for concurrent use; one instance per session.
type IoUTracker struct {
	cfg    TrackerConfig
	tracks []*riderTrack
	nextID int64
}

// NewIoUTracker creates a tracker with the given configuration.
func NewIoUTracker(cfg TrackerConfig) *IoUTracker {
	return &IoUTracker{cfg: cfg, nextID: 1}
}

// Update associates the frame's rider detections to existing tracks,
// ages out stale tracks and spawns new ones. It returns one TrackedRider
// per detection matched or created this frame; coasting tracks are not
// reported.
func (t *IoUTracker) Update(riders []Detection, frameIndex int) []TrackedRider {
	for _, tr := range t.tracks {
		tr.matchedNow = false
	}

	out := make([]TrackedRider, 0, len(riders))
	for _, det := range riders {
		best := t.bestMatch(det)
		if best == nil {
			if len(t.tracks) >= t.cfg.MaxTracks {
				continue
			}
			best = &riderTrack{id: fmt.Sprintf("rider_%d", t.nextID)}
			t.nextID++
			t.tracks = append(t.tracks, best)
		}

		best.det = det
		best.hits++
		best.misses = 0
		best.lastFrame = frameIndex
		best.matchedNow = true
		if best.hits >= t.cfg.HitsToConfirm {
			best.confirmed = true
		}

		out = append(out, TrackedRider{
			Detection:       det,
			TrackID:         best.id,
			TrackConfidence: det.Confidence,
			Confirmed:       best.confirmed,
		})
	}

	// Age unmatched tracks and drop the ones past MaxMisses.
	kept := t.tracks[:0]
	for _, tr := range t.tracks {
		if !tr.matchedNow {
			tr.misses++
			tr.hits = 0
			if tr.misses > t.cfg.MaxMisses {
				continue
			}
		}
		kept = append(kept, tr)
	}
	t.tracks = kept

	return out
}

// bestMatch finds the unmatched track with the highest IoU above the
// gate, or nil.
func (t *IoUTracker) bestMatch(det Detection) *riderTrack {
	var best *riderTrack
	bestIoU := t.cfg.MinIoU
	for _, tr := range t.tracks {
		if tr.matchedNow {
			continue
		}
		if iou := OverlapRatio(det.Box, tr.det.Box); iou > bestIoU {
			bestIoU = iou
			best = tr
		}
	}
	return best
}

// ActiveTracks returns the number of live tracks, for diagnostics.
func (t *IoUTracker) ActiveTracks() int {
	return len(t.tracks)
}
