package vision

// TrackState is the debounce lifecycle state of one tracked identity.
type TrackState string

const (
	// TrackStateNone means the track has never been observed by the
	// debounce table. Zero value for a fresh entry.
	TrackStateNone TrackState = "no-state"
	// TrackStateCompliant means headgear was present on the last
	// observation. Re-entry into violation emits immediately.
	TrackStateCompliant TrackState = "compliant"
	// TrackStateViolating means headgear was absent on the last
	// observation; repeated emissions are throttled by the re-log
	// interval.
	TrackStateViolating TrackState = "violating"
)

// trackDebounce is the per-identity state. lastLoggedFrame uses the
// neverLogged sentinel rather than relying on zero-value arithmetic, so
// frame index 0 behaves like any other frame.
type trackDebounce struct {
	state           TrackState
	lastLoggedFrame int
	lastSeenFrame   int
}

const neverLogged = -1 << 30

// DebounceTable throttles repeated violation reports per track identity.
// It is the only mutable state in the fusion path and is owned by one
// FusionPipeline; it is not safe for concurrent use. Frames must be
// applied in strictly increasing order.
type DebounceTable struct {
	interval   int
	pruneAfter int
	tracks     map[string]*trackDebounce
}

// NewDebounceTable creates a table with the given re-log interval in
// frames. Entries whose track has been absent for 3x the interval are
// pruned opportunistically to bound memory on long sessions.
func NewDebounceTable(reLogInterval int) *DebounceTable {
	return &DebounceTable{
		interval:   reLogInterval,
		pruneAfter: 3 * reLogInterval,
		tracks:     make(map[string]*trackDebounce),
	}
}

// Observe applies one frame's headgear verdict for a track and reports
// whether a violation record should be emitted this frame.
//
// Transitions:
//   - no-state/compliant + absent: emit, enter violating
//   - violating + absent, interval elapsed: emit again
//   - violating + absent, interval not elapsed: suppress
//   - any state + present: enter compliant, no emission; the timer is
//     implicitly reset so a later absence emits immediately
func (dt *DebounceTable) Observe(trackID string, frameIndex int, headgearPresent bool) bool {
	e := dt.tracks[trackID]
	if e == nil {
		e = &trackDebounce{state: TrackStateNone, lastLoggedFrame: neverLogged}
		dt.tracks[trackID] = e
	}
	e.lastSeenFrame = frameIndex

	if headgearPresent {
		e.state = TrackStateCompliant
		return false
	}

	switch e.state {
	case TrackStateViolating:
		if frameIndex-e.lastLoggedFrame >= dt.interval {
			e.lastLoggedFrame = frameIndex
			return true
		}
		return false
	default: // no-state or compliant
		e.state = TrackStateViolating
		e.lastLoggedFrame = frameIndex
		return true
	}
}

// State returns the current debounce state for a track.
func (dt *DebounceTable) State(trackID string) TrackState {
	if e, ok := dt.tracks[trackID]; ok {
		return e.state
	}
	return TrackStateNone
}

// Prune drops entries whose track has not been observed for the prune
// window. Safe to call every frame; the map stays small.
func (dt *DebounceTable) Prune(currentFrame int) {
	for id, e := range dt.tracks {
		if currentFrame-e.lastSeenFrame > dt.pruneAfter {
			delete(dt.tracks, id)
		}
	}
}

// Len returns the number of live entries.
func (dt *DebounceTable) Len() int {
	return len(dt.tracks)
}
