package vision

import "testing"

func TestDebounce_FirstAbsenceEmits(t *testing.T) {
	dt := NewDebounceTable(30)

	if !dt.Observe("t1", 1, false) {
		t.Fatal("expected emission on first absence")
	}
	if dt.State("t1") != TrackStateViolating {
		t.Errorf("expected violating state, got %v", dt.State("t1"))
	}
}

func TestDebounce_ContinuousViolationEmitsAtInterval(t *testing.T) {
	dt := NewDebounceTable(30)

	var emitted []int
	for frame := 1; frame <= 100; frame++ {
		if dt.Observe("t1", frame, false) {
			emitted = append(emitted, frame)
		}
	}

	want := []int{1, 31, 61, 91}
	if len(emitted) != len(want) {
		t.Fatalf("expected emissions at %v, got %v", want, emitted)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("expected emissions at %v, got %v", want, emitted)
		}
	}
}

func TestDebounce_ExactIntervalBoundary(t *testing.T) {
	dt := NewDebounceTable(30)

	dt.Observe("t1", 10, false) // emits, last logged = 10
	if dt.Observe("t1", 39, false) {
		t.Error("frame 39: interval not yet elapsed, expected suppression")
	}
	if !dt.Observe("t1", 40, false) {
		t.Error("frame 40: interval elapsed, expected emission")
	}
}

func TestDebounce_ComplianceResetsTimer(t *testing.T) {
	dt := NewDebounceTable(30)

	if !dt.Observe("t1", 1, false) {
		t.Fatal("expected initial emission")
	}

	// Headgear appears: compliant, no emission.
	if dt.Observe("t1", 5, true) {
		t.Error("expected no emission when headgear present")
	}
	if dt.State("t1") != TrackStateCompliant {
		t.Errorf("expected compliant state, got %v", dt.State("t1"))
	}

	// Headgear removed again well before the interval would have
	// elapsed: fresh violation, immediate emission.
	if !dt.Observe("t1", 8, false) {
		t.Error("expected immediate re-emission after compliance reset")
	}
}

func TestDebounce_TracksAreIndependent(t *testing.T) {
	dt := NewDebounceTable(30)

	if !dt.Observe("a", 1, false) {
		t.Fatal("track a: expected emission")
	}
	if !dt.Observe("b", 2, false) {
		t.Fatal("track b: expected independent emission")
	}
	if dt.Observe("a", 3, false) {
		t.Error("track a: expected suppression within interval")
	}
}

func TestDebounce_HeadgearPresentNeverEmits(t *testing.T) {
	dt := NewDebounceTable(30)

	for frame := 1; frame <= 90; frame++ {
		if dt.Observe("t1", frame, true) {
			t.Fatalf("frame %d: emission despite headgear present", frame)
		}
	}
	if dt.State("t1") != TrackStateCompliant {
		t.Errorf("expected compliant, got %v", dt.State("t1"))
	}
}

func TestDebounce_FrameZeroBehavesNormally(t *testing.T) {
	dt := NewDebounceTable(30)

	if !dt.Observe("t1", 0, false) {
		t.Fatal("expected emission at frame 0")
	}
	if dt.Observe("t1", 15, false) {
		t.Error("expected suppression within interval starting at frame 0")
	}
	if !dt.Observe("t1", 30, false) {
		t.Error("expected emission once interval elapsed from frame 0")
	}
}

func TestDebounce_PruneDropsStaleTracks(t *testing.T) {
	dt := NewDebounceTable(30)

	dt.Observe("old", 1, false)
	dt.Observe("fresh", 1, false)
	if dt.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", dt.Len())
	}

	// Keep "fresh" alive past the prune window; never observe "old" again.
	dt.Observe("fresh", 100, false)
	dt.Prune(100)

	if dt.Len() != 1 {
		t.Errorf("expected stale track pruned, got %d entries", dt.Len())
	}
	if dt.State("old") != TrackStateNone {
		t.Errorf("expected pruned track to read as no-state, got %v", dt.State("old"))
	}
	if dt.State("fresh") != TrackStateViolating {
		t.Errorf("expected fresh track retained, got %v", dt.State("fresh"))
	}
}
