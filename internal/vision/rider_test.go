package vision

import "testing"

func testRiderAssociator(treatAll bool) *RiderAssociator {
	cfg := DefaultPipelineConfig()
	cfg.TreatAllAsRiders = treatAll
	return NewRiderAssociator(cfg)
}

func TestRiderAssociator_OverlapMatch(t *testing.T) {
	ra := testRiderAssociator(false)

	person := Detection{Box: BoxFromXYWH(100, 100, 50, 100), Confidence: 0.9, Class: ClassPerson}
	vehicle := Detection{Box: BoxFromXYWH(90, 150, 80, 60), Confidence: 0.8, Class: ClassMotorcycle}

	riders := ra.Associate([]Detection{person}, []Detection{vehicle})
	if len(riders) != 1 {
		t.Fatalf("expected 1 rider, got %d", len(riders))
	}
	if riders[0].Box != person.Box {
		t.Errorf("unexpected rider box: %+v", riders[0].Box)
	}
}

func TestRiderAssociator_CenterProximityMatch(t *testing.T) {
	ra := testRiderAssociator(false)

	// No box overlap, but person center within 1.5x vehicle extent.
	person := Detection{Box: Box{X1: 200, Y1: 0, X2: 250, Y2: 90}, Class: ClassPerson}
	vehicle := Detection{Box: Box{X1: 180, Y1: 100, X2: 280, Y2: 160}, Class: ClassBicycle}

	riders := ra.Associate([]Detection{person}, []Detection{vehicle})
	if len(riders) != 1 {
		t.Fatalf("expected 1 rider via center proximity, got %d", len(riders))
	}
}

func TestRiderAssociator_FarPersonExcluded(t *testing.T) {
	ra := testRiderAssociator(false)

	person := Detection{Box: Box{X1: 1000, Y1: 1000, X2: 1050, Y2: 1100}, Class: ClassPerson}
	vehicle := Detection{Box: Box{X1: 0, Y1: 0, X2: 100, Y2: 60}, Class: ClassMotorcycle}

	if riders := ra.Associate([]Detection{person}, []Detection{vehicle}); len(riders) != 0 {
		t.Fatalf("expected 0 riders, got %d", len(riders))
	}
}

func TestRiderAssociator_NonVehicleClassesIgnored(t *testing.T) {
	ra := testRiderAssociator(false)

	person := Detection{Box: BoxFromXYWH(100, 100, 50, 100), Class: ClassPerson}
	// Same geometry as a matching vehicle, but not a rideable class.
	truck := Detection{Box: BoxFromXYWH(90, 150, 80, 60), Class: ClassUnknown}

	if riders := ra.Associate([]Detection{person}, []Detection{truck}); len(riders) != 0 {
		t.Fatalf("expected 0 riders when only non-rideable classes present, got %d", len(riders))
	}
}

func TestRiderAssociator_TreatAllFallback(t *testing.T) {
	persons := []Detection{
		{Box: Box{X1: 0, Y1: 0, X2: 50, Y2: 100}, Class: ClassPerson},
		{Box: Box{X1: 200, Y1: 0, X2: 250, Y2: 100}, Class: ClassPerson},
	}

	// Flag off, no vehicles: nobody is a rider.
	if riders := testRiderAssociator(false).Associate(persons, nil); len(riders) != 0 {
		t.Fatalf("flag off: expected 0 riders, got %d", len(riders))
	}

	// Flag on, no vehicles: everybody is a rider.
	riders := testRiderAssociator(true).Associate(persons, nil)
	if len(riders) != len(persons) {
		t.Fatalf("flag on: expected %d riders, got %d", len(persons), len(riders))
	}

	// Flag on but vehicles present: the normal heuristic applies, so a
	// far-away person is still excluded.
	far := Detection{Box: Box{X1: 5000, Y1: 5000, X2: 5050, Y2: 5100}, Class: ClassPerson}
	vehicle := Detection{Box: Box{X1: 0, Y1: 50, X2: 100, Y2: 110}, Class: ClassMotorcycle}
	riders = testRiderAssociator(true).Associate([]Detection{far}, []Detection{vehicle})
	if len(riders) != 0 {
		t.Fatalf("flag on with vehicles: expected heuristic to apply, got %d riders", len(riders))
	}
}

func TestRiderAssociator_FirstMatchTieBreak(t *testing.T) {
	ra := testRiderAssociator(false)

	// Person near two vehicles: association stops at the first match and
	// the person appears exactly once.
	person := Detection{Box: BoxFromXYWH(100, 100, 50, 100), Class: ClassPerson}
	vehicles := []Detection{
		{Box: BoxFromXYWH(90, 150, 80, 60), Class: ClassMotorcycle},
		{Box: BoxFromXYWH(95, 150, 80, 60), Class: ClassBicycle},
	}

	riders := ra.Associate([]Detection{person}, vehicles)
	if len(riders) != 1 {
		t.Fatalf("expected person to appear once, got %d", len(riders))
	}
}
