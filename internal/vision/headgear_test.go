package vision

import "testing"

func TestHeadRegion(t *testing.T) {
	rider := BoxFromXYWH(100, 100, 50, 100)
	region := HeadRegion(rider, 0.35)

	want := Box{X1: 100, Y1: 100, X2: 150, Y2: 135}
	if region != want {
		t.Errorf("expected %+v, got %+v", want, region)
	}

	// Full fraction covers the whole box.
	if full := HeadRegion(rider, 1.0); full != rider {
		t.Errorf("expected full region %+v, got %+v", rider, full)
	}
}

func TestHeadgearClassifier_PresentByOverlap(t *testing.T) {
	hc := NewHeadgearClassifier(DefaultPipelineConfig())

	rider := BoxFromXYWH(100, 100, 50, 100)
	headgear := []Detection{{Box: BoxFromXYWH(100, 95, 50, 20), Confidence: 0.85, Class: ClassHeadgear}}

	res := hc.Classify(rider, headgear)
	if !res.Present {
		t.Fatal("expected headgear present")
	}
	if res.Confidence != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", res.Confidence)
	}
}

func TestHeadgearClassifier_PresentByCenterContainment(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.HeadgearOverlapThreshold = 0.9 // overlap alone won't pass
	hc := NewHeadgearClassifier(cfg)

	rider := BoxFromXYWH(100, 100, 50, 100)
	// Small box whose center (125,110) lies inside the head region.
	headgear := []Detection{{Box: Box{X1: 120, Y1: 105, X2: 130, Y2: 115}, Confidence: 0.6}}

	if res := hc.Classify(rider, headgear); !res.Present {
		t.Fatal("expected presence via center containment")
	}
}

func TestHeadgearClassifier_BestMatchConfidence(t *testing.T) {
	hc := NewHeadgearClassifier(DefaultPipelineConfig())

	rider := BoxFromXYWH(100, 100, 50, 100)
	headgear := []Detection{
		{Box: BoxFromXYWH(100, 95, 50, 20), Confidence: 0.55},
		{Box: BoxFromXYWH(105, 100, 40, 20), Confidence: 0.92},
		{Box: BoxFromXYWH(102, 98, 45, 22), Confidence: 0.70},
	}

	res := hc.Classify(rider, headgear)
	if !res.Present {
		t.Fatal("expected headgear present")
	}
	if res.Confidence != 0.92 {
		t.Errorf("expected max confidence 0.92 retained, got %v", res.Confidence)
	}
}

func TestHeadgearClassifier_Absent(t *testing.T) {
	hc := NewHeadgearClassifier(DefaultPipelineConfig())

	rider := BoxFromXYWH(100, 100, 50, 100)

	// No detections at all.
	if res := hc.Classify(rider, nil); res.Present || res.Confidence != 0 {
		t.Errorf("expected absent with zero confidence, got %+v", res)
	}

	// A detection far from the head region (over the legs).
	legs := []Detection{{Box: BoxFromXYWH(100, 180, 50, 20), Confidence: 0.9}}
	if res := hc.Classify(rider, legs); res.Present {
		t.Error("expected absent for non-head detection")
	}
}
