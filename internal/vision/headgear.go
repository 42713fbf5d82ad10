package vision

// HeadRegion derives the head region of a rider box: the top fraction
// of its height, full width. Derived on demand, never stored.
func HeadRegion(rider Box, fraction float64) Box {
	return Box{
		X1: rider.X1,
		Y1: rider.Y1,
		X2: rider.X2,
		Y2: rider.Y1 + int(float64(rider.Height())*fraction),
	}
}

// HeadgearResult is the verdict for one rider in one frame: presence of
// protective headgear over the head region plus the best-evidence
// confidence among matching headgear detections (0 when absent).
type HeadgearResult struct {
	Present    bool
	Confidence float64
	Region     Box
}

// HeadgearClassifier is a boolean presence classifier with an associated
// best-match confidence. Which kind of headgear is out of scope.
type HeadgearClassifier struct {
	HeadFraction     float64
	OverlapThreshold float64
}

// NewHeadgearClassifier builds a classifier from a validated config.
func NewHeadgearClassifier(cfg PipelineConfig) *HeadgearClassifier {
	return &HeadgearClassifier{
		HeadFraction:     cfg.HeadFraction,
		OverlapThreshold: cfg.HeadgearOverlapThreshold,
	}
}

// Classify checks every headgear detection against the rider's head
// region. A detection matches when its IoU with the head region meets
// the threshold, or when its center lies inside the region. The maximum
// confidence among matches becomes the fused headgear confidence.
func (hc *HeadgearClassifier) Classify(rider Box, headgear []Detection) HeadgearResult {
	region := HeadRegion(rider, hc.HeadFraction)
	result := HeadgearResult{Region: region}

	for _, hg := range headgear {
		overlap := OverlapRatio(region, hg.Box)
		if overlap >= hc.OverlapThreshold || ContainsCenter(region, hg.Box) {
			result.Present = true
			if hg.Confidence > result.Confidence {
				result.Confidence = hg.Confidence
			}
		}
	}
	return result
}
