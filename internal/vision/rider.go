package vision

import "math"

// RiderAssociator decides which person detections are riders, i.e.
// candidates for violation checking. The heuristic intentionally favors
// recall: a person overlapping a two-wheeler even slightly, or whose
// center sits within 1.5x the vehicle extent, counts as a rider. Ties
// (a person near multiple vehicles) resolve on first match, not best
// match.
type RiderAssociator struct {
	OverlapThreshold float64
	CenterFactor     float64
	VehicleClasses   map[ClassLabel]bool
	TreatAllAsRiders bool
}

// NewRiderAssociator builds an associator from a validated config.
func NewRiderAssociator(cfg PipelineConfig) *RiderAssociator {
	return &RiderAssociator{
		OverlapThreshold: cfg.RiderOverlapThreshold,
		CenterFactor:     cfg.RiderCenterFactor,
		VehicleClasses:   cfg.vehicleClassSet(),
		TreatAllAsRiders: cfg.TreatAllAsRiders,
	}
}

// Associate returns the subset of persons classified as riders given the
// frame's vehicle detections. Vehicles outside the configured class set
// are ignored. When the frame has no vehicle detections at all and the
// treat-all-as-riders fallback is on, every person is a rider.
func (ra *RiderAssociator) Associate(persons, vehicles []Detection) []Detection {
	rideable := vehicles[:0:0]
	for _, v := range vehicles {
		if ra.VehicleClasses[v.Class] {
			rideable = append(rideable, v)
		}
	}

	if len(rideable) == 0 {
		if ra.TreatAllAsRiders {
			riders := make([]Detection, len(persons))
			copy(riders, persons)
			return riders
		}
		return nil
	}

	var riders []Detection
	for _, p := range persons {
		if ra.isRider(p, rideable) {
			riders = append(riders, p)
		}
	}
	return riders
}

// isRider checks one person against every rideable vehicle, stopping at
// the first match.
func (ra *RiderAssociator) isRider(person Detection, vehicles []Detection) bool {
	for _, v := range vehicles {
		if OverlapRatio(person.Box, v.Box) > ra.OverlapThreshold {
			return true
		}
		dx := math.Abs(person.Box.CenterX() - v.Box.CenterX())
		dy := math.Abs(person.Box.CenterY() - v.Box.CenterY())
		if dx < ra.CenterFactor*float64(v.Box.Width()) && dy < ra.CenterFactor*float64(v.Box.Height()) {
			return true
		}
	}
	return false
}
