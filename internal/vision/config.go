package vision

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidConfig wraps all configuration validation failures. Config
// errors are fatal at session construction, never mid-stream.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// DefaultPlatePatterns are the named plate-format patterns applied after
// OCR text cleanup. Keys appear verbatim in PlateMatch.PatternMatches.
func DefaultPlatePatterns() map[string]string {
	return map[string]string{
		"india_old": `^[A-Z]{2}[0-9]{2}[A-Z]{2}[0-9]{4}$`,
		"india_new": `^[A-Z]{2}[0-9]{2}[A-Z]{1,2}[0-9]{4}$`,
		"standard":  `^[A-Z0-9\-\s]+$`,
	}
}

// PipelineConfig holds tuning parameters for one processing session.
// Validate is called by NewFusionPipeline; a session is never
// constructed from an invalid config.
type PipelineConfig struct {
	// DetectorConfidence is the confidence floor passed to the object
	// detector collaborator.
	DetectorConfidence float64 `json:"detector_confidence"`

	// RiderOverlapThreshold is the minimum person-vehicle IoU for rider
	// association. Deliberately loose (recall over precision): the
	// downstream headgear check is the real violation gate.
	RiderOverlapThreshold float64 `json:"rider_overlap_threshold"`

	// RiderCenterFactor scales the vehicle extent for the center-offset
	// fallback test: a person whose center is within factor*width
	// horizontally and factor*height vertically of a vehicle center is a
	// rider even without box overlap.
	RiderCenterFactor float64 `json:"rider_center_factor"`

	// VehicleClasses is the set of two-wheeler classes considered
	// rideable. Configuration input, not a hard-coded constant.
	VehicleClasses []ClassLabel `json:"vehicle_classes"`

	// TreatAllAsRiders, when set, treats every person as a rider on
	// frames with no vehicle detections at all (fallback for missed
	// vehicle detection).
	TreatAllAsRiders bool `json:"treat_all_as_riders"`

	// HeadFraction is the top fraction of a rider box taken as the head
	// region, in (0, 1].
	HeadFraction float64 `json:"head_fraction"`

	// HeadgearOverlapThreshold is the minimum IoU between head region
	// and a headgear box for a presence match.
	HeadgearOverlapThreshold float64 `json:"headgear_overlap_threshold"`

	// ReLogInterval is the minimum number of frames between repeated
	// violation emissions for the same continuously-violating track.
	ReLogInterval int `json:"relog_interval"`

	// MinPlateConfidence is the OCR confidence floor for a plate reading
	// to count as valid evidence.
	MinPlateConfidence float64 `json:"min_plate_confidence"`

	// RequirePlate, when set, discards violation records that cannot be
	// matched to a valid plate (not merely marks them plate-less).
	RequirePlate bool `json:"require_plate"`

	// PlatePatterns are named regular expressions for plate-format
	// validation, applied to cleaned OCR text. Must be non-empty when
	// RequirePlate is set.
	PlatePatterns map[string]string `json:"plate_patterns"`
}

// DefaultPipelineConfig returns the tuning defaults. Values follow the
// field comments above; thresholds are intentionally recall-favoring.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DetectorConfidence:       0.4,
		RiderOverlapThreshold:    0.01,
		RiderCenterFactor:        1.5,
		VehicleClasses:           []ClassLabel{ClassMotorcycle, ClassBicycle},
		TreatAllAsRiders:         false,
		HeadFraction:             0.35,
		HeadgearOverlapThreshold: 0.1,
		ReLogInterval:            30,
		MinPlateConfidence:       0.6,
		RequirePlate:             false,
		PlatePatterns:            DefaultPlatePatterns(),
	}
}

// Validate checks the configuration. All violations wrap
// ErrInvalidConfig so callers can test with errors.Is.
func (c PipelineConfig) Validate() error {
	if c.DetectorConfidence < 0 || c.DetectorConfidence > 1 {
		return fmt.Errorf("%w: detector confidence must be in [0,1], got %v", ErrInvalidConfig, c.DetectorConfidence)
	}
	if c.RiderOverlapThreshold < 0 || c.RiderOverlapThreshold > 1 {
		return fmt.Errorf("%w: rider overlap threshold must be in [0,1], got %v", ErrInvalidConfig, c.RiderOverlapThreshold)
	}
	if c.RiderCenterFactor <= 0 {
		return fmt.Errorf("%w: rider center factor must be positive, got %v", ErrInvalidConfig, c.RiderCenterFactor)
	}
	if len(c.VehicleClasses) == 0 && !c.TreatAllAsRiders {
		return fmt.Errorf("%w: vehicle class set is empty and treat-all-as-riders is off", ErrInvalidConfig)
	}
	if c.HeadFraction <= 0 || c.HeadFraction > 1 {
		return fmt.Errorf("%w: head fraction must be in (0,1], got %v", ErrInvalidConfig, c.HeadFraction)
	}
	if c.HeadgearOverlapThreshold < 0 || c.HeadgearOverlapThreshold > 1 {
		return fmt.Errorf("%w: headgear overlap threshold must be in [0,1], got %v", ErrInvalidConfig, c.HeadgearOverlapThreshold)
	}
	if c.ReLogInterval <= 0 {
		return fmt.Errorf("%w: re-log interval must be positive, got %d", ErrInvalidConfig, c.ReLogInterval)
	}
	if c.MinPlateConfidence < 0 || c.MinPlateConfidence > 1 {
		return fmt.Errorf("%w: min plate confidence must be in [0,1], got %v", ErrInvalidConfig, c.MinPlateConfidence)
	}
	if c.RequirePlate && len(c.PlatePatterns) == 0 {
		return fmt.Errorf("%w: plate required but pattern set is empty", ErrInvalidConfig)
	}
	for name, pattern := range c.PlatePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w: plate pattern %q does not compile: %v", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

// vehicleClassSet converts the configured slice into a lookup set.
func (c PipelineConfig) vehicleClassSet() map[ClassLabel]bool {
	set := make(map[ClassLabel]bool, len(c.VehicleClasses))
	for _, cl := range c.VehicleClasses {
		set[cl] = true
	}
	return set
}
