package vision

import (
	"strings"
	"time"
)

// ClassLabel is a semantic detector class. The set is closed: anything a
// detector reports outside it maps to ClassUnknown rather than leaking a
// stringified numeric id into the engine.
type ClassLabel string

const (
	ClassPerson     ClassLabel = "person"
	ClassMotorcycle ClassLabel = "motorcycle"
	ClassBicycle    ClassLabel = "bicycle"
	ClassHeadgear   ClassLabel = "headgear"
	ClassPlate      ClassLabel = "plate"
	ClassUnknown    ClassLabel = "unknown"
)

// ParseClassLabel maps a raw detector class name onto the closed label
// set. Common aliases from COCO-style and helmet-specific models are
// accepted; unrecognised names become ClassUnknown.
func ParseClassLabel(name string) ClassLabel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "person":
		return ClassPerson
	case "motorcycle", "motorbike":
		return ClassMotorcycle
	case "bicycle", "bike":
		return ClassBicycle
	case "helmet", "hardhat", "headgear":
		return ClassHeadgear
	case "license_plate", "licence_plate", "plate", "number_plate":
		return ClassPlate
	default:
		return ClassUnknown
	}
}

// ViolationNoHeadgear is the violation type emitted by this engine.
const ViolationNoHeadgear = "no-headgear"

// Detection is a single detector output: box, confidence and class.
// Immutable once produced by a detector collaborator.
type Detection struct {
	Box        Box        `json:"box"`
	Confidence float64    `json:"confidence"`
	Class      ClassLabel `json:"class"`
	RawClassID int        `json:"raw_class_id,omitempty"` // raw model id, -1 when unknown
}

// TrackedRider is a rider Detection augmented with a stable track
// identity assigned by the tracker collaborator. Identity is owned by
// the tracker; this engine only reads it.
type TrackedRider struct {
	Detection
	TrackID         string  `json:"track_id"`
	TrackConfidence float64 `json:"track_confidence"`
	Confirmed       bool    `json:"confirmed"`
}

// IsConfirmed reports whether the tracker considers this identity
// stable. Unconfirmed riders are excluded before headgear
// classification.
func (r TrackedRider) IsConfirmed() bool {
	return r.Confirmed
}

// OCRCandidate is one (text, confidence) reading from the OCR
// collaborator for a plate region.
type OCRCandidate struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// PlateReading is the raw OCR collaborator output for one detected plate
// region, before text cleanup and pattern validation.
type PlateReading struct {
	Box        Box            `json:"box"`
	Candidates []OCRCandidate `json:"candidates"`
}

// PlateMatch is a validated identification-plate reading: cleaned text,
// per-pattern match flags and the overall validity verdict.
type PlateMatch struct {
	Box            Box             `json:"box"`
	Text           string          `json:"text"`
	RawText        string          `json:"raw_text"`
	Confidence     float64         `json:"confidence"`
	PatternMatches map[string]bool `json:"pattern_matches"`
	Valid          bool            `json:"valid"`
}

// ViolationRecord is emitted when headgear is absent for a confirmed
// track and the debounce policy allows logging. Immutable once emitted.
type ViolationRecord struct {
	ID               string      `json:"id"`
	FrameIndex       int         `json:"frame_index"`
	FrameTimestampMs int64       `json:"frame_timestamp_ms"`
	WallClock        time.Time   `json:"wall_clock"`
	TrackID          string      `json:"track_id"`
	ViolationType    string      `json:"violation_type"`
	Confidence       float64     `json:"confidence"`
	Box              Box         `json:"box"`
	Plate            *PlateMatch `json:"plate,omitempty"`
}

// Frame is an opaque handle to one video frame. The engine never
// inspects the payload; detector and OCR collaborators interpret it.
type Frame struct {
	Index       int
	TimestampMs int64
	Data        []byte
}

// FrameObservations carries one frame's raw collaborator outputs into
// the fusion pipeline. ProcessFrame builds this from the injected
// collaborators; replay and HTTP callers may supply it directly.
type FrameObservations struct {
	FrameIndex  int            `json:"frame_index"`
	TimestampMs int64          `json:"timestamp_ms"`
	Persons     []Detection    `json:"persons"`
	Vehicles    []Detection    `json:"vehicles"`
	Headgear    []Detection    `json:"headgear"`
	Plates      []PlateReading `json:"plates"`
}

// AnnotationKind distinguishes rendering hints in a FrameResult.
type AnnotationKind string

const (
	AnnotateRider      AnnotationKind = "rider"
	AnnotateHeadRegion AnnotationKind = "head-region"
	AnnotatePlate      AnnotationKind = "plate"
	AnnotateViolation  AnnotationKind = "violation"
)

// Annotation is a box plus label for callers that render overlays. The
// engine attaches no styling semantics beyond the kind.
type Annotation struct {
	Kind  AnnotationKind `json:"kind"`
	Box   Box            `json:"box"`
	Label string         `json:"label"`
}

// FrameResult is the per-frame output of the fusion pipeline.
// CollaboratorFaults carries degraded-operation notes (a detector or
// OCR hiccup) for the caller to observe; faults never abort a session.
type FrameResult struct {
	FrameIndex         int               `json:"frame_index"`
	TimestampMs        int64             `json:"timestamp_ms"`
	Violations         []ViolationRecord `json:"violations"`
	Annotations        []Annotation      `json:"annotations"`
	RidersTracked      int               `json:"riders_tracked"`
	ValidPlates        int               `json:"valid_plates"`
	ProcessingMs       float64           `json:"processing_ms"`
	CollaboratorFaults []string          `json:"collaborator_faults,omitempty"`
}
