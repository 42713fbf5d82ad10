// Package vision owns the detection fusion and violation correlation
// engine: geometric association of raw detector outputs into semantic
// entities (riders, head regions, plate matches), the per-track debounce
// state machine that suppresses duplicate violation reports, and the
// session aggregator that turns a frame stream into summary statistics.
//
// The package never touches pixels. Object detection, multi-object
// tracking and OCR are collaborator contracts (ObjectDetector,
// RiderTracker, PlateReader); a default in-process IoU tracker is
// provided so the engine runs end-to-end without an external tracker.
//
// Processing is single-threaded per session: frames must be applied in
// strict arrival order because the debounce timer compares frame
// indices. Run one FusionPipeline per concurrent session.
package vision
