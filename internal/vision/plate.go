package vision

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// nonPlateChars strips everything outside the plate alphabet before
// ambiguous-glyph correction.
var nonPlateChars = regexp.MustCompile(`[^A-Z0-9]`)

// glyphSubstitutions corrects common OCR letter/digit confusions.
// Applied in order after uppercasing and stripping.
var glyphSubstitutions = []struct{ from, to string }{
	{"O", "0"},
	{"I", "1"},
	{"S", "5"},
	{"G", "6"},
}

// CleanPlateText normalizes raw OCR text into plate form: uppercase,
// non-alphanumerics removed, ambiguous glyphs corrected.
func CleanPlateText(text string) string {
	cleaned := nonPlateChars.ReplaceAllString(strings.ToUpper(text), "")
	for _, sub := range glyphSubstitutions {
		cleaned = strings.ReplaceAll(cleaned, sub.from, sub.to)
	}
	return cleaned
}

// PlateValidator applies the configured named format patterns to cleaned
// plate text. Each pattern contributes an independent boolean match; the
// overall verdict is true when any pattern matches.
type PlateValidator struct {
	names    []string // sorted for deterministic iteration
	patterns map[string]*regexp.Regexp
}

// NewPlateValidator compiles the named patterns. Compilation failures
// wrap ErrInvalidConfig; PipelineConfig.Validate catches the same
// failures earlier, so this only fires for hand-built validators.
func NewPlateValidator(patterns map[string]string) (*PlateValidator, error) {
	pv := &PlateValidator{patterns: make(map[string]*regexp.Regexp, len(patterns))}
	for name, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: plate pattern %q does not compile: %v", ErrInvalidConfig, name, err)
		}
		pv.patterns[name] = re
		pv.names = append(pv.names, name)
	}
	sort.Strings(pv.names)
	return pv, nil
}

// Validate matches cleaned text against every pattern and returns the
// per-pattern results plus the overall validity flag.
func (pv *PlateValidator) Validate(text string) (map[string]bool, bool) {
	matches := make(map[string]bool, len(pv.patterns))
	valid := false
	for _, name := range pv.names {
		ok := text != "" && pv.patterns[name].MatchString(text)
		matches[name] = ok
		if ok {
			valid = true
		}
	}
	return matches, valid
}

// Resolve turns a raw OCR reading into a PlateMatch: the
// maximum-confidence candidate is selected (strict greater-than, so the
// first-seen candidate wins exact ties), its text cleaned and validated.
// Returns false when the reading has no candidates.
func (pv *PlateValidator) Resolve(reading PlateReading) (PlateMatch, bool) {
	if len(reading.Candidates) == 0 {
		return PlateMatch{}, false
	}
	best := reading.Candidates[0]
	for _, c := range reading.Candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	cleaned := CleanPlateText(best.Text)
	matches, valid := pv.Validate(cleaned)
	return PlateMatch{
		Box:            reading.Box,
		Text:           cleaned,
		RawText:        best.Text,
		Confidence:     best.Confidence,
		PatternMatches: matches,
		Valid:          valid,
	}, true
}

// PlateCorrelator attaches the most plausible plate to a violation
// location and fuses their confidences.
type PlateCorrelator struct {
	MinConfidence float64
}

// NewPlateCorrelator builds a correlator from a validated config.
func NewPlateCorrelator(cfg PipelineConfig) *PlateCorrelator {
	return &PlateCorrelator{MinConfidence: cfg.MinPlateConfidence}
}

// FilterValid returns the plates that count as evidence: pattern-valid
// and at or above the OCR confidence floor.
func (pc *PlateCorrelator) FilterValid(plates []PlateMatch) []PlateMatch {
	var valid []PlateMatch
	for _, p := range plates {
		if p.Valid && p.Confidence >= pc.MinConfidence {
			valid = append(valid, p)
		}
	}
	return valid
}

// Nearest selects the minimum-center-distance candidate for a violation
// box. Strict less-than comparison: the first-seen candidate wins exact
// ties. The second return is the index into plates, or -1 when the
// candidate set is empty.
func (pc *PlateCorrelator) Nearest(violation Box, plates []PlateMatch) (PlateMatch, int) {
	return pc.nearestUnused(violation, plates, nil)
}

// Attach claims the nearest candidate not yet claimed this frame and
// marks it in used, so no plate serves two violations. Returns false
// when every candidate is already claimed or the set is empty.
func (pc *PlateCorrelator) Attach(violation Box, plates []PlateMatch, used []bool) (PlateMatch, bool) {
	match, idx := pc.nearestUnused(violation, plates, used)
	if idx < 0 {
		return PlateMatch{}, false
	}
	used[idx] = true
	return match, true
}

func (pc *PlateCorrelator) nearestUnused(violation Box, plates []PlateMatch, used []bool) (PlateMatch, int) {
	bestIdx := -1
	bestDist := 0.0
	for i, p := range plates {
		if used != nil && used[i] {
			continue
		}
		d := CenterDistance(violation, p.Box)
		if bestIdx < 0 || d < bestDist {
			bestIdx = i
			bestDist = d
		}
	}
	if bestIdx < 0 {
		return PlateMatch{}, -1
	}
	return plates[bestIdx], bestIdx
}

// FuseConfidence combines two independent confidence signals by
// arithmetic mean.
func FuseConfidence(a, b float64) float64 {
	return (a + b) / 2.0
}
