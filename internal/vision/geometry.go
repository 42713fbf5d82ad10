package vision

import "math"

// unionEpsilon guards the degenerate zero-union case in OverlapRatio.
const unionEpsilon = 1e-9

// Box is an axis-aligned bounding box in pixel coordinates using the
// x1,y1,x2,y2 convention (top-left and bottom-right corners). Boundaries
// are inclusive for containment tests. A box with X2 <= X1 or Y2 <= Y1
// has zero area; negative extents never raise, they clamp.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// BoxFromXYWH converts the x,y,w,h convention used by some detectors
// and the CSV export format into a Box.
func BoxFromXYWH(x, y, w, h int) Box {
	return Box{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

// XYWH returns the box in x,y,w,h form with extents clamped to zero.
func (b Box) XYWH() (x, y, w, h int) {
	return b.X1, b.Y1, b.Width(), b.Height()
}

// Width returns the horizontal extent, clamped to zero for malformed boxes.
func (b Box) Width() int {
	if b.X2 <= b.X1 {
		return 0
	}
	return b.X2 - b.X1
}

// Height returns the vertical extent, clamped to zero for malformed boxes.
func (b Box) Height() int {
	if b.Y2 <= b.Y1 {
		return 0
	}
	return b.Y2 - b.Y1
}

// Area returns the box area; degenerate boxes count as zero.
func (b Box) Area() int {
	return b.Width() * b.Height()
}

// CenterX returns the horizontal center as a float so odd-width boxes
// keep sub-pixel precision in distance computations.
func (b Box) CenterX() float64 {
	return float64(b.X1+b.X2) / 2.0
}

// CenterY returns the vertical center.
func (b Box) CenterY() float64 {
	return float64(b.Y1+b.Y2) / 2.0
}

// OverlapRatio computes intersection-over-union of two boxes. It is
// symmetric, returns exactly 1.0 for identical positive-area boxes, and
// returns 0 for non-intersecting or degenerate inputs (never negative,
// never NaN).
func OverlapRatio(a, b Box) float64 {
	ix1 := maxInt(a.X1, b.X1)
	iy1 := maxInt(a.Y1, b.Y1)
	ix2 := minInt(a.X2, b.X2)
	iy2 := minInt(a.Y2, b.Y2)

	if ix2 <= ix1 || iy2 <= iy1 {
		return 0.0
	}
	interArea := float64((ix2 - ix1) * (iy2 - iy1))

	union := float64(a.Area()+b.Area()) - interArea
	if union < unionEpsilon {
		return 0.0
	}
	return interArea / union
}

// ContainsCenter reports whether the center point of inner lies within
// outer's extent, inclusive of the boundary.
func ContainsCenter(outer, inner Box) bool {
	cx := inner.CenterX()
	cy := inner.CenterY()
	return cx >= float64(outer.X1) && cx <= float64(outer.X2) &&
		cy >= float64(outer.Y1) && cy <= float64(outer.Y2)
}

// CenterDistance returns the Euclidean distance between box centers.
func CenterDistance(a, b Box) float64 {
	dx := a.CenterX() - b.CenterX()
	dy := a.CenterY() - b.CenterY()
	return math.Sqrt(dx*dx + dy*dy)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
