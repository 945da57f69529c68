package zones

import (
	"fmt"

	"github.com/kdimtricp/zonewatch/internal/models"
)

// MatchPolicy decides how a detection spanning several zones is attributed.
type MatchPolicy int

const (
	// PolicyBestOverlap attributes the detection to the single qualifying
	// zone with the largest intersection-over-detection-area. Ties go to
	// the zone earlier in stored order.
	PolicyBestOverlap MatchPolicy = iota

	// PolicyAllZones attributes the detection to every qualifying zone,
	// in stored order.
	PolicyAllZones
)

func ParsePolicy(s string) (MatchPolicy, error) {
	switch s {
	case "", "best":
		return PolicyBestOverlap, nil
	case "all":
		return PolicyAllZones, nil
	}
	return PolicyBestOverlap, fmt.Errorf("unknown match policy %q (want best or all)", s)
}

// Matcher attributes detection boxes to named zones, falling back to a
// generic screen region when no zone qualifies.
type Matcher struct {
	frameW float64
	frameH float64
	policy MatchPolicy
}

func NewMatcher(frameW, frameH float64, policy MatchPolicy) *Matcher {
	if frameW <= 0 {
		frameW = 1
	}
	if frameH <= 0 {
		frameH = 1
	}
	return &Matcher{frameW: frameW, frameH: frameH, policy: policy}
}

// Match returns the zone names the detection box is attributed to. A zone
// qualifies when it contains the detection's center point. If no zone
// qualifies the result is a single generic region label, so Match always
// returns at least one name.
func (m *Matcher) Match(bbox models.BBox, zoneList []models.Zone) []string {
	cx, cy := bbox.CenterX(), bbox.CenterY()

	area := bbox.Area()
	if area <= 0 {
		area = 1
	}

	var names []string
	best := -1
	bestOverlap := 0.0
	for i, z := range zoneList {
		if !z.BBox.Contains(cx, cy) {
			continue
		}
		if m.policy == PolicyAllZones {
			names = append(names, z.Name)
			continue
		}
		overlap := bbox.IntersectArea(z.BBox) / area
		if best < 0 || overlap > bestOverlap {
			best = i
			bestOverlap = overlap
		}
	}

	if m.policy == PolicyBestOverlap && best >= 0 {
		return []string{zoneList[best].Name}
	}
	if len(names) > 0 {
		return names
	}
	return []string{m.GenericRegion(bbox)}
}

// GenericRegion maps the detection's center onto a fixed 3x3 grid of the
// frame and names the cell, e.g. "top-left" or "bottom-right". The exact
// middle cell is just "center". Pure function of the center and the frame
// dimensions.
func (m *Matcher) GenericRegion(bbox models.BBox) string {
	relX := bbox.CenterX() / m.frameW
	relY := bbox.CenterY() / m.frameH

	col := "left"
	switch {
	case relX >= 2.0/3.0:
		col = "right"
	case relX >= 1.0/3.0:
		col = "center"
	}

	row := "top"
	switch {
	case relY >= 2.0/3.0:
		row = "bottom"
	case relY >= 1.0/3.0:
		row = "middle"
	}

	if row == "middle" && col == "center" {
		return "center"
	}
	return row + "-" + col
}
