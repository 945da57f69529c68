package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BBox is an axis-aligned rectangle in pixel coordinates.
type BBox struct {
	X float64
	Y float64
	W float64
	H float64
}

func (b BBox) CenterX() float64 { return b.X + b.W/2 }
func (b BBox) CenterY() float64 { return b.Y + b.H/2 }
func (b BBox) Area() float64    { return b.W * b.H }

// Contains reports whether the point lies inside the box. Low edges are
// closed and high edges open, so two adjacent boxes never both claim a point
// on their shared edge.
func (b BBox) Contains(x, y float64) bool {
	return x >= b.X && x < b.X+b.W && y >= b.Y && y < b.Y+b.H
}

// IntersectArea returns the area of the overlap between the two boxes,
// zero if they do not overlap.
func (b BBox) IntersectArea(other BBox) float64 {
	w := min(b.X+b.W, other.X+other.W) - max(b.X, other.X)
	h := min(b.Y+b.H, other.Y+other.H) - max(b.Y, other.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Zone is a user-defined named rectangular region of the camera frame.
type Zone struct {
	Name string
	BBox BBox
}

// zoneJSON is the zones.json wire form: {"name": ..., "bbox": [x, y, w, h]}.
type zoneJSON struct {
	Name string    `json:"name"`
	BBox []float64 `json:"bbox"`
}

func (z Zone) MarshalJSON() ([]byte, error) {
	return json.Marshal(zoneJSON{
		Name: z.Name,
		BBox: []float64{z.BBox.X, z.BBox.Y, z.BBox.W, z.BBox.H},
	})
}

func (z *Zone) UnmarshalJSON(data []byte) error {
	var w zoneJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	z.Name = w.Name
	if len(w.BBox) == 4 {
		z.BBox = BBox{X: w.BBox[0], Y: w.BBox[1], W: w.BBox[2], H: w.BBox[3]}
	} else {
		z.BBox = BBox{}
	}
	return z.Validate()
}

func (z Zone) Validate() error {
	if z.Name == "" {
		return fmt.Errorf("zone missing name")
	}
	if z.BBox.W <= 0 || z.BBox.H <= 0 {
		return fmt.Errorf("zone %q: width and height must be positive", z.Name)
	}
	return nil
}

// Detection is one recognized object instance in one frame, produced by the
// external detector collaborator.
type Detection struct {
	ID         string
	Label      string
	BBox       BBox
	Confidence float64
	Timestamp  time.Time
}

func NewDetection(label string, bbox BBox, confidence float64) Detection {
	return Detection{
		ID:         uuid.New().String(),
		Label:      label,
		BBox:       bbox,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}
}

// Validate normalizes a detection coming across the detector boundary.
// Confidence is clamped to [0,1]; a missing timestamp or ID is filled in.
func (d *Detection) Validate() error {
	if d.Label == "" {
		return fmt.Errorf("detection missing label")
	}
	if d.BBox.W <= 0 || d.BBox.H <= 0 {
		return fmt.Errorf("detection %q: width and height must be positive", d.Label)
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

type detectionJSON struct {
	ID         string    `json:"id,omitempty"`
	Label      string    `json:"label"`
	BBox       []float64 `json:"bbox"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

func (d Detection) MarshalJSON() ([]byte, error) {
	return json.Marshal(detectionJSON{
		ID:         d.ID,
		Label:      d.Label,
		BBox:       []float64{d.BBox.X, d.BBox.Y, d.BBox.W, d.BBox.H},
		Confidence: d.Confidence,
		Timestamp:  d.Timestamp,
	})
}

func (d *Detection) UnmarshalJSON(data []byte) error {
	var w detectionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d.ID = w.ID
	d.Label = w.Label
	if len(w.BBox) == 4 {
		d.BBox = BBox{X: w.BBox[0], Y: w.BBox[1], W: w.BBox[2], H: w.BBox[3]}
	} else {
		d.BBox = BBox{}
	}
	d.Confidence = w.Confidence
	d.Timestamp = w.Timestamp
	return nil
}

// Sighting is a persisted fact that an object was seen in a zone at a time.
type Sighting struct {
	ID         int64     `json:"id"`
	Label      string    `json:"label"`
	ZoneName   string    `json:"zone"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}
