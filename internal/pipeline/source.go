package pipeline

import (
	"context"
	"io"

	"github.com/kdimtricp/zonewatch/internal/models"
)

// Source is the detector collaborator boundary: a stream of detections, one
// per detected object per processed frame. Next returns io.EOF when the
// stream is exhausted.
type Source interface {
	Next(ctx context.Context) (models.Detection, error)
}

// StaticSource replays a fixed slice of detections, for simulation and
// tests.
type StaticSource struct {
	detections []models.Detection
	pos        int
}

func NewStaticSource(detections []models.Detection) *StaticSource {
	return &StaticSource{detections: detections}
}

func (s *StaticSource) Next(ctx context.Context) (models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return models.Detection{}, err
	}
	if s.pos >= len(s.detections) {
		return models.Detection{}, io.EOF
	}
	det := s.detections[s.pos]
	s.pos++
	return det, nil
}
