package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/kdimtricp/zonewatch/internal/database"
	"github.com/kdimtricp/zonewatch/internal/models"
	"github.com/kdimtricp/zonewatch/internal/zones"
)

// Processor turns one validated detection into persisted, broadcast
// sightings: match against the current zone list, record per attributed
// zone, push to the live feed.
type Processor struct {
	matcher *zones.Matcher
	repo    *database.SightingRepo
	hub     *Hub

	mu       sync.RWMutex
	zoneList []models.Zone
}

func NewProcessor(matcher *zones.Matcher, zoneList []models.Zone, repo *database.SightingRepo, hub *Hub) *Processor {
	return &Processor{
		matcher:  matcher,
		repo:     repo,
		hub:      hub,
		zoneList: zoneList,
	}
}

// UpdateZones swaps the zone list used for attribution, e.g. after the user
// redraws zones while the loop is running.
func (p *Processor) UpdateZones(zoneList []models.Zone) {
	p.mu.Lock()
	p.zoneList = zoneList
	p.mu.Unlock()
}

func (p *Processor) Zones() []models.Zone {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.zoneList
}

// Process validates the detection, attributes it, and appends one sighting
// per attributed zone. The returned sightings reflect any dedup the
// repository applied.
func (p *Processor) Process(ctx context.Context, det models.Detection) ([]models.Sighting, error) {
	if err := det.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detection: %w", err)
	}

	p.mu.RLock()
	zoneList := p.zoneList
	p.mu.RUnlock()

	var recorded []models.Sighting
	for _, name := range p.matcher.Match(det.BBox, zoneList) {
		sighting, err := p.repo.Record(ctx, det, name)
		if err != nil {
			return recorded, fmt.Errorf("failed to record sighting: %w", err)
		}
		recorded = append(recorded, *sighting)
		if p.hub != nil {
			p.hub.BroadcastSighting(*sighting)
		}
	}
	return recorded, nil
}
