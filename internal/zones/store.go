package zones

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kdimtricp/zonewatch/internal/models"
)

var (
	// ErrCorruptZoneFile means the persisted zone file is structurally
	// invalid: bad JSON, a missing name, or a malformed bbox.
	ErrCorruptZoneFile = errors.New("corrupt zone file")

	// ErrDuplicateZoneName means two zones in a save share a name.
	ErrDuplicateZoneName = errors.New("duplicate zone name")
)

// Store persists the zone list as an ordered JSON array, the same format the
// interactive drawing tool writes.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the zone list. A missing file is an empty list, not an error.
// Load order is preserved.
func (s *Store) Load() ([]models.Zone, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read zone file: %w", err)
	}

	var zoneList []models.Zone
	if err := json.Unmarshal(data, &zoneList); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptZoneFile, err)
	}
	return zoneList, nil
}

// Save overwrites the zone file atomically: the list is written to a temp
// file in the same directory and renamed over the target, so a crash mid-save
// never leaves a partial file behind. A save with duplicate names fails
// without touching the persisted file.
func (s *Store) Save(zoneList []models.Zone) error {
	seen := make(map[string]bool, len(zoneList))
	for _, z := range zoneList {
		if err := z.Validate(); err != nil {
			return fmt.Errorf("invalid zone: %w", err)
		}
		if seen[z.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateZoneName, z.Name)
		}
		seen[z.Name] = true
	}

	if zoneList == nil {
		zoneList = []models.Zone{}
	}
	data, err := json.MarshalIndent(zoneList, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal zones: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create zone directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".zones-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp zone file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write zone file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close zone file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace zone file: %w", err)
	}
	return nil
}
