package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jwebster45206/relationship-engine/pkg/turning"
)

// catalogFile is the on-disk shape of the turning-point catalog: the
// point definitions plus the ordered sequence mapping each scene index
// to its eligible point IDs.
type catalogFile struct {
	TurningPoints []turning.Point `json:"turning_points"`
	Sequence      [][]string      `json:"sequence"`
}

// LoadCatalogFile reads and validates a turning-point catalog from
// disk.
func LoadCatalogFile(path string) (*turning.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	if len(f.TurningPoints) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no turning points", path)
	}
	if len(f.Sequence) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no sequence", path)
	}
	catalog, err := turning.NewCatalog(f.TurningPoints, f.Sequence)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog in %s: %w", path, err)
	}
	return catalog, nil
}
