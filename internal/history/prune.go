package history

import (
	"fmt"
)

// DefaultKeepCount is the default number of entries to retain.
const DefaultKeepCount = 30

// PruneResult contains information about what was pruned.
type PruneResult struct {
	Deleted []Record `json:"deleted" yaml:"deleted"`
	Kept    int      `json:"kept" yaml:"kept"`
}

// Prune removes old entries, keeping only the most recent keep entries.
func (m *Manager) Prune(keep int) (*PruneResult, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep count must be non-negative")
	}

	records, err := m.List()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{Deleted: []Record{}}
	if len(records) <= keep {
		result.Kept = len(records)
		return result, nil
	}

	// List is newest first
	result.Kept = keep
	for _, rec := range records[keep:] {
		if err := m.Delete(rec.ID); err != nil {
			return nil, fmt.Errorf("failed to delete history entry %s: %w", rec.ID, err)
		}
		result.Deleted = append(result.Deleted, rec)
	}
	return result, nil
}
