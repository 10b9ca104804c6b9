// Package history journals applied updates of the node binary.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// idLayout names journal files. Entries in the same second get a numeric suffix.
const idLayout = "2006-01-02-150405"

// ErrNotFound is returned when no journal entry matches.
var ErrNotFound = errors.New("history entry not found")

// Record is one applied update.
type Record struct {
	ID          string    `json:"id" yaml:"id"`
	AppliedAt   time.Time `json:"applied_at" yaml:"applied_at"`
	BinaryPath  string    `json:"binary_path" yaml:"binary_path"`
	BackupPath  string    `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	FromVersion string    `json:"from_version" yaml:"from_version"`
	ToVersion   string    `json:"to_version" yaml:"to_version"`
	ReleaseTag  string    `json:"release_tag,omitempty" yaml:"release_tag,omitempty"`
	Restarted   bool      `json:"restarted" yaml:"restarted"`
	ToolVersion string    `json:"tool_version" yaml:"tool_version"`
}

// Manager reads and writes the journal directory.
type Manager struct {
	dir         string
	toolVersion string
	now         func() time.Time
}

// NewManager creates a manager for dir. An empty dir selects DefaultDir.
func NewManager(dir, toolVersion string) (*Manager, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return &Manager{dir: dir, toolVersion: toolVersion, now: time.Now}, nil
}

// DefaultDir returns $XDG_CACHE_HOME/nymnode/history, falling back to ~/.cache.
func DefaultDir() (string, error) {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "nymnode", "history"), nil
}

// Dir returns the journal directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Save writes rec as a new entry. ID, AppliedAt and ToolVersion are filled in.
func (m *Manager) Save(rec Record) (*Record, error) {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	now := m.now()
	rec.AppliedAt = now
	rec.ToolVersion = m.toolVersion

	base := now.Format(idLayout)
	for n := 0; ; n++ {
		rec.ID = base
		if n > 0 {
			rec.ID = fmt.Sprintf("%s-%d", base, n)
		}

		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history entry: %w", err)
		}

		f, err := os.OpenFile(m.path(rec.ID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write history entry: %w", err)
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return nil, fmt.Errorf("failed to write history entry: %w", werr)
		}
		if cerr != nil {
			return nil, fmt.Errorf("failed to write history entry: %w", cerr)
		}
		return &rec, nil
	}
}

// List returns all entries sorted newest first. Unreadable files are skipped.
func (m *Manager) List() ([]Record, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	records := []Record{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		rec, err := m.load(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}
		records = append(records, *rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].AppliedAt.Equal(records[j].AppliedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].AppliedAt.After(records[j].AppliedAt)
	})
	return records, nil
}

// Get retrieves an entry by ID. Use "latest" for the most recent entry.
func (m *Manager) Get(id string) (*Record, error) {
	if id == "latest" {
		records, err := m.List()
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, ErrNotFound
		}
		return &records[0], nil
	}
	return m.load(m.path(id))
}

// Delete removes an entry by ID.
func (m *Manager) Delete(id string) error {
	if err := os.Remove(m.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, filepath.Base(id)+".json")
}

func (m *Manager) load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("failed to read history entry: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse history entry %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}
