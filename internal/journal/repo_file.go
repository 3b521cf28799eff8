package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"reflections-backend/internal/shared/telemetry"
)

const (
	analyzedEntriesFile = "analyzed_entries.json"
	checkInsFile        = "scheduled_checkins.json"
)

// FileRepo stores both collections as JSON files under a data directory, one
// file per collection. Every write is a whole-collection rewrite; reads fail
// soft by returning an empty collection and logging. Intended for the
// single-user, single-process deployments this tool targets.
type FileRepo struct {
	mu      sync.Mutex
	dataDir string
}

// NewFileRepo constructs a FileRepo rooted at dataDir.
func NewFileRepo(dataDir string) *FileRepo {
	return &FileRepo{dataDir: dataDir}
}

// LoadAnalyzedEntries returns all stored entries, most-recent-analysis-first.
func (r *FileRepo) LoadAnalyzedEntries(ctx context.Context) ([]AnalyzedEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := readCollection[AnalyzedEntry](r.path(analyzedEntriesFile))
	sortAnalyzedEntries(entries)
	return entries, nil
}

// SaveAnalyzedEntry prepends the entry unless one with the same id exists.
func (r *FileRepo) SaveAnalyzedEntry(ctx context.Context, entry AnalyzedEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := readCollection[AnalyzedEntry](r.path(analyzedEntriesFile))
	for _, existing := range entries {
		if existing.ID == entry.ID {
			return nil
		}
	}
	entries = append([]AnalyzedEntry{entry}, entries...)
	return r.writeCollection(analyzedEntriesFile, entries)
}

// LoadCheckIns returns all stored check-ins, pending first, newest first
// within each status group.
func (r *FileRepo) LoadCheckIns(ctx context.Context) ([]CheckIn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	checkIns := readCollection[CheckIn](r.path(checkInsFile))
	sortCheckIns(checkIns)
	return checkIns, nil
}

// SaveCheckIn prepends the check-in unless one with the same id exists.
func (r *FileRepo) SaveCheckIn(ctx context.Context, checkIn CheckIn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	checkIns := readCollection[CheckIn](r.path(checkInsFile))
	for _, existing := range checkIns {
		if existing.ID == checkIn.ID {
			return nil
		}
	}
	checkIns = append([]CheckIn{checkIn}, checkIns...)
	return r.writeCollection(checkInsFile, checkIns)
}

// UpdateCheckIn replaces the stored record matching the id. Unknown ids are a
// no-op.
func (r *FileRepo) UpdateCheckIn(ctx context.Context, checkIn CheckIn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	checkIns := readCollection[CheckIn](r.path(checkInsFile))
	replaced := false
	for i := range checkIns {
		if checkIns[i].ID == checkIn.ID {
			checkIns[i] = checkIn
			replaced = true
			break
		}
	}
	if !replaced {
		return nil
	}
	return r.writeCollection(checkInsFile, checkIns)
}

// DeleteCheckIn removes the record matching the id. Unknown ids are a no-op.
func (r *FileRepo) DeleteCheckIn(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	checkIns := readCollection[CheckIn](r.path(checkInsFile))
	kept := checkIns[:0]
	removed := false
	for _, ci := range checkIns {
		if ci.ID == id {
			removed = true
			continue
		}
		kept = append(kept, ci)
	}
	if !removed {
		return nil
	}
	return r.writeCollection(checkInsFile, kept)
}

func (r *FileRepo) path(name string) string {
	return filepath.Join(r.dataDir, name)
}

// readCollection loads a JSON array from disk. Missing files and parse errors
// degrade to an empty collection with a log record.
func readCollection[T any](path string) []T {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			telemetry.Warn("storage.read_failed", map[string]any{"path": path, "error": err.Error()})
		}
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		telemetry.Warn("storage.parse_failed", map[string]any{"path": path, "error": err.Error()})
		return []T{}
	}
	return items
}

func (r *FileRepo) writeCollection(name string, items any) error {
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := r.path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

var _ Repo = (*FileRepo)(nil)
