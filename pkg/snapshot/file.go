package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps one JSON array file per session. Appends rewrite the
// file atomically through a temp file and rename.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "snapshots"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(sessionID string) string {
	return filepath.Join(f.dir, sessionID+".json")
}

// Append adds one snapshot to the session file.
func (f *FileStore) Append(sessionID string, snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snaps, err := f.read(sessionID)
	if err != nil {
		return err
	}
	snaps = append(snaps, snap)

	data, err := json.MarshalIndent(snaps, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", sessionID, err)
	}

	tmp, err := os.CreateTemp(f.dir, sessionID+"-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path(sessionID))
}

// List returns the session's snapshots. A session that never recorded
// returns an empty list.
func (f *FileStore) List(sessionID string) ([]Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(sessionID)
}

func (f *FileStore) read(sessionID string) ([]Snapshot, error) {
	data, err := os.ReadFile(f.path(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snaps []Snapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", sessionID, err)
	}
	return snaps, nil
}

func (f *FileStore) Close() error { return nil }
