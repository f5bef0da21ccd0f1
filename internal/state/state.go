// Package state persists which ownership keys deskhand has published to the
// desktop-entry daemon. The records let a restarted daemon retract owners
// left behind by a crashed session or a shrunken container list.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PublishRecord records one completed publish pass for an owner.
type PublishRecord struct {
	Owner     string    `json:"owner"`
	Entries   int       `json:"entries"`
	Icons     int       `json:"icons"`
	Timestamp time.Time `json:"timestamp"`
}

var mu sync.Mutex

const stateFileName = "deskhand_state.json"

func stateFilePath() string {
	if dir := os.Getenv("DESKHAND_STATE_DIR"); dir != "" {
		return filepath.Join(dir, stateFileName)
	}
	// Published entries are session-scoped, so the runtime dir is the
	// natural home; fall back to the temp dir when it is unavailable.
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "deskhand", stateFileName)
	}
	return filepath.Join(os.TempDir(), "deskhand", stateFileName)
}

// loadAllUnlocked reads the state file WITHOUT acquiring the package mutex.
func loadAllUnlocked() (map[string]PublishRecord, error) {
	data, err := os.ReadFile(stateFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]PublishRecord), nil
		}
		return nil, fmt.Errorf("load state: %w", err)
	}
	out := make(map[string]PublishRecord)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return out, nil
}

// saveAllUnlocked writes the state file WITHOUT acquiring the package mutex.
func saveAllUnlocked(m map[string]PublishRecord) error {
	p := stateFilePath()
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("mkdir state dir: %w", err)
	}
	if err := os.WriteFile(p, b, 0o640); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// AddPublishRecord persists a publish record keyed by owner. The package
// mutex covers the whole read-modify-write cycle to avoid lost updates.
func AddPublishRecord(r PublishRecord) error {
	mu.Lock()
	defer mu.Unlock()
	m, err := loadAllUnlocked()
	if err != nil {
		return err
	}
	m[r.Owner] = r
	return saveAllUnlocked(m)
}

// RemovePublishRecord drops the record for owner, if any.
func RemovePublishRecord(owner string) error {
	mu.Lock()
	defer mu.Unlock()
	m, err := loadAllUnlocked()
	if err != nil {
		return err
	}
	delete(m, owner)
	return saveAllUnlocked(m)
}

// GetPublishRecord looks up the record for owner.
func GetPublishRecord(owner string) (PublishRecord, bool, error) {
	mu.Lock()
	defer mu.Unlock()
	m, err := loadAllUnlocked()
	if err != nil {
		return PublishRecord{}, false, err
	}
	r, ok := m[owner]
	return r, ok, nil
}

// GetAllPublishRecords returns all persisted publish records.
func GetAllPublishRecords() (map[string]PublishRecord, error) {
	mu.Lock()
	defer mu.Unlock()
	return loadAllUnlocked()
}
