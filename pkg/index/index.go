package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/helen-caroline/create-atas/pkg/config"
)

const indexFile = "events.json"

// EventIndex maps ATA work item ids to the calendar events published for
// them, so a republish patches the same event.
type EventIndex struct {
	Mappings map[string]string `json:"mappings"`
	Path     string            `json:"-"`
	mu       sync.RWMutex
	dirty    bool
}

func NewEventIndex() (*EventIndex, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return NewEventIndexAt(filepath.Join(dir, indexFile))
}

// NewEventIndexAt loads the index stored at path, if any.
func NewEventIndexAt(path string) (*EventIndex, error) {
	idx := &EventIndex{
		Mappings: make(map[string]string),
		Path:     path,
	}
	if _, err := os.Stat(path); err == nil {
		if err := idx.Load(); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (idx *EventIndex) Load() error {
	f, err := os.Open(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return json.NewDecoder(f).Decode(&idx.Mappings)
}

func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(idx.Path), 0700); err != nil {
		return err
	}
	f, err := os.Create(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(idx.Mappings); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func key(workItemID int) string {
	return strconv.Itoa(workItemID)
}

func (idx *EventIndex) Get(workItemID int) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.Mappings[key(workItemID)]
}

func (idx *EventIndex) Set(workItemID int, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.Mappings[key(workItemID)] != eventID {
		idx.Mappings[key(workItemID)] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(workItemID int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.Mappings[key(workItemID)]; exists {
		delete(idx.Mappings, key(workItemID))
		idx.dirty = true
	}
}
