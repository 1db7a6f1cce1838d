package overdue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/helen-caroline/create-atas/pkg/config"
	"github.com/helen-caroline/create-atas/pkg/extract"
	"github.com/helen-caroline/create-atas/pkg/model"
)

const tableFile = "next_steps.json"

// Entry is one dated next step of an ATA.
type Entry struct {
	WorkItemID  int    `json:"work_item_id"`
	Action      string `json:"action"`
	Responsible string `json:"responsible,omitempty"`
	Date        string `json:"date"` // YYYY-MM-DD
}

// Table tracks the dated next steps of every saved ATA until they fall due.
type Table struct {
	Entries map[string][]Entry `json:"entries"`
	Path    string             `json:"-"`
	dirty   bool
}

func NewTable() (*Table, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return NewTableAt(filepath.Join(dir, tableFile))
}

// NewTableAt loads the table stored at path, if any.
func NewTableAt(path string) (*Table, error) {
	t := &Table{
		Path:    path,
		Entries: make(map[string][]Entry),
	}
	if _, err := os.Stat(path); err == nil {
		if err := t.Load(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) Load() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(t); err != nil {
		return err
	}
	if t.Entries == nil {
		t.Entries = make(map[string][]Entry)
	}
	return nil
}

func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.Path), 0700); err != nil {
		return err
	}

	f, err := os.Create(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(t)
	if err == nil {
		t.dirty = false
	}
	return err
}

// Update replaces the tracked steps of a work item with the dated ones in
// steps. Steps without a valid date are not tracked.
func (t *Table) Update(workItemID int, steps []model.NextStep) {
	var entries []Entry
	for _, s := range steps {
		date := extract.ISODate(s.Date)
		if date == "" {
			continue
		}
		entries = append(entries, Entry{
			WorkItemID:  workItemID,
			Action:      s.Action,
			Responsible: s.Responsible,
			Date:        date,
		})
	}
	if len(entries) == 0 {
		t.Remove(workItemID)
		return
	}

	key := strconv.Itoa(workItemID)
	if !slices.Equal(t.Entries[key], entries) {
		t.Entries[key] = entries
		t.dirty = true
	}
}

func (t *Table) Remove(workItemID int) {
	key := strconv.Itoa(workItemID)
	if _, exists := t.Entries[key]; exists {
		delete(t.Entries, key)
		t.dirty = true
	}
}

// Pending lists every tracked step, soonest first.
func (t *Table) Pending() []Entry {
	var all []Entry
	for _, entries := range t.Entries {
		all = append(all, entries...)
	}
	sortEntries(all)
	return all
}

// Sweep returns the steps whose date is before now's day and stops tracking
// them, soonest first.
func (t *Table) Sweep(now time.Time) []Entry {
	today := now.Format("2006-01-02")
	var swept []Entry
	for key, entries := range t.Entries {
		kept := entries[:0]
		for _, e := range entries {
			if e.Date < today {
				swept = append(swept, e)
			} else {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(entries) {
			continue
		}
		t.dirty = true
		if len(kept) == 0 {
			delete(t.Entries, key)
		} else {
			t.Entries[key] = kept
		}
	}
	sortEntries(swept)
	return swept
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.WorkItemID != b.WorkItemID {
			return a.WorkItemID < b.WorkItemID
		}
		return a.Action < b.Action
	})
}
