package index

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEventIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", indexFile)
	idx, err := NewEventIndexAt(path)
	if err != nil {
		t.Fatalf("NewEventIndexAt failed: %v", err)
	}

	if err := idx.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Save without changes should not write the file")
	}

	idx.Set(89016, "evt-1")
	idx.Set(89017, "evt-2")
	idx.Remove(89017)
	idx.Remove(1)
	if err := idx.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := NewEventIndexAt(path)
	if err != nil {
		t.Fatalf("NewEventIndexAt failed: %v", err)
	}
	if got := loaded.Get(89016); got != "evt-1" {
		t.Errorf("Expected evt-1, got %q", got)
	}
	if got := loaded.Get(89017); got != "" {
		t.Errorf("Expected removed mapping, got %q", got)
	}
}
