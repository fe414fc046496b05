package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcherDetectsChanges(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "x")
	b := filepath.Join(dir, "b.yaml")
	paths := []string{a}

	var changed []string
	w := NewFileWatcher(func() []string { return paths }, time.Hour, func(p string) { changed = append(changed, p) }, nil)

	w.scanAll(true)
	if len(changed) != 0 {
		t.Fatalf("prime scan must not notify: %v", changed)
	}

	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(a, future, future); err != nil {
		t.Fatal(err)
	}
	w.scanAll(false)
	if len(changed) != 1 || changed[0] != a {
		t.Fatalf("modified file not reported: %v", changed)
	}

	writeFile(t, dir, "b.yaml", "y")
	paths = append(paths, b)
	w.scanAll(false)
	if len(changed) != 2 || changed[1] != b {
		t.Fatalf("new file not reported: %v", changed)
	}

	if err := os.Remove(b); err != nil {
		t.Fatal(err)
	}
	w.scanAll(false)
	if len(changed) != 3 || changed[2] != b {
		t.Fatalf("removed file not reported: %v", changed)
	}

	w.scanAll(false)
	if len(changed) != 3 {
		t.Fatalf("unchanged scan reported: %v", changed)
	}
	w.Stop()
	w.Stop()
}
