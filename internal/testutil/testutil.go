// Package testutil provides shared test fixtures for the input loaders,
// the store and the CLI.
package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/mapsort/internal/fsutil"
)

// CalibrationFixture maps a 640x480 image onto a 64x48 map (scale 0.1).
const CalibrationFixture = `# pixel_x,pixel_y,map_x,map_y
0,0,0,0
640,0,64,0
640,480,64,48
0,480,0,48
`

// EntryRegionsFixture holds one polygon covering the whole fixture map.
const EntryRegionsFixture = `# whole map
-1,-1,65,-1,65,49,-1,49
`

// StaticDetections returns MOT rows for one class-1 object sitting at
// (x, y, w, h) in every frame from 1 to frames.
func StaticDetections(frames int, x, y, w, h float64) string {
	var b strings.Builder
	for f := 1; f <= frames; f++ {
		fmt.Fprintf(&b, "%d,1,%g,%g,%g,%g,0.9\n", f, x, y, w, h)
	}
	return b.String()
}

// MemFS returns a MemoryFileSystem pre-populated with files.
func MemFS(t *testing.T, files map[string]string) *fsutil.MemoryFileSystem {
	t.Helper()
	m := fsutil.NewMemoryFileSystem()
	for name, content := range files {
		m.AddFile(name, []byte(content))
	}
	return m
}

// TempDBPath returns a database path inside a per-test temporary directory.
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "mapsort.db")
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
