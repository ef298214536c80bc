package trackio

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/paulmach/orb"

	"github.com/banshee-data/mapsort/internal/fsutil"
)

// maxInputSize caps input files at 256MB.
const maxInputSize = 256 * 1024 * 1024

// Loader reads inputs and opens outputs through a FileSystem.
type Loader struct {
	FS fsutil.FileSystem
}

// NewLoader returns a Loader over fsys, or the OS filesystem when nil.
func NewLoader(fsys fsutil.FileSystem) *Loader {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Loader{FS: fsys}
}

func (l *Loader) read(path string) ([]byte, error) {
	clean := filepath.Clean(path)
	size, err := l.FS.Size(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", clean, err)
	}
	if size > maxInputSize {
		return nil, fmt.Errorf("%s too large: %d bytes (max %d)", clean, size, maxInputSize)
	}
	data, err := l.FS.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", clean, err)
	}
	return data, nil
}

// LoadCalibration reads a calibration file.
func (l *Loader) LoadCalibration(path string) (pixel, mapPts []orb.Point, err error) {
	data, err := l.read(path)
	if err != nil {
		return nil, nil, err
	}
	return ReadCalibration(bytes.NewReader(data))
}

// LoadEntryRegions reads an entry-region file.
func (l *Loader) LoadEntryRegions(path string) ([]orb.Polygon, error) {
	data, err := l.read(path)
	if err != nil {
		return nil, err
	}
	return ReadEntryRegions(bytes.NewReader(data))
}

// LoadDetections reads a MOT detection file, keeping only class unless
// class is AllClasses.
func (l *Loader) LoadDetections(path string, class int) (*DetectionSet, error) {
	data, err := l.read(path)
	if err != nil {
		return nil, err
	}
	return ReadDetections(bytes.NewReader(data), class)
}

// CreateOutput creates path and any missing parent directories.
func (l *Loader) CreateOutput(path string) (io.WriteCloser, error) {
	clean := filepath.Clean(path)
	if dir := filepath.Dir(clean); dir != "." {
		if err := l.FS.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	w, err := l.FS.Create(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", clean, err)
	}
	return w, nil
}
