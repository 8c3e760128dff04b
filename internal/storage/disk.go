package storage

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	imageExt   = ".png"
	tempPrefix = ".tmp-"

	// MaxNameLength bounds the filename stem in bytes
	MaxNameLength = 128
)

var (
	// ErrUnsafeName is returned for names that cannot be used as a filename stem
	ErrUnsafeName = errors.New("unsafe image name")
	// ErrNotFound is returned when no image exists for a name
	ErrNotFound = errors.New("image not found")
)

// SavedImage describes a file written by Save
type SavedImage struct {
	Path string
	Size int64
}

// DiskStore persists PNG images as <dir>/<name>.png
type DiskStore struct {
	dir string
}

// NewDiskStore creates a store rooted at dir. The directory is created lazily.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Dir returns the storage directory
func (s *DiskStore) Dir() string {
	return s.dir
}

// ValidateName accepts [A-Za-z0-9._-] stems that do not start with a dot.
func ValidateName(name string) error {
	if name == "" || len(name) > MaxNameLength || name[0] == '.' {
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return fmt.Errorf("%w: %q", ErrUnsafeName, name)
		}
	}
	return nil
}

// EnsureDir creates the storage directory if it is missing. Safe to call concurrently.
func (s *DiskStore) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	return nil
}

// Path returns the file path for name
func (s *DiskStore) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+imageExt), nil
}

// Save encodes img as PNG and writes it under name, replacing any previous
// image. The write goes to a temp file in the same directory and is renamed
// into place, so readers never see a partial file.
func (s *DiskStore) Save(name string, img image.Image) (SavedImage, error) {
	finalPath, err := s.Path(name)
	if err != nil {
		return SavedImage{}, err
	}
	if err := s.EnsureDir(); err != nil {
		return SavedImage{}, err
	}

	tmpPath := filepath.Join(s.dir, tempPrefix+uuid.NewString()+imageExt)
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return SavedImage{}, fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := writePNG(f, img); err != nil {
		_ = os.Remove(tmpPath)
		return SavedImage{}, err
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return SavedImage{}, fmt.Errorf("failed to stat temp file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return SavedImage{}, fmt.Errorf("failed to move image into place: %w", err)
	}

	return SavedImage{Path: finalPath, Size: info.Size()}, nil
}

func writePNG(f *os.File, img image.Image) error {
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode png: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close image: %w", err)
	}
	return nil
}

// Open returns the persisted image for name. The caller closes the file.
func (s *DiskStore) Open(name string) (*os.File, fs.FileInfo, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat image: %w", err)
	}
	return f, info, nil
}

// SweepTemp removes temp files last modified before now-maxAge and returns
// how many were removed. A missing directory is not an error.
func (s *DiskStore) SweepTemp(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read image directory: %w", err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed by a concurrent rename
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
