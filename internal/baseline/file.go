package baseline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// FileChannel stores records as JSON files in a local directory.
type FileChannel struct {
	dir string
}

// NewFileChannel creates a FileChannel. If dir is empty, uses the default
// baseline directory.
func NewFileChannel(dir string) (*FileChannel, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating baseline directory: %w", err)
	}
	return &FileChannel{dir: dir}, nil
}

// Put writes data for key. The file is replaced atomically so a reader never
// sees a partial record.
func (c *FileChannel) Put(_ context.Context, key Key, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".baseline-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing baseline: %w", err)
	}
	if err := os.Rename(tmpName, c.entryPath(key)); err != nil {
		return fmt.Errorf("replacing baseline: %w", err)
	}
	return nil
}

// Get reads the record stored for key.
func (c *FileChannel) Get(_ context.Context, key Key) ([]byte, error) {
	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("reading baseline: %w", err)
	}
	return data, nil
}

// Clear removes all stored records and returns how many were removed.
func (c *FileChannel) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading baseline directory: %w", err)
	}
	var removed int
	for _, e := range entries {
		if !isRecordFile(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("removing %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// Stats describes a baseline directory.
type Stats struct {
	Dir        string `json:"dir"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
}

// GetStats returns information about the stored records.
func (c *FileChannel) GetStats() (Stats, error) {
	stats := Stats{Dir: c.dir}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("reading baseline directory: %w", err)
	}
	for _, e := range entries {
		if !isRecordFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}

// Dir returns the baseline directory path.
func (c *FileChannel) Dir() string {
	return c.dir
}

// HashKey returns the file name stem used for key.
func HashKey(key Key) string {
	h := sha256.Sum256([]byte(key.Branch + "\x00" + key.Workflow))
	return fmt.Sprintf("%x", h)
}

func (c *FileChannel) entryPath(key Key) string {
	return filepath.Join(c.dir, HashKey(key)+".json")
}

func isRecordFile(name string) bool {
	return filepath.Ext(name) == ".json" && !strings.HasPrefix(name, ".")
}

// DefaultDir returns $XDG_CACHE_HOME/sizewatch or the OS equivalent.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "sizewatch"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "sizewatch"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "sizewatch", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "sizewatch", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "sizewatch"), nil
	}
}
