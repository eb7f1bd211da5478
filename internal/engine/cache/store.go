package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// cacheFileExtension is the file extension used for cache entries.
const cacheFileExtension = ".json"

// Common cache errors.
var (
	ErrCacheNotFound   = errors.New("cache entry not found")
	ErrCacheExpired    = errors.New("cache entry expired")
	ErrInvalidCacheKey = errors.New("cache key cannot be empty")
	ErrCacheDisabled   = errors.New("cache is disabled")
)

// FileStore keeps cache entries as JSON files in a single directory.
// It is safe for concurrent use within one process.
type FileStore struct {
	directory string
	enabled   bool
	ttl       time.Duration

	// now is replaceable in tests.
	now func() time.Time

	mu sync.RWMutex
}

// NewFileStore creates a file store rooted at directory, creating it if needed.
// When enabled is false the directory is ignored and every operation returns
// ErrCacheDisabled.
func NewFileStore(directory string, enabled bool, ttl time.Duration) (*FileStore, error) {
	if !enabled {
		return &FileStore{enabled: false, now: time.Now}, nil
	}

	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}

	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStore{
		directory: directory,
		enabled:   true,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// Get returns the entry for key. It returns ErrCacheNotFound for a miss and
// ErrCacheExpired (after removing the file) for a stale entry.
func (s *FileStore) Get(key string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrCacheDisabled
	}
	if key == "" {
		return nil, ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.pathFor(key)
	entry, err := readEntry(path)
	if err != nil {
		return nil, err
	}

	if entry.ExpiredAt(s.now()) {
		_ = os.Remove(path)
		return nil, ErrCacheExpired
	}

	return entry, nil
}

// Set stores data under key with the store's TTL, replacing any existing entry.
func (s *FileStore) Set(key, source string, data json.RawMessage) error {
	if !s.enabled {
		return ErrCacheDisabled
	}
	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := newEntry(key, source, data, s.now(), s.ttl)
	encoded, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	path := s.pathFor(key)
	tempPath := path + ".tmp"
	if writeErr := os.WriteFile(tempPath, encoded, 0600); writeErr != nil {
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}
	if renameErr := os.Rename(tempPath, path); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}

	return nil
}

// Delete removes the entry for key. Deleting a missing entry is not an error.
func (s *FileStore) Delete(key string) error {
	if !s.enabled {
		return ErrCacheDisabled
	}
	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.pathFor(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Clear removes every cache entry and returns how many were removed.
func (s *FileStore) Clear() (int, error) {
	return s.removeWhere(func(*Entry) bool { return true })
}

// CleanupExpired removes expired entries and returns how many were removed.
// Files that cannot be parsed are left alone.
func (s *FileStore) CleanupExpired() (int, error) {
	now := s.now()
	return s.removeWhere(func(e *Entry) bool { return e != nil && e.ExpiredAt(now) })
}

// Count returns the number of entries on disk, including expired ones.
func (s *FileStore) Count() (int, error) {
	if !s.enabled {
		return 0, ErrCacheDisabled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.entryFiles()
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// IsEnabled returns true if caching is enabled.
func (s *FileStore) IsEnabled() bool {
	return s.enabled
}

// Directory returns the cache directory path.
func (s *FileStore) Directory() string {
	return s.directory
}

// TTL returns the lifetime given to new entries.
func (s *FileStore) TTL() time.Duration {
	return s.ttl
}

// removeWhere deletes entry files for which match returns true. A file
// that fails to parse is passed to match as nil.
func (s *FileStore) removeWhere(match func(*Entry) bool) (int, error) {
	if !s.enabled {
		return 0, ErrCacheDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.entryFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range files {
		entry, readErr := readEntry(path)
		if readErr != nil {
			entry = nil
		}
		if !match(entry) {
			continue
		}
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return removed, fmt.Errorf("failed to remove cache file %s: %w", filepath.Base(path), rmErr)
		}
		removed++
	}
	return removed, nil
}

// Must be called with mu held.
func (s *FileStore) entryFiles() ([]string, error) {
	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var files []string
	for _, d := range dirEntries {
		if d.IsDir() || filepath.Ext(d.Name()) != cacheFileExtension {
			continue
		}
		files = append(files, filepath.Join(s.directory, d.Name()))
	}
	return files, nil
}

func (s *FileStore) pathFor(key string) string {
	return filepath.Join(s.directory, HashKey(key)+cacheFileExtension)
}

// HashKey returns the hex SHA-256 of key, used as the entry's file name.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func readEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &entry, nil
}
