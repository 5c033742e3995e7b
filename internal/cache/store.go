package cache

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketSources = []byte("sources")

// BoltCache implements Cache using BoltDB.
type BoltCache struct {
	db   *bolt.DB
	path string
}

// NewBoltCache creates a new BoltDB-backed cache.
func NewBoltCache(path string) (*BoltCache, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create bucket
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSources)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltCache{db: db, path: path}, nil
}

// Put stores an entry under its source name.
func (c *BoltCache) Put(entry *Entry) error {
	if err := validateSource(entry.Source); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSources)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(entry.Source), data)
	})
}

// Get loads the entry for source.
func (c *BoltCache) Get(source string) (*Entry, error) {
	var entry Entry
	var found bool

	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSources)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		data := b.Get([]byte(source))
		if data == nil {
			return nil // Not found, but not an error
		}

		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	return &entry, nil
}

// Close closes the database.
func (c *BoltCache) Close() error {
	return c.db.Close()
}

// FileCache implements Cache with one file per source, holding the raw body.
type FileCache struct {
	dir        string
	compressed bool
}

// NewFileCache creates a new file-based cache rooted at dir.
func NewFileCache(dir string, compressed bool) *FileCache {
	return &FileCache{
		dir:        dir,
		compressed: compressed,
	}
}

func (c *FileCache) path(source string) string {
	p := filepath.Join(c.dir, source)
	if c.compressed {
		p += ".gz"
	}
	return p
}

// Put writes the body of entry to its file.
func (c *FileCache) Put(entry *Entry) error {
	if err := validateSource(entry.Source); err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if c.compressed {
		return c.putCompressed(entry)
	}

	return os.WriteFile(c.path(entry.Source), entry.Body, 0644)
}

// putCompressed writes the body with gzip compression.
func (c *FileCache) putCompressed(entry *Entry) error {
	file, err := os.Create(c.path(entry.Source))
	if err != nil {
		return err
	}
	defer file.Close()

	gw := gzip.NewWriter(file)
	gw.Name = entry.Source
	if _, err := gw.Write(entry.Body); err != nil {
		return err
	}
	return gw.Close()
}

// Get reads the body for source. FetchedAt is the file's modification time.
func (c *FileCache) Get(source string) (*Entry, error) {
	if err := validateSource(source); err != nil {
		return nil, err
	}

	info, err := os.Stat(c.path(source))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var body []byte
	if c.compressed {
		body, err = c.getCompressed(source)
	} else {
		body, err = os.ReadFile(c.path(source))
	}
	if err != nil {
		return nil, err
	}

	return &Entry{
		Source:    source,
		Body:      body,
		FetchedAt: info.ModTime(),
	}, nil
}

// getCompressed reads a gzip-compressed body.
func (c *FileCache) getCompressed(source string) ([]byte, error) {
	file, err := os.Open(c.path(source))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gr, err := gzip.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}

// Close is a no-op for FileCache.
func (c *FileCache) Close() error {
	return nil
}

// MemoryCache implements Cache in memory.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

// Put stores a copy of entry.
func (c *MemoryCache) Put(entry *Entry) error {
	if err := validateSource(entry.Source); err != nil {
		return err
	}

	e := *entry
	e.Body = append([]byte(nil), entry.Body...)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Source] = e
	return nil
}

// Get returns a copy of the stored entry.
func (c *MemoryCache) Get(source string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[source]
	if !ok {
		return nil, nil
	}
	e.Body = append([]byte(nil), e.Body...)
	return &e, nil
}

// Close is a no-op for MemoryCache.
func (c *MemoryCache) Close() error {
	return nil
}
