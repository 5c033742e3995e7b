// Package cache keeps the raw body of every fetched source so a run can be
// repeated offline.
package cache

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one cached source body.
type Entry struct {
	Source    string    `json:"source"`
	URL       string    `json:"url,omitempty"`
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Cache stores entries keyed by source name. Get returns nil, nil on a miss.
// Implementations are safe for concurrent use.
type Cache interface {
	Get(source string) (*Entry, error)
	Put(entry *Entry) error
	Close() error
}

// Backend names accepted by New.
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// New opens the backend named kind under dir. compress only applies to the
// file backend.
func New(kind, dir string, compress bool) (Cache, error) {
	switch kind {
	case "", BackendFile:
		return NewFileCache(dir, compress), nil
	case BackendBolt:
		c, err := NewBoltCache(filepath.Join(dir, "cache.db"))
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendMemory:
		return NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", kind)
	}
}

func validateSource(source string) error {
	if source == "" {
		return fmt.Errorf("empty source name")
	}
	if strings.ContainsAny(source, `/\`) || source == "." || source == ".." {
		return fmt.Errorf("invalid source name %q", source)
	}
	return nil
}
