package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func backends(t *testing.T) map[string]Cache {
	t.Helper()

	bolt, err := NewBoltCache(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("NewBoltCache() error = %v", err)
	}
	t.Cleanup(func() { bolt.Close() })

	return map[string]Cache{
		"bolt":      bolt,
		"file":      NewFileCache(t.TempDir(), false),
		"file-gzip": NewFileCache(t.TempDir(), true),
		"memory":    NewMemoryCache(),
	}
}

// =============================================================================
// Round-trip Tests
// =============================================================================

func TestCache_RoundTrip(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := c.Get("catalog")
			if err != nil {
				t.Fatalf("Get() on empty cache error = %v", err)
			}
			if got != nil {
				t.Fatalf("Get() on empty cache = %+v, want nil", got)
			}

			entry := &Entry{
				Source:    "catalog",
				URL:       "https://example.com/endpoints.json",
				Body:      []byte(`{"A": {"TYPE": "GET", "uri": "a", "auth": true}}`),
				FetchedAt: time.Now(),
			}
			if err := c.Put(entry); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			got, err = c.Get("catalog")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got == nil {
				t.Fatal("Get() = nil after Put()")
			}
			if string(got.Body) != string(entry.Body) {
				t.Errorf("Body = %q, want %q", got.Body, entry.Body)
			}
			if got.Source != "catalog" {
				t.Errorf("Source = %q, want catalog", got.Source)
			}
			if got.FetchedAt.IsZero() {
				t.Error("FetchedAt should be set")
			}

			if other, _ := c.Get("fleet"); other != nil {
				t.Error("entries must be keyed by source")
			}
		})
	}
}

func TestCache_Overwrite(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, body := range []string{"first", "second"} {
				if err := c.Put(&Entry{Source: "fleet", Body: []byte(body)}); err != nil {
					t.Fatalf("Put() error = %v", err)
				}
			}
			got, err := c.Get("fleet")
			if err != nil || got == nil {
				t.Fatalf("Get() = %v, %v", got, err)
			}
			if string(got.Body) != "second" {
				t.Errorf("Body = %q, want second", got.Body)
			}
		})
	}
}

func TestCache_InvalidSource(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, source := range []string{"", "../escape", "a/b", ".."} {
				if err := c.Put(&Entry{Source: source, Body: []byte("x")}); err == nil {
					t.Errorf("Put(%q) should fail", source)
				}
			}
		})
	}
}

func TestCache_Concurrent(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 3; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					source := fmt.Sprintf("source%d", i)
					if err := c.Put(&Entry{Source: source, Body: []byte(source)}); err != nil {
						t.Errorf("Put(%s) error = %v", source, err)
					}
				}(i)
			}
			wg.Wait()

			for i := 0; i < 3; i++ {
				source := fmt.Sprintf("source%d", i)
				got, err := c.Get(source)
				if err != nil || got == nil || string(got.Body) != source {
					t.Errorf("Get(%s) = %v, %v", source, got, err)
				}
			}
		})
	}
}

// =============================================================================
// Backend-specific Tests
// =============================================================================

func TestFileCache_RawLayout(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCache(dir, false)

	if err := c.Put(&Entry{Source: "command", Body: []byte("package main\n")}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "command"))
	if err != nil {
		t.Fatalf("cache file missing: %v", err)
	}
	if string(data) != "package main\n" {
		t.Errorf("file content = %q", data)
	}
}

func TestMemoryCache_Copies(t *testing.T) {
	c := NewMemoryCache()
	body := []byte("abc")
	if err := c.Put(&Entry{Source: "fleet", Body: body}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	body[0] = 'x'

	got, _ := c.Get("fleet")
	if string(got.Body) != "abc" {
		t.Errorf("Body = %q, want abc", got.Body)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    string
		wantErr bool
	}{
		{"", false},
		{BackendFile, false},
		{BackendBolt, false},
		{BackendMemory, false},
		{"redis", true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			c, err := New(tt.kind, t.TempDir(), false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.kind, err, tt.wantErr)
			}
			if c != nil {
				c.Close()
			}
		})
	}
}
