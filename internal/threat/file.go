package threat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore accumulates indicators and writes them as a plain-text blocklist
// that LoadFile reads back.
type FileStore struct {
	path string

	mu   sync.Mutex
	seen map[string]string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, seen: make(map[string]string)}
}

func (f *FileStore) SaveIndicators(_ context.Context, indicators []Indicator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ind := range indicators {
		if ind.Prefix.IsValid() {
			f.seen[ind.Prefix.String()] = ind.Source
		}
	}
	return nil
}

// Len reports how many distinct indicators have been saved.
func (f *FileStore) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// Flush writes every indicator saved so far, replacing the file atomically.
func (f *FileStore) Flush() (int, error) {
	f.mu.Lock()
	lines := make([]string, 0, len(f.seen))
	for p, src := range f.seen {
		lines = append(lines, p+" # "+src)
	}
	f.mu.Unlock()
	sort.Strings(lines)

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".blocklist-*")
	if err != nil {
		return 0, fmt.Errorf("threat: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("threat: write blocklist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("threat: write blocklist: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return 0, fmt.Errorf("threat: replace blocklist: %w", err)
	}
	return len(lines), nil
}

// LoadFile reads a blocklist written by FileStore (or any plain-text feed)
// into a BloomStore.
func LoadFile(ctx context.Context, path string) (*BloomStore, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("threat: open blocklist: %w", err)
	}
	defer fh.Close()

	indicators, err := ParseFeed(filepath.Base(path), fh, time.Now())
	if err != nil {
		return nil, err
	}
	store := NewBloomStore(uint(len(indicators) + 1))
	if err := store.SaveIndicators(ctx, indicators); err != nil {
		return nil, err
	}
	return store, nil
}
