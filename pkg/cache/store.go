// Package cache provides caching utilities for the application.
// This file contains the analysis result store.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/dfg-linearity-query/pkg/sdg"
)

// storeVersion is bumped whenever the Record layout changes. Records
// persisted under an older version are discarded on load.
const storeVersion = 1

// storeFileName is the persisted cache file inside the cache directory.
const storeFileName = "analysis.msgpack"

// Record is a cached summary of one dump analysis. It carries everything
// the batch summary needs so an unchanged dump is never re-parsed.
type Record struct {
	Design     string       `msgpack:"design"`
	Dump       string       `msgpack:"dump"` // path of the dump when analyzed
	Signals    int          `msgpack:"signals"`
	Bound      int          `msgpack:"bound"`
	Metrics    *sdg.Metrics `msgpack:"metrics"`
	AnalyzedAt int64        `msgpack:"analyzed_at"`
}

// NewRecord builds a Record from a finished analysis.
func NewRecord(dump string, a *sdg.Analysis) Record {
	return Record{
		Design:     a.Design.Name,
		Dump:       dump,
		Signals:    len(a.Design.Signals),
		Bound:      a.Design.BoundCount(),
		Metrics:    a.Metrics,
		AnalyzedAt: time.Now().Unix(),
	}
}

// Key combines a dump content hash with a policy fingerprint. Changing
// either the dump or the operator policy produces a different key, so
// stale entries simply stop matching and age out of the LRU.
func Key(contentHash, policyFingerprint string) string {
	return contentHash + ":" + policyFingerprint
}

// HashString generates a SHA256 hash of a string.
func HashString(content string) string {
	h := sha256.New()
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// HashBytes generates a SHA256 hash of bytes.
func HashBytes(data []byte) string {
	h := sha256.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ResultCache is a typed cache for analysis records.
type ResultCache struct {
	cache *StatsCache
}

// ResultCacheOptions configures the result cache.
type ResultCacheOptions struct {
	MaxRecords int
	MaxBytes   int64
	OnEvict    func(key string, rec Record)
}

// NewResultCache creates a new result cache.
func NewResultCache(opts ResultCacheOptions) *ResultCache {
	if opts.MaxBytes == 0 {
		opts.MaxBytes = 100 * 1024 * 1024
	}
	if opts.MaxRecords == 0 {
		opts.MaxRecords = 10000
	}

	rc := &ResultCache{
		cache: NewStatsCache(Options{
			MaxSize:  opts.MaxRecords,
			MaxBytes: opts.MaxBytes,
			OnEvict: func(key string, value interface{}) {
				if opts.OnEvict != nil {
					if rec, ok := value.(Record); ok {
						opts.OnEvict(key, rec)
					}
				}
			},
		}),
	}
	return rc
}

// Get retrieves a record by key.
func (rc *ResultCache) Get(key string) (Record, bool) {
	value, found := rc.cache.Get(key)
	if !found {
		return Record{}, false
	}
	if rec, ok := value.(Record); ok {
		return rec, true
	}
	return Record{}, false
}

// Set stores a record in the cache.
func (rc *ResultCache) Set(key string, rec Record) {
	rc.cache.Set(key, rec)
}

// Delete removes a record from the cache.
func (rc *ResultCache) Delete(key string) {
	rc.cache.Delete(key)
}

// Clear removes all records from the cache.
func (rc *ResultCache) Clear() {
	rc.cache.Clear()
}

// Len returns the number of cached records.
func (rc *ResultCache) Len() int {
	return rc.cache.Len()
}

// Stats returns cache statistics including hit and miss counts.
func (rc *ResultCache) Stats() Stats {
	return rc.cache.Stats()
}

// HitRate returns the cache hit rate.
func (rc *ResultCache) HitRate() float64 {
	return rc.cache.HitRate()
}

// Store ties a result cache to a file on disk.
type Store struct {
	cache *ResultCache
	mu    sync.RWMutex
	path  string
}

// OpenStore opens (creating if needed) the cache directory and loads any
// persisted records from it. maxBytes bounds the in-memory cache; 0 means
// the default.
func OpenStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	s := &Store{
		cache: NewResultCache(ResultCacheOptions{MaxBytes: maxBytes}),
		path:  filepath.Join(dir, storeFileName),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a record by key.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Get(key)
}

// Set stores a record.
func (s *Store) Set(key string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(key, rec)
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Stats returns store statistics.
func (s *Store) Stats() Stats {
	return s.cache.Stats()
}

// HitRate returns the store hit rate.
func (s *Store) HitRate() float64 {
	return s.cache.HitRate()
}

// Flush persists the store to disk.
func (s *Store) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer f.Close()

	return s.saveToFile(f)
}

// Remove deletes the persisted store file. In-memory records survive
// until the process exits.
func (s *Store) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Clear()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

// load restores the store from disk. A missing file is not an error.
func (s *Store) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	return s.loadFromFile(f)
}

type storeData struct {
	Version int               `msgpack:"version"`
	Entries map[string]Record `msgpack:"entries"`
}

func (s *Store) saveToFile(w io.Writer) error {
	data := storeData{
		Version: storeVersion,
		Entries: make(map[string]Record),
	}

	// Iterate through the cache entries
	lruCache := s.cache.cache.LRUCache
	lruCache.mu.RLock()
	for key, item := range lruCache.items {
		if rec, ok := item.Value.(Record); ok {
			data.Entries[key] = rec
		}
	}
	lruCache.mu.RUnlock()

	enc := msgpack.NewEncoder(w)
	return enc.Encode(data)
}

func (s *Store) loadFromFile(r io.Reader) error {
	var data storeData
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&data); err != nil {
		return fmt.Errorf("failed to decode store: %w", err)
	}

	// A layout change invalidates the whole store
	if data.Version != storeVersion {
		return nil
	}

	for key, rec := range data.Entries {
		s.cache.Set(key, rec)
	}

	return nil
}
