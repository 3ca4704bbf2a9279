package cache

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/dfg-linearity-query/pkg/dfg"
	"github.com/l3aro/dfg-linearity-query/pkg/sdg"
)

func TestLRUCache_Basic(t *testing.T) {
	c := New(Options{MaxSize: 3})

	c.Set("a", "value_a")
	c.Set("b", "value_b")
	c.Set("c", "value_c")

	assert.Equal(t, 3, c.Len())

	val, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, "value_a", val)

	val, found = c.Get("b")
	require.True(t, found)
	assert.Equal(t, "value_b", val)
}

func TestLRUCache_LRU_Eviction(t *testing.T) {
	c := New(Options{MaxSize: 3})

	c.Set("a", "value_a")
	c.Set("b", "value_b")
	c.Set("c", "value_c")

	// Access 'a' to make it most recently used
	c.Get("a")

	// Add new item - should evict 'b' (least recently used)
	c.Set("d", "value_d")

	assert.Equal(t, 3, c.Len())

	_, found := c.Get("b")
	assert.False(t, found, "b should have been evicted")

	_, found = c.Get("a")
	assert.True(t, found, "a should still be present")

	_, found = c.Get("c")
	assert.True(t, found, "c should still be present")

	_, found = c.Get("d")
	assert.True(t, found, "d should be present")
}

func TestLRUCache_Delete(t *testing.T) {
	c := New(Options{MaxSize: 10})

	c.Set("a", "value_a")
	c.Set("b", "value_b")

	c.Delete("a")

	assert.Equal(t, 1, c.Len())

	_, found := c.Get("a")
	assert.False(t, found)

	val, found := c.Get("b")
	require.True(t, found)
	assert.Equal(t, "value_b", val)
}

func TestLRUCache_Clear(t *testing.T) {
	c := New(Options{MaxSize: 10})

	c.Set("a", "value_a")
	c.Set("b", "value_b")

	c.Clear()

	assert.Equal(t, 0, c.Len())
}

func TestLRUCache_SaveLoad(t *testing.T) {
	c := New(Options{MaxSize: 10})
	c.Set("key1", "value1")
	c.Set("key2", "value2")

	var buf bytes.Buffer
	err := c.Save(&buf)
	require.NoError(t, err)

	c2 := New(Options{MaxSize: 10})
	err = c2.Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, 2, c2.Len())

	val, found := c2.Get("key1")
	require.True(t, found)
	assert.Equal(t, "value1", val)
}

func TestLRUCache_MaxBytes(t *testing.T) {
	c := New(Options{MaxBytes: 50})

	// Each string is roughly 10 bytes
	c.Set("a", "1234567890")
	c.Set("b", "1234567890")
	c.Set("c", "1234567890")

	// Should have evicted at least one
	assert.LessOrEqual(t, c.Len(), 3)
}

func TestLRUCache_Update(t *testing.T) {
	c := New(Options{MaxSize: 10})

	c.Set("a", "value1")
	c.Set("a", "value2")

	val, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, "value2", val)

	assert.Equal(t, 1, c.Len())
}

func sampleRecord(dump string) Record {
	return Record{
		Design:  "top",
		Dump:    dump,
		Signals: 4,
		Bound:   3,
		Metrics: &sdg.Metrics{
			TotalExpressions: 3,
			LinearCount:      2,
			NonlinearCount:   1,
			LinearRatio:      2.0 / 3.0,
			NonlinearRatio:   1.0 / 3.0,
			KindDist:         map[dfg.NodeKind]int{dfg.NodeOperator: 2, dfg.NodeTerminal: 1},
			ReasonFreq:       map[string]int{"contains nonlinear operator Times": 1},
			LongestLinearChain: sdg.Chain{
				Length: 2,
				Path:   []string{"top.a", "top.b", "top.c"},
			},
		},
		AnalyzedAt: 1700000000,
	}
}

func TestResultCache_Basic(t *testing.T) {
	rc := NewResultCache(ResultCacheOptions{MaxRecords: 10})

	rec := sampleRecord("alu.txt")
	key := Key(HashString("dump content"), "fp1234")
	rc.Set(key, rec)

	got, found := rc.Get(key)
	require.True(t, found)
	assert.Equal(t, rec, got)
	assert.Equal(t, 1, rc.Len())
}

func TestResultCache_LRU_Eviction(t *testing.T) {
	rc := NewResultCache(ResultCacheOptions{MaxRecords: 2})

	rc.Set("key1", sampleRecord("a.txt"))
	rc.Set("key2", sampleRecord("b.txt"))

	// Access key1 to make it recently used
	rc.Get("key1")

	// Add third - should evict key2
	rc.Set("key3", sampleRecord("c.txt"))

	_, found := rc.Get("key2")
	assert.False(t, found, "key2 should have been evicted")

	_, found = rc.Get("key1")
	assert.True(t, found, "key1 should still be present")
}

func TestResultCache_Stats(t *testing.T) {
	rc := NewResultCache(ResultCacheOptions{MaxRecords: 10})

	rc.Set("key1", sampleRecord("a.txt"))

	// Hit
	rc.Get("key1")
	// Miss
	rc.Get("nonexistent")

	stats := rc.Stats()
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.Equal(t, 0.5, rc.HitRate())
}

func TestStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := OpenStore(tmpDir, 0)
	require.NoError(t, err)

	rec := sampleRecord("cores/fifo.txt")
	key := Key(HashString("fifo dump"), "fpabcd")
	s.Set(key, rec)

	err = s.Flush()
	require.NoError(t, err)

	s2, err := OpenStore(tmpDir, 0)
	require.NoError(t, err)

	got, found := s2.Get(key)
	require.True(t, found)
	assert.Equal(t, rec, got)
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := OpenStore(filepath.Join(tmpDir, "fresh"), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Remove(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := OpenStore(tmpDir, 0)
	require.NoError(t, err)

	s.Set("key1", sampleRecord("a.txt"))
	require.NoError(t, s.Flush())

	require.NoError(t, s.Remove())
	assert.Equal(t, 0, s.Len())

	// Removing again is fine
	require.NoError(t, s.Remove())

	s2, err := OpenStore(tmpDir, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, s2.Len())
}

func TestKey(t *testing.T) {
	k1 := Key("hash1", "fp1")
	k2 := Key("hash1", "fp2")
	k3 := Key("hash2", "fp1")

	assert.NotEqual(t, k1, k2, "policy change should change the key")
	assert.NotEqual(t, k1, k3, "content change should change the key")
	assert.Equal(t, k1, Key("hash1", "fp1"))
}

func TestHashString(t *testing.T) {
	h1 := HashString("hello world")
	h2 := HashString("hello world")
	h3 := HashString("different")

	assert.Equal(t, h1, h2, "same content should produce same hash")
	assert.NotEqual(t, h1, h3, "different content should produce different hash")
	assert.Len(t, h1, 64, "SHA256 hash should be 64 hex characters")
}

func TestPersistedFileDoesNotExist(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nonexistent.cache")

	c := New(Options{MaxSize: 10})

	err := LoadFromFile(c, path)
	require.NoError(t, err, "loading non-existent file should not error")

	assert.Equal(t, 0, c.Len())
}

func TestCacheInterface(t *testing.T) {
	c := New(Options{MaxSize: 10})

	var _ Cache = c
}

func TestStatsCache(t *testing.T) {
	sc := NewStatsCache(Options{MaxSize: 10})

	sc.Set("key1", "value1")
	sc.Get("key1")
	sc.Get("key2")

	stats := sc.Stats()
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)

	assert.Equal(t, 0.5, sc.HitRate())

	sc.ResetStats()

	stats = sc.Stats()
	assert.Equal(t, int64(0), stats.HitCount)
}
