package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachwatch/internal/metrics"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestMemory(t *testing.T, max int) (*Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory(MemoryOptions{MaxEntries: max, JanitorInterval: time.Hour, Now: clock.Now})
	t.Cleanup(func() { _ = m.Close() })
	return m, clock
}

func TestMemoryGetPut(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 0)

	_, ok, err := m.Get(ctx, "ip_reputation:8.8.8.8")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Put(ctx, "ip_reputation:8.8.8.8", []byte("v1"), time.Minute))
	got, ok, err := m.Get(ctx, "ip_reputation:8.8.8.8")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	// Last write wins.
	require.NoError(t, m.Put(ctx, "ip_reputation:8.8.8.8", []byte("v2"), time.Minute))
	got, _, _ = m.Get(ctx, "ip_reputation:8.8.8.8")
	assert.Equal(t, []byte("v2"), got)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 0)

	in := []byte("verdict")
	require.NoError(t, m.Put(ctx, "k", in, time.Minute))
	in[0] = 'X'

	out, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "verdict", string(out))
	out[0] = 'Y'

	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "verdict", string(again))
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory(t, 0)

	require.NoError(t, m.Put(ctx, "k", []byte("v"), 30*time.Minute))
	clock.Advance(29 * time.Minute)
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryPutExtendsExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory(t, 0)

	require.NoError(t, m.Put(ctx, "k", []byte("v"), time.Minute))
	clock.Advance(50 * time.Second)
	require.NoError(t, m.Put(ctx, "k", []byte("v"), time.Minute))
	clock.Advance(50 * time.Second)

	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory(t, 0)

	require.NoError(t, m.Put(ctx, "short", []byte("v"), time.Second))
	require.NoError(t, m.Put(ctx, "long", []byte("v"), time.Hour))
	clock.Advance(time.Minute)

	m.sweep()
	assert.Equal(t, 1, m.Len())
}

func TestMemoryUnboundedByDefault(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 0)

	for i := 0; i < 1000; i++ {
		require.NoError(t, m.Put(ctx, strings.Repeat("k", i+1), []byte("v"), time.Hour))
	}
	assert.Equal(t, 1000, m.Len())
}

func TestMemoryLRUBound(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 2)

	require.NoError(t, m.Put(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, m.Put(ctx, "b", []byte("2"), time.Hour))
	_, _, _ = m.Get(ctx, "a") // a becomes most recent
	require.NoError(t, m.Put(ctx, "c", []byte("3"), time.Hour))

	_, okA, _ := m.Get(ctx, "a")
	_, okB, _ := m.Get(ctx, "b")
	_, okC, _ := m.Get(ctx, "c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
}

func TestMemoryConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Put(ctx, "same", []byte("v"), time.Minute)
			_, _, _ = m.Get(ctx, "same")
		}()
	}
	wg.Wait()

	got, ok, _ := m.Get(ctx, "same")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "password_breach:cbfdac6008f9cab4083784cbd1874f76618d2a97",
		PasswordKey("CBFDAC6008F9CAB4083784CBD1874F76618D2A97"))
	assert.Equal(t, "ip_reputation:8.8.8.8", IPKey("8.8.8.8"))

	k := DarkWebKey("test@example.com", "email")
	assert.True(t, strings.HasPrefix(k, DarkWebPrefix))
	assert.Len(t, strings.TrimPrefix(k, DarkWebPrefix), 64)
	assert.NotContains(t, k, "test@example.com")
	assert.NotEqual(t, k, DarkWebKey("test@example.com", "domain"))

	assert.Equal(t, "dark_web", Class(k))
	assert.Equal(t, "other", Class("nokey"))
}

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 0)

	require.NoError(t, PutJSON(ctx, m, "ip_reputation:1.1.1.1", sample{Name: "x", Count: 3}, time.Minute))
	got, ok, err := GetJSON[sample](ctx, m, "ip_reputation:1.1.1.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sample{Name: "x", Count: 3}, got)

	require.NoError(t, m.Put(ctx, "ip_reputation:bad", []byte("{"), time.Minute))
	_, ok, err = GetJSON[sample](ctx, m, "ip_reputation:bad")
	assert.Error(t, err)
	assert.False(t, ok)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func (failingCache) Put(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}

func TestInstrumented(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 0)
	c := NewInstrumented(m)

	hits := testutil.ToFloat64(metrics.CacheHits.WithLabelValues("password_breach"))
	misses := testutil.ToFloat64(metrics.CacheMisses.WithLabelValues("password_breach"))

	_, _, _ = c.Get(ctx, "password_breach:abc")
	require.NoError(t, c.Put(ctx, "password_breach:abc", []byte("v"), time.Minute))
	_, _, _ = c.Get(ctx, "password_breach:abc")

	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.CacheHits.WithLabelValues("password_breach")))
	assert.Equal(t, misses+1, testutil.ToFloat64(metrics.CacheMisses.WithLabelValues("password_breach")))

	bad := NewInstrumented(failingCache{})
	errs := testutil.ToFloat64(metrics.CacheErrors.WithLabelValues("dark_web", "get"))
	_, _, err := bad.Get(ctx, "dark_web:x")
	assert.Error(t, err)
	assert.Equal(t, errs+1, testutil.ToFloat64(metrics.CacheErrors.WithLabelValues("dark_web", "get")))
	assert.Error(t, bad.Put(ctx, "dark_web:x", nil, time.Minute))
}

// ctxCache fails writes whose context is done, like a database backend.
type ctxCache struct {
	*Memory
}

func (c ctxCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Memory.Put(ctx, key, value, ttl)
}

func TestPutSettled(t *testing.T) {
	m := NewMemory(MemoryOptions{})
	defer m.Close()
	c := ctxCache{m}

	stored, err := PutSettled(context.Background(), c, "ip_reputation:192.0.2.1", map[string]int{"risk_score": 5}, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stored, err = PutSettled(ctx, c, "ip_reputation:192.0.2.2", map[string]int{"risk_score": 0}, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)
	_, ok, _ := m.Get(context.Background(), "ip_reputation:192.0.2.2")
	assert.False(t, ok)
}
