package threat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachwatch/internal/provider"
)

const sampleFeed = `# FireHOL-style feed
203.0.113.7
198.51.100.0/24 ; SBL123
not-an-ip
::ffff:192.0.2.1

2001:db8::/32
`

func TestParseFeed(t *testing.T) {
	seen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := ParseFeed("test", strings.NewReader(sampleFeed), seen)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "203.0.113.7/32", got[0].Prefix.String())
	assert.Equal(t, "198.51.100.0/24", got[1].Prefix.String())
	assert.Equal(t, "192.0.2.1/32", got[2].Prefix.String())
	assert.Equal(t, "2001:db8::/32", got[3].Prefix.String())
	assert.Equal(t, "test", got[0].Source)
	assert.Equal(t, seen, got[0].FirstSeen)
}

func TestBloomStoreContains(t *testing.T) {
	ctx := context.Background()
	inds, err := ParseFeed("test", strings.NewReader(sampleFeed), time.Now())
	require.NoError(t, err)

	s := NewBloomStore(10)
	require.NoError(t, s.SaveIndicators(ctx, inds))
	require.NoError(t, s.SaveIndicators(ctx, inds[:1]))
	assert.Equal(t, 4, s.Len())

	assert.True(t, s.Contains(netip.MustParseAddr("203.0.113.7")))
	assert.True(t, s.Contains(netip.MustParseAddr("198.51.100.200")))
	assert.True(t, s.Contains(netip.MustParseAddr("192.0.2.1")))
	assert.True(t, s.Contains(netip.MustParseAddr("::ffff:203.0.113.7")))
	assert.True(t, s.Contains(netip.MustParseAddr("2001:db8::1")))
	assert.False(t, s.Contains(netip.MustParseAddr("8.8.8.8")))
	assert.False(t, s.Contains(netip.MustParseAddr("203.0.113.8")))
}

func TestBloomStoreLargeRangeFeed(t *testing.T) {
	inds := make([]Indicator, 0, 10000)
	for i := 0; i < 10000; i++ {
		inds = append(inds, Indicator{Prefix: netip.PrefixFrom(netip.AddrFrom4([4]byte{10, byte(i / 256), byte(i % 256), 0}), 24)})
	}
	s := NewBloomStore(uint(len(inds)))
	require.NoError(t, s.SaveIndicators(context.Background(), inds))
	assert.Equal(t, []int{24}, s.v4Lengths)

	for i := 0; i < 10000; i += 97 {
		assert.True(t, s.Contains(netip.AddrFrom4([4]byte{10, byte(i / 256), byte(i % 256), 42})))
	}

	falsePositives := 0
	for i := 0; i < 1000; i++ {
		if s.Contains(netip.AddrFrom4([4]byte{192, byte(i / 256), byte(i % 256), 1})) {
			falsePositives++
		}
	}
	assert.Less(t, falsePositives, 20)
}

type stubFetcher struct {
	name string
	inds []Indicator
	err  error
}

func (s stubFetcher) Name() string { return s.name }

func (s stubFetcher) Fetch(context.Context) ([]Indicator, error) { return s.inds, s.err }

func TestETLRunContinuesPastFailures(t *testing.T) {
	store := NewBloomStore(10)
	c := NewETLController(store, nil)
	c.Register(stubFetcher{name: "bad", err: errors.New("feed down")})
	c.Register(stubFetcher{name: "good", inds: []Indicator{
		{Prefix: netip.MustParsePrefix("203.0.113.9/32"), Source: "good"},
	}})

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.True(t, store.Contains(netip.MustParseAddr("203.0.113.9")))
}

func TestHTTPFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewHTTPFeed("firehol", srv.URL, provider.NewHTTPClient(time.Second))
	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, "firehol", f.Name())
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "blocklist.txt")

	fs := NewFileStore(path)
	inds, err := ParseFeed("feed", strings.NewReader(sampleFeed), time.Now())
	require.NoError(t, err)
	require.NoError(t, fs.SaveIndicators(ctx, inds))
	require.NoError(t, fs.SaveIndicators(ctx, inds[:1]))
	assert.Equal(t, 4, fs.Len())
	n, err := fs.Flush()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "198.51.100.0/24 # feed")

	store, err := LoadFile(ctx, path)
	require.NoError(t, err)
	assert.True(t, store.Contains(netip.MustParseAddr("198.51.100.1")))
	assert.False(t, store.Contains(netip.MustParseAddr("1.1.1.1")))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
