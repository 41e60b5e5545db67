package threat

import (
	"context"
	"net/netip"
	"slices"
	"sync"

	"github.com/willf/bloom"

	"breachwatch/internal/metrics"
)

const (
	falsePositiveRate = 0.001
	minExpected       = 1024
)

// BloomStore answers blocklist membership from a bloom filter alone. Every
// indicator is added as its masked network prefix; a lookup masks the
// address to each prefix length seen in the feed and tests the filter.
// Lookups cost one probe per distinct prefix length regardless of feed size,
// and memory stays near 1.8 bytes per indicator. The price is a false
// positive rate of about 0.1% per probed length; there are no false
// negatives.
type BloomStore struct {
	mu        sync.RWMutex
	filter    *bloom.BloomFilter
	v4Lengths []int
	v6Lengths []int
	entries   int
}

// NewBloomStore sizes the filter for the expected number of indicators.
func NewBloomStore(expected uint) *BloomStore {
	if expected < minExpected {
		expected = minExpected
	}
	return &BloomStore{filter: bloom.NewWithEstimates(expected, falsePositiveRate)}
}

func (s *BloomStore) SaveIndicators(_ context.Context, indicators []Indicator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ind := range indicators {
		p, ok := canonical(ind.Prefix)
		if !ok {
			continue
		}
		key, _ := p.MarshalBinary()
		if s.filter.Test(key) {
			continue
		}
		s.filter.Add(key)
		s.entries++
		if p.Addr().Is4() {
			s.v4Lengths = addLength(s.v4Lengths, p.Bits())
		} else {
			s.v6Lengths = addLength(s.v6Lengths, p.Bits())
		}
	}
	metrics.BlocklistSize.Set(float64(s.entries))
	return nil
}

func (s *BloomStore) Contains(ip netip.Addr) bool {
	ip = ip.Unmap()
	s.mu.RLock()
	defer s.mu.RUnlock()

	lengths := s.v6Lengths
	if ip.Is4() {
		lengths = s.v4Lengths
	}
	for _, bits := range lengths {
		p, err := ip.Prefix(bits)
		if err != nil {
			continue
		}
		key, _ := p.MarshalBinary()
		if s.filter.Test(key) {
			return true
		}
	}
	return false
}

// Len is the number of distinct indicators loaded. Duplicates are detected
// through the filter, so the count can fall short by the false positive rate.
func (s *BloomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries
}

// canonical masks p and folds IPv4-mapped ranges into IPv4.
func canonical(p netip.Prefix) (netip.Prefix, bool) {
	if !p.IsValid() {
		return netip.Prefix{}, false
	}
	if a := p.Addr(); a.Is4In6() {
		if p.Bits() < 96 {
			return p.Masked(), true
		}
		p = netip.PrefixFrom(a.Unmap(), p.Bits()-96)
	}
	return p.Masked(), true
}

func addLength(lengths []int, bits int) []int {
	i, found := slices.BinarySearch(lengths, bits)
	if found {
		return lengths
	}
	return slices.Insert(lengths, i, bits)
}
