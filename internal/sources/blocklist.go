package sources

import (
	"context"
	"errors"
	"net/netip"

	"breachwatch/internal/provider"
)

// Matcher reports whether an address appears in a loaded threat feed.
type Matcher interface {
	Contains(ip netip.Addr) bool
}

// Blocklist is the local reputation source backed by the threat feed store.
type Blocklist struct {
	m     Matcher
	score int
}

func NewBlocklist(m Matcher, score int) *Blocklist {
	if score <= 0 {
		score = 50
	}
	return &Blocklist{m: m, score: score}
}

func (b *Blocklist) Name() string { return NameBlocklist }

func (b *Blocklist) CheckIP(_ context.Context, ip netip.Addr) (provider.Finding, error) {
	if b.m == nil {
		return provider.Finding{}, errors.New("blocklist: no feed loaded")
	}
	if !b.m.Contains(ip) {
		return provider.Finding{Provider: NameBlocklist, RawScore: provider.Score(0)}, nil
	}
	return provider.Finding{
		Provider:   NameBlocklist,
		Found:      true,
		Count:      1,
		RawScore:   provider.Score(float64(b.score)),
		Tags:       []string{"Listed in threat feed"},
		Suspicious: true,
	}, nil
}
