package threat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/netip"
	"strings"
	"time"

	"breachwatch/internal/provider"
)

// HTTPFeed fetches a plain-text IP blocklist (one address or CIDR per line,
// '#' and ';' start comments), the format used by FireHOL and Spamhaus DROP.
type HTTPFeed struct {
	name   string
	url    string
	client *provider.HTTPClient
	now    func() time.Time
}

func NewHTTPFeed(name, url string, client *provider.HTTPClient) *HTTPFeed {
	if client == nil {
		client = provider.NewHTTPClient(30 * time.Second)
	}
	return &HTTPFeed{name: name, url: url, client: client, now: time.Now}
}

func (f *HTTPFeed) Name() string { return f.name }

func (f *HTTPFeed) Fetch(ctx context.Context) ([]Indicator, error) {
	body, err := f.client.GetText(ctx, f.name, f.url, nil)
	if err != nil {
		return nil, err
	}
	return ParseFeed(f.name, strings.NewReader(body), f.now())
}

// ParseFeed reads a plain-text blocklist. Unparseable lines are skipped.
func ParseFeed(source string, r io.Reader, seen time.Time) ([]Indicator, error) {
	var out []Indicator
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexAny(line, "#;"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		p, ok := parseIndicator(fields[0])
		if !ok {
			continue
		}
		out = append(out, Indicator{Prefix: p, Source: source, FirstSeen: seen})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("threat: read %s: %w", source, err)
	}
	return out, nil
}

// parseIndicator accepts a bare address (stored as a single-host prefix) or
// a CIDR.
func parseIndicator(s string) (netip.Prefix, bool) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, false
		}
		return p.Masked(), true
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, false
	}
	a = a.Unmap()
	return netip.PrefixFrom(a, a.BitLen()), true
}
