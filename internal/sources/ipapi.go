package sources

import (
	"context"
	"fmt"
	"net/netip"

	"breachwatch/internal/provider"
)

const defaultIPAPIBaseURL = "http://ip-api.com"

// IPAPI resolves geolocation. It needs no key.
type IPAPI struct {
	opts Options
}

func NewIPAPI(opts Options) *IPAPI {
	return &IPAPI{opts: opts.withDefaults(defaultIPAPIBaseURL)}
}

func (g *IPAPI) Name() string { return NameIPAPI }

type ipapiResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	RegionName  string `json:"regionName"`
	City        string `json:"city"`
	ISP         string `json:"isp"`
	Org         string `json:"org"`
	Timezone    string `json:"timezone"`
}

func (g *IPAPI) Locate(ctx context.Context, ip netip.Addr) (*provider.Location, error) {
	var resp ipapiResponse
	if err := g.opts.Client.GetJSON(ctx, NameIPAPI, g.opts.BaseURL+"/json/"+ip.String(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("%s: lookup failed: %s", NameIPAPI, resp.Message)
	}
	return &provider.Location{
		Country:     resp.Country,
		CountryCode: resp.CountryCode,
		Region:      resp.RegionName,
		City:        resp.City,
		ISP:         resp.ISP,
		Org:         resp.Org,
		Timezone:    resp.Timezone,
	}, nil
}
