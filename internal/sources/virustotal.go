package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"

	"breachwatch/internal/provider"
)

const defaultVirusTotalBaseURL = "https://www.virustotal.com"

// VirusTotal contributes malicious*10 + suspicious*5 engine detections and
// fires on any detection.
type VirusTotal struct {
	opts Options
}

func NewVirusTotal(opts Options) *VirusTotal {
	return &VirusTotal{opts: opts.withDefaults(defaultVirusTotalBaseURL)}
}

func (v *VirusTotal) Name() string { return NameVirusTotal }

type virusTotalResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

func (v *VirusTotal) CheckIP(ctx context.Context, ip netip.Addr) (provider.Finding, error) {
	if v.opts.APIKey == "" {
		return provider.Finding{}, missingKey(NameVirusTotal)
	}
	var resp virusTotalResponse
	err := v.opts.Client.GetJSON(ctx, NameVirusTotal, v.opts.BaseURL+"/api/v3/ip_addresses/"+ip.String(),
		http.Header{"x-apikey": {v.opts.APIKey}}, &resp)
	if err != nil {
		return provider.Finding{}, err
	}

	stats := resp.Data.Attributes.LastAnalysisStats
	malicious, suspicious := max(stats.Malicious, 0), max(stats.Suspicious, 0)

	var tags []string
	if malicious > 0 {
		tags = append(tags, fmt.Sprintf("Malicious activity (%d detections)", malicious))
	}
	if suspicious > 0 {
		tags = append(tags, fmt.Sprintf("Suspicious activity (%d detections)", suspicious))
	}
	fired := malicious > 0 || suspicious > 0
	return provider.Finding{
		Provider:   NameVirusTotal,
		Found:      fired,
		Count:      malicious + suspicious,
		RawScore:   provider.Score(float64(malicious*10 + suspicious*5)),
		Tags:       tags,
		Suspicious: fired,
	}, nil
}
