package alert

import (
	"fmt"
	"strings"

	"breachwatch/internal/common"
	"breachwatch/internal/provider"
)

// Payload keys understood by the formatters.
const (
	KeyDigestPrefix   = "digest_prefix"
	KeyBreachCount    = "breach_count"
	KeySources        = "sources"
	KeyStrength       = "strength"
	KeyIP             = "ip"
	KeyRiskScore      = "risk_score"
	KeyThreats        = "threats"
	KeyLocation       = "location"
	KeyFilePath       = "file_path"
	KeyDetectionRatio = "detection_ratio"
	KeyTotalScanners  = "total_scanners"
	KeyQuery          = "query"
	KeyTotalBreaches  = "total_breaches"
)

// Footer signs every outgoing alert.
const Footer = "breachwatch threat monitor"

func Emoji(t common.AlertType) string {
	switch t {
	case common.AlertPasswordBreach:
		return "🔓"
	case common.AlertSuspiciousIP:
		return "🚨"
	case common.AlertMalwareDetected:
		return "🦠"
	case common.AlertDarkWebBreach:
		return "🌑"
	default:
		return "⚠️"
	}
}

func Title(t common.AlertType) string {
	switch t {
	case common.AlertPasswordBreach:
		return "Password Breach Detected"
	case common.AlertSuspiciousIP:
		return "Suspicious IP Detected"
	case common.AlertMalwareDetected:
		return "Malware Detected"
	case common.AlertDarkWebBreach:
		return "Dark Web Breach Found"
	default:
		return "Security Alert"
	}
}

// Color is the Slack attachment color.
func Color(t common.AlertType) string {
	switch t {
	case common.AlertPasswordBreach, common.AlertMalwareDetected:
		return "#ff0000"
	case common.AlertDarkWebBreach:
		return "#800080"
	default:
		return "#ffa500"
	}
}

func Severity(t common.AlertType) common.SeverityLevel {
	switch t {
	case common.AlertPasswordBreach, common.AlertMalwareDetected:
		return common.SeverityHigh
	case common.AlertSuspiciousIP, common.AlertDarkWebBreach:
		return common.SeverityMedium
	default:
		return common.SeverityLow
	}
}

// Subject is the email subject line.
func Subject(t common.AlertType) string {
	switch t {
	case common.AlertPasswordBreach:
		return "🚨 Security Alert: Password Compromised"
	case common.AlertSuspiciousIP:
		return "⚠️ Security Alert: Suspicious IP Detected"
	case common.AlertMalwareDetected:
		return "🦠 Security Alert: Malware Detected"
	case common.AlertDarkWebBreach:
		return "🌑 Security Alert: Dark Web Breach Found"
	default:
		return "🔐 Security Alert"
	}
}

func Description(t common.AlertType) string {
	switch t {
	case common.AlertPasswordBreach:
		return "A password has been found in one or more data breaches. Immediate action is required."
	case common.AlertSuspiciousIP:
		return "A suspicious IP address has been detected with potential security risks."
	case common.AlertMalwareDetected:
		return "Malicious software has been detected in a file or URL scan."
	case common.AlertDarkWebBreach:
		return "Credentials or data have been found on dark web platforms."
	default:
		return "A security event has been detected that requires your attention."
	}
}

func Recommendations(t common.AlertType) []string {
	switch t {
	case common.AlertPasswordBreach:
		return []string{
			"Change the compromised password immediately",
			"Use a unique password for each account",
			"Enable two-factor authentication",
			"Consider using a password manager",
			"Monitor your accounts for suspicious activity",
		}
	case common.AlertSuspiciousIP:
		return []string{
			"Review the IP address and associated activities",
			"Check if the IP is from an expected location",
			"Consider blocking the IP if necessary",
			"Monitor for additional suspicious activity",
			"Update security policies if needed",
		}
	case common.AlertMalwareDetected:
		return []string{
			"Do not open or execute the malicious file",
			"Scan your system with antivirus software",
			"Update your security software",
			"Check for other potentially infected files",
			"Consider restoring from a clean backup",
		}
	case common.AlertDarkWebBreach:
		return []string{
			"Change passwords for affected accounts",
			"Enable two-factor authentication",
			"Monitor financial accounts for fraud",
			"Consider credit monitoring services",
			"Report the breach to relevant authorities",
		}
	default:
		return []string{
			"Review the security event details",
			"Take appropriate action based on the alert type",
			"Update security measures if necessary",
			"Monitor for similar events in the future",
		}
	}
}

// Fields extracts the labelled values shown for an alert type. Missing
// payload keys render as empty values.
func Fields(t common.AlertType, p map[string]any) []Field {
	switch t {
	case common.AlertPasswordBreach:
		return []Field{
			{Title: "Password Hash Prefix", Value: text(p[KeyDigestPrefix]), Short: true},
			{Title: "Breach Count", Value: text(p[KeyBreachCount]), Short: true},
			{Title: "Sources", Value: text(p[KeySources])},
			{Title: "Strength", Value: text(p[KeyStrength]), Short: true},
		}
	case common.AlertSuspiciousIP:
		fields := []Field{
			{Title: "IP Address", Value: text(p[KeyIP]), Short: true},
			{Title: "Risk Score", Value: text(p[KeyRiskScore]), Short: true},
			{Title: "Threats", Value: text(p[KeyThreats])},
		}
		if loc := location(p[KeyLocation]); loc != "" {
			fields = append(fields, Field{Title: "Location", Value: loc, Short: true})
		}
		return fields
	case common.AlertMalwareDetected:
		return []Field{
			{Title: "File", Value: text(p[KeyFilePath])},
			{Title: "Detection Ratio", Value: text(p[KeyDetectionRatio]) + "%", Short: true},
			{Title: "Total Scanners", Value: text(p[KeyTotalScanners]), Short: true},
		}
	case common.AlertDarkWebBreach:
		return []Field{
			{Title: "Query", Value: text(p[KeyQuery]), Short: true},
			{Title: "Total Breaches", Value: text(p[KeyTotalBreaches]), Short: true},
			{Title: "Sources", Value: text(p[KeySources])},
		}
	default:
		return nil
	}
}

func text(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, x := range v {
			parts = append(parts, text(x))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func location(v any) string {
	var city, country string
	switch l := v.(type) {
	case *provider.Location:
		if l == nil {
			return ""
		}
		city, country = l.City, l.Country
	case provider.Location:
		city, country = l.City, l.Country
	case map[string]any:
		city, country = text(l["city"]), text(l["country"])
	default:
		return ""
	}
	switch {
	case city != "" && country != "":
		return city + ", " + country
	default:
		return city + country
	}
}
