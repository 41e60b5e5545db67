// Package redact masks personal data before it leaves the process in logs or
// alert messages.
package redact

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// Email keeps the first two characters of the local part and the domain.
func Email(addr string) string {
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || domain == "" {
		return "[email]"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}

// Target masks a dark-web search target. Domains are not personal data and
// pass through.
func Target(target, typ string) string {
	if typ == "domain" {
		return target
	}
	return Email(target)
}

// Scrub masks every email address found in free text such as error messages.
func Scrub(s string) string {
	return emailPattern.ReplaceAllStringFunc(s, Email)
}
