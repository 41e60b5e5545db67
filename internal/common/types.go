package common

import (
	"errors"
	"fmt"
)

// AlertType identifies the kind of security event raised by a check.
type AlertType string

const (
	AlertPasswordBreach  AlertType = "password_breach"
	AlertSuspiciousIP    AlertType = "suspicious_ip"
	AlertMalwareDetected AlertType = "malware_detected"
	AlertDarkWebBreach   AlertType = "dark_web_breach"
)

// SeverityLevel denotes how urgent an alert is.
type SeverityLevel string

const (
	SeverityLow      SeverityLevel = "low"
	SeverityMedium   SeverityLevel = "medium"
	SeverityHigh     SeverityLevel = "high"
	SeverityCritical SeverityLevel = "critical"
)

// CheckKind names the three query types served by the core.
type CheckKind string

const (
	CheckPassword CheckKind = "password"
	CheckIP       CheckKind = "ip"
	CheckDarkWeb  CheckKind = "dark_web"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports malformed input rejected before any provider call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets callers use errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
