// Package provider defines the normalized output of every external source
// and the concurrent fan-out that collects it.
package provider

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable marks a provider that produced no usable answer. Callers
	// treat it exactly like found=false.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrMissingCredential is returned by adapters constructed without an API key.
	ErrMissingCredential = errors.New("missing credential")

	// ErrBreakerOpen is returned without I/O while a provider's breaker is open.
	ErrBreakerOpen = errors.New("circuit breaker open")
)

// Finding is one provider's normalized answer for one query.
type Finding struct {
	Provider   string         `json:"provider"`
	Found      bool           `json:"found"`
	Count      int            `json:"count"`
	RawScore   *float64       `json:"raw_score,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
	Records    []BreachRecord `json:"records,omitempty"`
	// Suspicious is set by reputation providers when their own threshold fired.
	Suspicious bool `json:"suspicious,omitempty"`
}

// BreachRecord is a single leak entry. Leaked secrets are never carried,
// only whether one was present.
type BreachRecord struct {
	Source      string     `json:"source"`
	Email       string     `json:"email,omitempty"`
	Hash        string     `json:"hash,omitempty"`
	Database    string     `json:"database,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	HasPassword bool       `json:"has_password"`
}

// NotFound is the finding used for an unavailable provider.
func NotFound(name string) Finding {
	return Finding{Provider: name}
}

// Score returns a pointer to s for RawScore.
func Score(s float64) *float64 {
	return &s
}

// Result pairs a finding with the error that replaced it, if any. When Err is
// set, Finding is NotFound(name).
type Result struct {
	Finding Finding
	Err     error
}

// UnavailableError wraps the underlying cause of an unavailable provider.
type UnavailableError struct {
	Provider string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is makes every UnavailableError match ErrUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func Unavailable(name string, err error) error {
	if err == nil {
		err = ErrUnavailable
	}
	return &UnavailableError{Provider: name, Err: err}
}
