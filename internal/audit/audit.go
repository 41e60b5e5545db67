// Package audit keeps a history of completed checks for trend reporting.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"breachwatch/internal/common"
)

// Record is one completed check. QueryKey is the same non-secret key used for
// caching, so a password check is recorded by digest only.
type Record struct {
	ID        string           `json:"id"`
	Kind      common.CheckKind `json:"kind"`
	QueryKey  string           `json:"query_key"`
	Summary   map[string]any   `json:"summary"`
	Positive  bool             `json:"positive"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewRecord fills in an ID and timestamp.
func NewRecord(kind common.CheckKind, key string, positive bool, summary map[string]any) Record {
	return Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		QueryKey:  key,
		Summary:   summary,
		Positive:  positive,
		CreatedAt: time.Now().UTC(),
	}
}

type Recorder interface {
	Record(ctx context.Context, r Record) error
}

// Store is a Recorder that can also be queried.
type Store interface {
	Recorder
	Recent(ctx context.Context, kind common.CheckKind, limit int) ([]Record, error)
}

// Nop discards every record.
type Nop struct{}

func (Nop) Record(context.Context, Record) error { return nil }
