// Package cache holds the verdict cache shared by all checkers.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cache stores encoded verdicts with a per-entry TTL. Writing a key
// overwrites its value and expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

const (
	PasswordPrefix = "password_breach:"
	IPPrefix       = "ip_reputation:"
	DarkWebPrefix  = "dark_web:"
)

// PasswordKey keys a password verdict by the hex SHA-1 digest of the secret.
func PasswordKey(digestHex string) string {
	return PasswordPrefix + strings.ToLower(digestHex)
}

// IPKey keys a reputation verdict by the canonical IP string.
func IPKey(ip string) string {
	return IPPrefix + ip
}

// DarkWebKey keys a dark-web verdict by sha256(target+type).
func DarkWebKey(target, typ string) string {
	sum := sha256.Sum256([]byte(target + typ))
	return DarkWebPrefix + hex.EncodeToString(sum[:])
}

// Class returns the key prefix without the trailing colon, used as a metric label.
func Class(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}

// GetJSON loads and decodes a cached value into T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool, error) {
	var out T
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("cache: decode %s: %w", Class(key), err)
	}
	return out, true, nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", Class(key), err)
	}
	return c.Put(ctx, key, raw, ttl)
}

// PutSettled stores a verdict computed under ctx. When ctx is already done
// the verdict may be missing answers the caller stopped waiting for, so it is
// not stored and false is returned. The write itself is not cut short by a
// cancellation that arrives while it runs.
func PutSettled(ctx context.Context, c Cache, key string, v any, ttl time.Duration) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}
	if err := PutJSON(context.WithoutCancel(ctx), c, key, v, ttl); err != nil {
		return false, err
	}
	return true, nil
}
