package cache

import (
	"context"
	"time"
)

// RevokeToken records a token id as revoked until its natural expiry.
// Without Redis this is a no-op and tokens simply live until they expire.
func RevokeToken(ctx context.Context, jti string, until time.Time) error {
	c := GetClient()
	if c == nil || jti == "" {
		return nil
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return c.Set(ctx, RevokedTokenKey(jti), "1", ttl).Err()
}

// IsTokenRevoked reports whether jti was revoked. Lookup errors are treated
// as not revoked so a Redis outage does not log everyone out.
func IsTokenRevoked(ctx context.Context, jti string) bool {
	c := GetClient()
	if c == nil || jti == "" {
		return false
	}
	n, err := c.Exists(ctx, RevokedTokenKey(jti)).Result()
	return err == nil && n > 0
}
