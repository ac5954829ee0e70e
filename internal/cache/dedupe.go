package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// dedupeKeyPrefix is the Redis key prefix for duplicate-click suppression.
const dedupeKeyPrefix = "dedupe:click:"

// ClaimClick marks a (visitor, link) pair as seen for the given window
// and reports whether this request was the first. Later requests inside
// the window share one persisted click event; every request still gets
// a redirect.
func (c *Cache) ClaimClick(ctx context.Context, ip, linkPath, userAgent string, window time.Duration) (bool, error) {
	key := dedupeKeyPrefix + dedupeHash(ip, linkPath, userAgent)

	first, err := c.client.SetNX(ctx, key, "", window).Result()
	if err != nil {
		// Fail open - a duplicate row is cheaper than a lost click
		return true, fmt.Errorf("failed to claim click: %w", err)
	}

	return first, nil
}

// dedupeHash derives a fixed-size key from the request identity.
func dedupeHash(ip, linkPath, userAgent string) string {
	h := sha256.Sum256([]byte(ip + "|" + linkPath + "|" + userAgent))
	return hex.EncodeToString(h[:16])
}
