package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:access:"

// Blacklist records revoked bearer tokens in Redis until they would have
// expired anyway. A nil *Blacklist, or one without a client, accepts every
// token and stores nothing.
type Blacklist struct {
	client *redis.Client
}

// NewBlacklist returns a blacklist backed by client. client may be nil.
func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

func (b *Blacklist) enabled() bool { return b != nil && b.client != nil }

// Revoke blacklists token for ttl. Non-positive ttls are ignored since the
// token has already expired.
func (b *Blacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if !b.enabled() || ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistKey(token), "1", ttl).Err()
}

// IsRevoked reports whether token has been revoked.
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	if !b.enabled() {
		return false, nil
	}
	n, err := b.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// blacklistKey hashes the token so raw credentials never sit in Redis.
func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistPrefix + hex.EncodeToString(sum[:])
}
