// Package cache stores synthesized audio in redis, encrypted at rest with a
// fernet key. The cache is best-effort: every failure path degrades to a
// miss or a dropped write, never to a failed request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/redis/go-redis/v9"

	"github.com/avickers/ttsgate/internal/metrics"
)

const keyPrefix = "tts:"

// Fingerprint derives the deterministic cache key for one request. The
// canonical form concatenates the semantically relevant fields with " | ",
// a delimiter the constrained mode and voice names never contain, then
// hashes it so raw user text never appears in a redis key.
func Fingerprint(text, voice, mode string, rate float64, format string) string {
	canonical := text + " | " + voice + " | " + mode + " | " + strconv.FormatFloat(rate, 'f', -1, 64)
	if format != "" {
		canonical += " | " + format
	}
	sum := sha256.Sum256([]byte(canonical))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Cache is safe for unlimited concurrent use. A nil *Cache is valid and
// behaves as an always-miss cache, so callers need no "is caching on" branch.
type Cache struct {
	rdb *redis.Client
	key *fernet.Key
	ttl time.Duration
}

// New wraps an existing redis client. fernetKey is the 32-byte url-safe
// base64 key the deployment provisions as CACHE_KEY.
func New(rdb *redis.Client, fernetKey string, ttl time.Duration) (*Cache, error) {
	key, err := fernet.DecodeKey(fernetKey)
	if err != nil {
		return nil, fmt.Errorf("decode cache key: %w", err)
	}
	return &Cache{rdb: rdb, key: key, ttl: ttl}, nil
}

// Lookup fetches and decrypts the entry for key. Redis errors and
// undecryptable entries (corrupted, or written under a rotated key) are
// logged and reported as misses.
func (c *Cache) Lookup(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	token, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		metrics.CacheEvents.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		slog.Warn("cache lookup failed, treating as miss", "error", err)
		metrics.CacheEvents.WithLabelValues("lookup_error").Inc()
		return nil, false
	}

	audio := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{c.key})
	if audio == nil {
		slog.Warn("cache entry failed decryption, treating as miss", "key", key)
		metrics.CacheEvents.WithLabelValues("decrypt_error").Inc()
		return nil, false
	}

	metrics.CacheEvents.WithLabelValues("hit").Inc()
	return audio, true
}

// Store encrypts and writes audio under key. Errors are logged and
// swallowed: a write failure must not turn a successful synthesis into a
// failed request.
func (c *Cache) Store(ctx context.Context, key string, audio []byte) {
	if c == nil {
		return
	}

	token, err := fernet.EncryptAndSign(audio, c.key)
	if err != nil {
		slog.Error("cache encrypt failed, entry dropped", "error", err)
		metrics.CacheEvents.WithLabelValues("store_error").Inc()
		return
	}

	if err := c.rdb.Set(ctx, key, token, c.ttl).Err(); err != nil {
		slog.Error("cache store failed, entry dropped", "key", key, "error", err)
		metrics.CacheEvents.WithLabelValues("store_error").Inc()
		return
	}

	metrics.CacheEvents.WithLabelValues("store").Inc()
}
