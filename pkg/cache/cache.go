package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const keyPrefix = "testpulse"

// Store is a key-value store with per-entry expiry. Get reports false on a
// miss; an error means the store itself failed.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Key joins parts into a namespaced cache key.
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}

// GetOrCompute returns the cached value for key, or calls compute and stores
// its result for ttl. Store failures never fail the call: a read error is
// treated as a miss and a write error is logged. Errors from compute are
// returned unchanged and nothing is stored.
//
// Concurrent callers with the same cold key each run compute; there is no
// in-flight deduplication.
func GetOrCompute[T any](ctx context.Context, store Store, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	log := logrus.WithField("key", key)

	if store != nil {
		raw, ok, err := store.Get(ctx, key)
		switch {
		case err != nil:
			log.WithError(err).Debug("Cache read failed")
		case ok:
			var cached T
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
			log.Debug("Discarding undecodable cache entry")
		}
	}

	value, err := compute()
	if err != nil {
		return value, err
	}

	if store != nil {
		payload, err := json.Marshal(value)
		if err != nil {
			log.WithError(err).Warn("Cache encode failed")
			return value, nil
		}
		if err := store.Set(ctx, key, string(payload), ttl); err != nil {
			log.WithError(err).Warn("Cache write failed")
		}
	}
	return value, nil
}

// NopStore never holds anything.
type NopStore struct{}

func (NopStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (NopStore) Set(context.Context, string, string, time.Duration) error { return nil }
