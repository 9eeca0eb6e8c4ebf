package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "bizdesk:dashboard"
	bumpChannel   = "bizdesk:dashboard:bump"
	bumpSeparator = "|"
)

// ErrCacheMiss reports that no dashboard is cached under the current version.
var ErrCacheMiss = errors.New("reporting: cache miss")

// Cache stores dashboards in Redis under per-owner versioned keys. A nil
// Cache, or one without a client, never hits.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(owner string) string {
	return strings.Join([]string{keyPrefix, "version", owner}, ":")
}

// Version returns the owner's cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context, owner string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey(owner)).Int64()
	if errors.Is(err, redis.Nil) {
		// SetNX keeps a concurrent Bump from being overwritten.
		if err := c.client.SetNX(ctx, versionKey(owner), 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, versionKey(owner)).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the dashboard key of the owner's current version.
func (c *Cache) BuildKey(ctx context.Context, owner string) (string, error) {
	ver, err := c.Version(ctx, owner)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{keyPrefix, owner, strconv.FormatInt(ver, 10)}, ":"), nil
}

// Get decodes the cached dashboard under key.
func (c *Cache) Get(ctx context.Context, key string) (Dashboard, error) {
	if c == nil || c.client == nil {
		return Dashboard{}, ErrCacheMiss
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Dashboard{}, ErrCacheMiss
	}
	if err != nil {
		return Dashboard{}, err
	}
	var d Dashboard
	if err := json.Unmarshal(payload, &d); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Set stores the dashboard under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, d Dashboard) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates the owner's dashboards by incrementing the version and
// publishing the new value.
func (c *Cache) Bump(ctx context.Context, owner string) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, versionKey(owner)).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, owner+bumpSeparator+strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation applies bumps published by other processes sharing
// the channel but not the Redis keyspace. It returns once subscribed.
func (c *Cache) ListenForInvalidation(ctx context.Context, onBump func(owner string)) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				owner, rawVer, found := strings.Cut(msg.Payload, bumpSeparator)
				if !found || owner == "" {
					continue
				}
				if ver, err := strconv.ParseInt(rawVer, 10, 64); err == nil {
					if current, err := c.client.Get(ctx, versionKey(owner)).Int64(); err != nil || current < ver {
						_ = c.client.Set(ctx, versionKey(owner), ver, 0).Err()
					}
				}
				if onBump != nil {
					onBump(owner)
				}
			}
		}
	}()
	return nil
}
