package devgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evcraddock/fieldtrack/internal/gateway"
)

// identityTTL bounds how stale a cached name or role can be.
const identityTTL = 10 * time.Minute

// IdentityCache caches LOGIN and WHOAMI lookups.
type IdentityCache interface {
	Get(ctx context.Context, employeeID string) (*gateway.Identity, bool)
	Set(ctx context.Context, id *gateway.Identity)
	Invalidate(ctx context.Context, employeeID string)
	Close() error
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*gateway.Identity, bool) { return nil, false }
func (nopCache) Set(context.Context, *gateway.Identity)                {}
func (nopCache) Invalidate(context.Context, string)                    {}
func (nopCache) Close() error                                          { return nil }

// NopIdentityCache returns a cache that never holds anything.
func NopIdentityCache() IdentityCache { return nopCache{} }

type redisCache struct {
	client *redis.Client
}

// NewRedisCache connects to host (port 6379 when omitted) and verifies the
// connection.
func NewRedisCache(host, password string) (IdentityCache, error) {
	if !strings.Contains(host, ":") {
		host += ":6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     host,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &redisCache{client: client}, nil
}

func identityKey(employeeID string) string {
	return "ft:identity:" + employeeID
}

// Get misses on any redis error; the store stays the source of truth.
func (r *redisCache) Get(ctx context.Context, employeeID string) (*gateway.Identity, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	val, err := r.client.Get(ctx, identityKey(employeeID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logCacheError("get", err)
		}
		return nil, false
	}

	var id gateway.Identity
	if err := json.Unmarshal([]byte(val), &id); err != nil {
		return nil, false
	}
	return &id, true
}

func (r *redisCache) Set(ctx context.Context, id *gateway.Identity) {
	data, err := json.Marshal(id)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.client.Set(ctx, identityKey(id.EmployeeID), data, identityTTL).Err(); err != nil {
		logCacheError("set", err)
	}
}

func (r *redisCache) Invalidate(ctx context.Context, employeeID string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.client.Del(ctx, identityKey(employeeID)).Err(); err != nil {
		logCacheError("del", err)
	}
}

func (r *redisCache) Close() error {
	return r.client.Close()
}

// SaveEmployee writes an employee and drops any cached identity for it, so a
// role change applies to the next request rather than after identityTTL.
func SaveEmployee(ctx context.Context, store *Store, cache IdentityCache, id, name string, role gateway.Role) error {
	if err := store.PutEmployee(ctx, id, name, role); err != nil {
		return err
	}
	cache.Invalidate(ctx, id)
	return nil
}

func logCacheError(op string, err error) {
	slog.Warn("identity cache", "op", op, "error", err)
}
