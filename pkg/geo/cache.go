package geo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	goredis "github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
)

// Cache stores lookup answers by key. Misses and backend failures look the
// same to callers: the lookup simply goes upstream.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// MemoryCache is a bounded least-recently-used cache whose entries expire
// after a fixed time to live.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 256
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.lru.Get(key)
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) {
	c.lru.Add(key, value)
}

func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// RedisCache shares lookup answers between processes through Redis.
type RedisCache struct {
	rdb    *goredis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to addr and pings it once.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: "buraco:geo:"}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) {
	_ = c.rdb.Set(ctx, c.prefix+key, value, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// Logger receives cache hit and miss events.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}

type addressLookup interface {
	LookupAddress(ctx context.Context, cep string) (geo.Address, error)
}

type geocoder interface {
	Geocode(ctx context.Context, address, apiKey string) (geo.Coordinates, error)
}

// CachedAddressLookup memoises successful ZIP lookups by normalised CEP.
type CachedAddressLookup struct {
	inner addressLookup
	cache Cache
	log   Logger
}

func NewCachedAddressLookup(inner addressLookup, cache Cache, log Logger) *CachedAddressLookup {
	if log == nil {
		log = nopLogger{}
	}
	return &CachedAddressLookup{inner: inner, cache: cache, log: log}
}

func (c *CachedAddressLookup) LookupAddress(ctx context.Context, code string) (geo.Address, error) {
	digits, err := geo.NormalizeCEP(code)
	if err != nil {
		return geo.Address{}, err
	}
	key := "cep:" + digits
	if raw, ok := c.cache.Get(ctx, key); ok {
		var addr geo.Address
		if json.Unmarshal(raw, &addr) == nil {
			c.log.Debug("cep cache hit", "cep", digits)
			return addr, nil
		}
	}
	c.log.Debug("cep cache miss", "cep", digits)

	addr, err := c.inner.LookupAddress(ctx, digits)
	if err != nil {
		return geo.Address{}, err
	}
	if raw, err := json.Marshal(addr); err == nil {
		c.cache.Set(ctx, key, raw)
	}
	return addr, nil
}

// CachedGeocoder memoises successful geocoding answers by address line.
// The API key is not part of the cache key.
type CachedGeocoder struct {
	inner geocoder
	cache Cache
	log   Logger
}

func NewCachedGeocoder(inner geocoder, cache Cache, log Logger) *CachedGeocoder {
	if log == nil {
		log = nopLogger{}
	}
	return &CachedGeocoder{inner: inner, cache: cache, log: log}
}

func geocodeKey(address string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.Join(strings.Fields(address), " "))))
	return "geocode:" + hex.EncodeToString(sum[:16])
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address, apiKey string) (geo.Coordinates, error) {
	key := geocodeKey(address)
	if raw, ok := c.cache.Get(ctx, key); ok {
		var coords geo.Coordinates
		if json.Unmarshal(raw, &coords) == nil {
			c.log.Debug("geocode cache hit")
			return coords, nil
		}
	}
	c.log.Debug("geocode cache miss")

	coords, err := c.inner.Geocode(ctx, address, apiKey)
	if err != nil {
		return geo.Coordinates{}, err
	}
	if raw, err := json.Marshal(coords); err == nil {
		c.cache.Set(ctx, key, raw)
	}
	return coords, nil
}
