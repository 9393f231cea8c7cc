// Package pricecache caches market data quotes in Redis in front of any
// bondbt.MarketData.
package pricecache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/bondbt"
	"github.com/etnz/bondbt/date"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// store is the subset of *redis.Client used by the cache.
type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cache is a read-through bondbt.MarketData. Prices and trading days are read
// from Redis first, misses are fetched from the wrapped market and stored with
// a TTL. Cache failures are logged and never fail a lookup.
type Cache struct {
	next  bondbt.MarketData
	rdb   store
	ttl   time.Duration
	close func() error
	log   logrus.FieldLogger
}

// New connects to Redis, pings it, and wraps next.
func New(ctx context.Context, cfg ClientConfig, next bondbt.MarketData) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	c := wrap(rdb, cfg.TTL, next)
	c.close = rdb.Close
	return c, nil
}

func wrap(rdb store, ttl time.Duration, next bondbt.MarketData) *Cache {
	return &Cache{next: next, rdb: rdb, ttl: ttl, log: logrus.StandardLogger()}
}

// WithLogger sets the logger.
func (c *Cache) WithLogger(l logrus.FieldLogger) *Cache {
	c.log = l
	return c
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

func priceKey(field bondbt.PriceField, symbol bondbt.Symbol, on date.Date) string {
	return "price:" + field.String() + ":" + string(symbol) + ":" + on.String()
}

func daysKey(from, to date.Date) string {
	return "days:" + from.String() + ":" + to.String()
}

// get returns the cached value of key, and false on a miss or a failure.
func (c *Cache) get(ctx context.Context, key string) (string, bool) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("redis: get")
		return "", false
	}
	return v, true
}

func (c *Cache) set(ctx context.Context, key, value string) {
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("redis: set")
	}
}

// Price implements bondbt.MarketData. Not found prices are not cached.
func (c *Cache) Price(ctx context.Context, on date.Date, symbol bondbt.Symbol, field bondbt.PriceField) (decimal.Decimal, error) {
	key := priceKey(field, symbol, on)
	if v, ok := c.get(ctx, key); ok {
		p, err := decimal.NewFromString(v)
		if err == nil {
			return p, nil
		}
		c.log.WithError(err).WithField("key", key).Warn("redis: parse price")
	}
	p, err := c.next.Price(ctx, on, symbol, field)
	if err != nil {
		return decimal.Decimal{}, err
	}
	c.set(ctx, key, p.String())
	return p, nil
}

// PriceMatrix implements bondbt.MarketData.
func (c *Cache) PriceMatrix(ctx context.Context, symbols []bondbt.Symbol, from, to date.Date) (bondbt.PriceMatrix, error) {
	return c.next.PriceMatrix(ctx, symbols, from, to)
}

// PaymentsDue implements bondbt.MarketData.
func (c *Cache) PaymentsDue(ctx context.Context, symbols []bondbt.Symbol, from, to date.Date) ([]bondbt.PaymentEvent, error) {
	return c.next.PaymentsDue(ctx, symbols, from, to)
}

// TradingDays implements bondbt.MarketData. Days are stored as a comma
// separated list.
func (c *Cache) TradingDays(ctx context.Context, from, to date.Date) ([]date.Date, error) {
	key := daysKey(from, to)
	if v, ok := c.get(ctx, key); ok {
		days, err := parseDays(v)
		if err == nil {
			return days, nil
		}
		c.log.WithError(err).WithField("key", key).Warn("redis: parse days")
	}
	days, err := c.next.TradingDays(ctx, from, to)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, formatDays(days))
	return days, nil
}

func formatDays(days []date.Date) string {
	s := make([]string, len(days))
	for i, d := range days {
		s[i] = d.String()
	}
	return strings.Join(s, ",")
}

func parseDays(v string) ([]date.Date, error) {
	if v == "" {
		return nil, nil
	}
	fields := strings.Split(v, ",")
	days := make([]date.Date, len(fields))
	for i, f := range fields {
		d, err := date.Parse(f)
		if err != nil {
			return nil, err
		}
		days[i] = d
	}
	return days, nil
}
