// Package cache memoizes evaluated searches in Redis. Entries are keyed by
// the index fingerprint, so rebuilding the index naturally retires them.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/codec"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/resilience"
)

const keyPrefix = "search:"

// QueryCache implements executor.ResultCache on top of Redis. Redis
// failures degrade to computing the result directly.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig, breaker *resilience.CircuitBreaker) *QueryCache {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{})
	}
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		breaker: breaker,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) get(ctx context.Context, key string) (*executor.Result, bool) {
	var data []byte
	err := c.breaker.Execute(func() error {
		b, err := c.client.GetBytes(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		data = b
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	if data == nil {
		c.misses.Add(1)
		return nil, false
	}
	var result executor.Result
	if err := codec.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache decode failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return &result, true
}

func (c *QueryCache) set(ctx context.Context, key string, result *executor.Result) {
	data, err := codec.Marshal(result)
	if err != nil {
		c.logger.Error("cache encode failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, c.cfg.CacheTTL)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for req against the index with the
// given fingerprint, or runs compute once per key across concurrent callers
// and stores its result. Errors from compute are not cached.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	fingerprint string,
	req executor.Request,
	compute func() (*executor.Result, error),
) (*executor.Result, bool, error) {
	key := BuildKey(fingerprint, req)
	if result, ok := c.get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.Result), false, nil
}

// Invalidate drops every cached search.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey derives the cache key for req. Token order, token case, and
// duplicate tokens do not change the key; feedback and judgments do.
func BuildKey(fingerprint string, req executor.Request) string {
	var b strings.Builder
	b.WriteString(fingerprint)
	b.WriteString("|q=")
	b.WriteString(strings.Join(normalizeTokens(req.Tokens), ","))
	if fb := req.Feedback; fb != nil {
		b.WriteString("|rel=")
		b.WriteString(strings.Join(sortedCopy(fb.Relevant), ","))
		b.WriteString("|irr=")
		b.WriteString(strings.Join(sortedCopy(fb.Irrelevant), ","))
	} else {
		b.WriteString("|nofb")
	}
	b.WriteString("|set=")
	b.WriteString(req.JudgmentSet)
	b.WriteString("|j=")
	b.WriteString(strings.Join(req.Judgments.IDs(), ","))

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func normalizeTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		term := index.Normalize(tok)
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
