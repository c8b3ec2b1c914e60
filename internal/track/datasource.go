// Package track decides when opinions are re-evaluated and runs the
// type-specific verifiers against external data sources.
package track

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/worker"
)

// Domain scopes an external data source to the kind of data it serves.
type Domain string

const (
	DomainFinancial Domain = "financial" // Prices, returns, economic series
	DomainFactual   Domain = "factual"   // Reference sources for historical claims
	DomainSentiment Domain = "sentiment" // Public sentiment observations
)

// Value is one observation returned by an external data source. Fields
// are set according to the domain queried.
type Value struct {
	Numeric   *float64        `json:"numeric,omitempty"`
	Text      string          `json:"text,omitempty"`
	Sentiment model.Sentiment `json:"sentiment,omitempty"`
	Support   *float64        `json:"support,omitempty"` // Factual: evidence support in [0,1]
}

// Source answers point-in-time queries for one domain. Implementations
// live outside this core; they fail with ErrDataSourceUnavailable when
// the backing system cannot be reached.
type Source interface {
	Query(ctx context.Context, reference string, asOf time.Time) (Value, error)
}

// Registry routes queries to the registered source per domain, with a
// TTL cache and per-domain rate limiting in front, and bounded retries
// with exponential backoff on transient failures.
type Registry struct {
	sources map[Domain]Source
	cache   *gocache.Cache
	limiter *worker.Limiter
	retries int

	sleep func(time.Duration)
}

// NewRegistry creates an empty registry configured from cfg.
func NewRegistry(cfg model.TrackConfig) *Registry {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	perSec := cfg.SourceRatePerSec
	if perSec <= 0 {
		perSec = 5
	}
	burst := cfg.SourceBurst
	if burst <= 0 {
		burst = 10
	}
	limiter := worker.NewLimiter(perSec, burst)
	for domain, rate := range cfg.SourceRates {
		limiter.SetRate(domain, rate, burst)
	}
	return &Registry{
		sources: make(map[Domain]Source),
		cache:   gocache.New(ttl, 2*ttl),
		limiter: limiter,
		retries: retries,
		sleep:   time.Sleep,
	}
}

// Register installs the source serving a domain.
func (r *Registry) Register(domain Domain, source Source) {
	r.sources[domain] = source
}

// Query resolves one observation, serving repeats from cache. Queries
// within the same hour share a cache entry.
func (r *Registry) Query(ctx context.Context, domain Domain, reference string, asOf time.Time) (Value, error) {
	source, ok := r.sources[domain]
	if !ok {
		return Value{}, fmt.Errorf("no %s source registered: %w", domain, model.ErrDataSourceUnavailable)
	}

	key := fmt.Sprintf("%s|%s|%d", domain, reference, asOf.Truncate(time.Hour).Unix())
	if cached, found := r.cache.Get(key); found {
		return cached.(Value), nil
	}

	var lastErr error
	for attempt := 0; attempt < r.retries; attempt++ {
		if attempt > 0 {
			r.sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
		}
		if err := r.limiter.Wait(ctx, string(domain)); err != nil {
			return Value{}, err
		}
		value, err := source.Query(ctx, reference, asOf)
		if err == nil {
			r.cache.SetDefault(key, value)
			return value, nil
		}
		lastErr = err
	}
	return Value{}, fmt.Errorf("query %s %q: %w", domain, reference, lastErr)
}
