// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrNotFound is the sentinel a ForgeClient must return when it has
// authoritatively determined that an owner token does not exist. Any
// other error is treated as transient: the previous cached record (if
// any) is retained and Stale is set.
var ErrNotFound = errors.New("validate: owner not found")

// errNotForgeIdentity marks a token that is syntactically an email
// address rather than a "@user"/"@org/team" handle: resolve short-circuits
// to this before ever calling the ForgeClient, since email owners have no
// forge identity to validate.
var errNotForgeIdentity = errors.New("validate: owner token is not a forge identity")

// ForgeClient resolves owner tokens against an external forge (GitHub,
// GitLab, etc). Implementations are supplied by the embedding host;
// forge API transport is explicitly out of this package's scope.
type ForgeClient interface {
	// ResolveUser resolves a "@user" token's canonical name (without
	// the leading "@") to its display identity.
	ResolveUser(ctx context.Context, name string) (Identity, error)
	// ResolveTeam resolves a "@org/team" token's canonical name
	// (without the leading "@") to its display identity.
	ResolveTeam(ctx context.Context, name string) (Identity, error)
}

var validatorTracer = otel.Tracer("codeowners-lsp.validate")

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codeowners_lsp_validate_refresh_total",
		Help: "Total owner validation refresh attempts by outcome",
	}, []string{"outcome"})

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codeowners_lsp_validate_refresh_duration_seconds",
		Help:    "Time spent refreshing a single owner token against the forge",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	cacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codeowners_lsp_validate_cache_size",
		Help: "Number of owner tokens currently held in the validation cache",
	})
)

// DefaultTTL is how long a terminal (Valid/Invalid) record is trusted
// before it is eligible for a background refresh.
const DefaultTTL = 24 * time.Hour

// DefaultConcurrency bounds how many forge requests a single refresh
// batch issues at once.
const DefaultConcurrency = 5

// DefaultForgeRateLimit bounds the sustained rate of forge requests
// across all in-flight refreshes, independent of DefaultConcurrency:
// the semaphore caps how many requests run at once, this caps how many
// start per second, so a burst of owner tokens can't trip a forge's own
// abuse detection even at a small concurrency bound.
const DefaultForgeRateLimit = 10

// Validator caches owner-token validation state, refreshing stale or
// unknown entries in the background against an injected ForgeClient.
//
// # Thread Safety
//
// Validator is safe for concurrent use. Lookup takes a read lock;
// Refresh takes a write lock only while copying results in, never while
// calling out to the forge.
type Validator struct {
	client      ForgeClient
	root        string
	ttl         time.Duration
	concurrency int64
	forgeRateHz float64
	limiter     *rate.Limiter
	logger      *slog.Logger

	mu      sync.RWMutex
	records map[string]Record

	inflight sync.Map // canonical key -> struct{}, dedupes concurrent refreshes
}

// Option configures a Validator.
type Option func(*Validator)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(v *Validator) { v.ttl = ttl }
}

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int64) Option {
	return func(v *Validator) { v.concurrency = n }
}

// WithForgeRateLimit overrides DefaultForgeRateLimit, the sustained
// requests-per-second cap shared across a refresh batch's forge calls.
func WithForgeRateLimit(requestsPerSecond float64) Option {
	return func(v *Validator) { v.forgeRateHz = requestsPerSecond }
}

// WithLogger sets the logger used for refresh diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// New creates a Validator rooted at root (used to locate the persistent
// cache file), loading any previously persisted records synchronously.
func New(root string, client ForgeClient, opts ...Option) *Validator {
	v := &Validator{
		client:      client,
		root:        root,
		ttl:         DefaultTTL,
		concurrency: DefaultConcurrency,
		forgeRateHz: DefaultForgeRateLimit,
		logger:      slog.Default(),
		records:     LoadCacheFile(root),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.limiter = rate.NewLimiter(rate.Limit(v.forgeRateHz), int(v.concurrency))
	cacheSize.Set(float64(len(v.records)))
	return v
}

// CanonicalKey normalises an owner token ("@user", "@org/team", or a bare
// email address) into the key used for cache lookups and the persistent
// cache file: a leading "@" is dropped and the namespace is lowercased,
// since forges treat user and organisation names case-insensitively. An
// email token has no "@"-prefix to strip and is lowercased as-is; resolve
// uses the original, un-stripped token to tell the two apart.
func CanonicalKey(token string) string {
	return strings.ToLower(strings.TrimPrefix(token, "@"))
}

// Lookup returns the current cached record for token without blocking on
// a forge call. Unknown is returned for a token never seen before.
func (v *Validator) Lookup(token string) Record {
	key := CanonicalKey(token)
	v.mu.RLock()
	defer v.mu.RUnlock()
	rec, ok := v.records[key]
	if !ok {
		return Record{State: Unknown}
	}
	if time.Since(rec.FetchedAt) > v.ttl && rec.IsTerminal() {
		rec.Stale = true
	}
	return rec
}

// Refresh resolves every token in tokens that has no record yet or whose
// record is older than the Validator's TTL, bounding concurrent forge
// calls to the Validator's configured concurrency and deduplicating
// repeated tokens within the batch as well as tokens already being
// refreshed by another caller. It persists the updated cache on success.
func (v *Validator) Refresh(ctx context.Context, tokens []string) error {
	ctx, span := validatorTracer.Start(ctx, "validate.Refresh",
		trace.WithAttributes(attribute.Int("codeowners_lsp.tokens_requested", len(tokens))))
	defer span.End()

	pending := v.pendingTokens(tokens)
	span.SetAttributes(attribute.Int("codeowners_lsp.tokens_pending", len(pending)))
	if len(pending) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(v.concurrency)
	var wg sync.WaitGroup
	seen := make(map[string]bool, len(pending))
	for _, token := range pending {
		key := CanonicalKey(token)
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, loaded := v.inflight.LoadOrStore(key, struct{}{}); loaded {
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			v.inflight.Delete(key)
			span.RecordError(err)
			span.SetStatus(codes.Error, "acquire semaphore")
			return err
		}

		wg.Add(1)
		go func(token, key string) {
			defer wg.Done()
			defer sem.Release(1)
			defer v.inflight.Delete(key)
			v.refreshOne(ctx, token, key)
		}(token, key)
	}
	wg.Wait()

	if err := v.persist(); err != nil {
		v.logger.Warn("persist validation cache failed", "error", err)
		return err
	}
	return nil
}

func (v *Validator) pendingTokens(tokens []string) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []string
	for _, token := range tokens {
		key := CanonicalKey(token)
		rec, ok := v.records[key]
		if !ok {
			out = append(out, token)
			continue
		}
		if time.Since(rec.FetchedAt) > v.ttl {
			out = append(out, token)
		}
	}
	return out
}

func (v *Validator) refreshOne(ctx context.Context, token, key string) {
	start := time.Now()
	identity, err := v.resolve(ctx, token)
	refreshDuration.Observe(time.Since(start).Seconds())

	v.mu.Lock()
	defer v.mu.Unlock()

	prev, hadPrev := v.records[key]

	switch {
	case err == nil:
		refreshTotal.WithLabelValues("valid").Inc()
		v.records[key] = Record{State: Valid, Identity: identity, FetchedAt: time.Now()}
	case errors.Is(err, ErrNotFound):
		refreshTotal.WithLabelValues("invalid").Inc()
		v.records[key] = Record{State: Invalid, Reason: "owner not found", FetchedAt: time.Now()}
	case errors.Is(err, errNotForgeIdentity):
		refreshTotal.WithLabelValues("not_forge_identity").Inc()
		v.records[key] = Record{State: Unknown, Identity: identity, FetchedAt: time.Now()}
	default:
		// Transient failure: retain whatever was previously known and
		// flag it stale, rather than downgrading a Valid/Invalid
		// record to Unknown on a mere timeout or rate limit.
		refreshTotal.WithLabelValues("transient_error").Inc()
		v.logger.Warn("owner refresh failed transiently", "token", token, "error", err)
		if hadPrev {
			prev.Stale = true
			v.records[key] = prev
		} else {
			v.records[key] = Record{State: Unknown, Stale: true, FetchedAt: time.Now()}
		}
	}
	cacheSize.Set(float64(len(v.records)))
}

func (v *Validator) resolve(ctx context.Context, token string) (Identity, error) {
	if !strings.HasPrefix(token, "@") {
		// Email-shaped token (e.g. "jane@example.com"): classification
		// is purely syntactic here, matching the forge collaborator's own
		// "@"-prefix check rather than passing the bare address through
		// as if it were a user login.
		return Identity{Kind: KindEmail}, errNotForgeIdentity
	}

	// The semaphore in Refresh bounds how many forge calls run at once;
	// the limiter bounds how fast new ones start, so a large token batch
	// can't burst past what the forge's own rate limiting will tolerate
	// even at a small concurrency bound.
	if err := v.limiter.Wait(ctx); err != nil {
		return Identity{}, err
	}

	canonical := CanonicalKey(token)
	if strings.Contains(canonical, "/") {
		return v.client.ResolveTeam(ctx, canonical)
	}
	return v.client.ResolveUser(ctx, canonical)
}

func (v *Validator) persist() error {
	v.mu.RLock()
	snapshot := make(map[string]Record, len(v.records))
	for k, r := range v.records {
		snapshot[k] = r
	}
	v.mu.RUnlock()
	return SaveCacheFile(v.root, snapshot)
}
