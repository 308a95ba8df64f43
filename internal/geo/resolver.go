// Package geo turns free-text locations into coordinates: an offline
// gazetteer first, then a budgeted external geocoder.
package geo

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Eldo84/live-health-sub002/internal/metrics"
)

// Tier names the stage that produced a resolution.
type Tier string

const (
	TierGazetteer  Tier = "gazetteer"
	TierCache      Tier = "cache"
	TierExternal   Tier = "external"
	TierUnresolved Tier = "unresolved"
)

// Resolver is safe for concurrent use; per-run state lives in the Budget.
type Resolver struct {
	gaz     *Gazetteer
	ext     Geocoder // nil disables the external tier
	caches  []Cache
	metrics *metrics.Metrics
	log     *zap.Logger
}

type Option func(*Resolver)

func WithGeocoder(g Geocoder) Option        { return func(r *Resolver) { r.ext = g } }
func WithCache(c Cache) Option              { return func(r *Resolver) { r.caches = append(r.caches, c) } }
func WithMetrics(m *metrics.Metrics) Option { return func(r *Resolver) { r.metrics = m } }
func WithLogger(l *zap.Logger) Option       { return func(r *Resolver) { r.log = l } }

func NewResolver(gaz *Gazetteer, opts ...Option) *Resolver {
	r := &Resolver{gaz: gaz, log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

// ExternalEnabled reports whether a geocoder is configured.
func (r *Resolver) ExternalEnabled() bool { return r.ext != nil }

// ResolveText resolves a single text.
func (r *Resolver) ResolveText(ctx context.Context, text string, budget *Budget) (Place, Tier, bool) {
	return r.Resolve(ctx, []string{text}, budget)
}

// Resolve tries the gazetteer against every candidate in priority order,
// then the external tier with the first non-empty candidate. The external
// call happens only when the budget has a slot left; a failed call is not
// charged. Nothing is fabricated: ok is false when both tiers miss.
func (r *Resolver) Resolve(ctx context.Context, candidates []string, budget *Budget) (Place, Tier, bool) {
	if p, ok := r.gaz.Lookup(candidates...); ok {
		r.metrics.Lookup(string(TierGazetteer), "hit")
		return p, TierGazetteer, true
	}
	if r.ext == nil {
		r.metrics.Lookup(string(TierUnresolved), "no_geocoder")
		return Place{}, TierUnresolved, false
	}
	query := firstNonEmpty(candidates)
	if query == "" {
		r.metrics.Lookup(string(TierUnresolved), "empty")
		return Place{}, TierUnresolved, false
	}
	for _, c := range r.caches {
		if p, ok := c.Get(ctx, query); ok {
			r.metrics.Lookup(string(TierCache), "hit")
			return p, TierCache, true
		}
	}
	if !budget.TryReserve() {
		r.metrics.Lookup(string(TierExternal), "budget_exhausted")
		return Place{}, TierUnresolved, false
	}
	p, err := r.ext.Geocode(ctx, query)
	if err != nil {
		budget.Refund()
		r.metrics.Lookup(string(TierExternal), "error")
		r.log.Debug("external geocode failed", zap.String("query", query), zap.Error(err))
		return Place{}, TierUnresolved, false
	}
	budget.Commit()
	r.metrics.Lookup(string(TierExternal), "ok")
	for _, c := range r.caches {
		c.Set(ctx, query, p)
	}
	return p, TierExternal, true
}

func firstNonEmpty(ss []string) string {
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
