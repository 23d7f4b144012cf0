// Package registry holds the read-mostly reference data — sports, markets,
// bookmakers — that the rest of the pipeline resolves against: which
// markets a sport offers, which tier a market or book requires, and how to
// map free-text input onto a sport or market key.
package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftline/sentry/internal/cache"
	"github.com/driftline/sentry/pkg/models"
)

const (
	sportsCacheTTL      = 30 * time.Minute
	marketsCacheTTL     = time.Hour
	bookmakersCacheTTL  = time.Hour
)

// SeedSource supplies the registry's initial reference data, standing in for
// the external reference-data loader (teams/players/markets) that spec.md §1
// names as out of scope.
type SeedSource interface {
	Sports() []models.Sport
	Markets() []models.MarketDefinition
	Bookmakers() []models.Bookmaker
}

// Registry is a thread-safe, in-memory snapshot of reference data with a
// typed read-through cache in front of the derived lookups.
type Registry struct {
	mu sync.RWMutex

	sports     map[string]models.Sport
	markets    map[string]models.MarketDefinition
	bookmakers map[string]models.Bookmaker

	cache *cache.Cache
	log   zerolog.Logger
}

// New builds a registry from seed and wires it to c for the derived-lookup
// caches named in spec §6 (mktdata:sports:*, mktdata:markets:*, etc).
func New(seed SeedSource, c *cache.Cache, log zerolog.Logger) *Registry {
	r := &Registry{
		sports:     make(map[string]models.Sport),
		markets:    make(map[string]models.MarketDefinition),
		bookmakers: make(map[string]models.Bookmaker),
		cache:      c,
		log:        log.With().Str("subsystem", "registry").Logger(),
	}
	r.Reload(seed)
	return r
}

// Reload atomically swaps the underlying snapshot and invalidates derived
// caches, per spec.md §9's "refreshes swap snapshots atomically".
func (r *Registry) Reload(seed SeedSource) {
	sports := make(map[string]models.Sport)
	for _, s := range seed.Sports() {
		sports[s.Key] = s
	}
	markets := make(map[string]models.MarketDefinition)
	for _, m := range seed.Markets() {
		markets[m.Key] = m
	}
	bookmakers := make(map[string]models.Bookmaker)
	for _, b := range seed.Bookmakers() {
		bookmakers[b.Key] = b
	}

	r.mu.Lock()
	r.sports = sports
	r.markets = markets
	r.bookmakers = bookmakers
	r.mu.Unlock()

	if r.cache != nil {
		ctx := context.Background()
		r.cache.Delete(ctx, "mktdata:sports:active", "mktdata:sports:all")
		for tier := models.TierStarter; tier <= models.TierSharp; tier++ {
			r.cache.Delete(ctx, "mktdata:bookmakers:accessible:"+tier.String())
		}
		r.cache.Delete(ctx, "mktdata:bookmakers:tiers")
		for sportKey := range sports {
			r.cache.Delete(ctx, "mktdata:markets:sport:"+sportKey)
		}
	}
}

// Sports returns every active sport, cached for 30 minutes.
func (r *Registry) Sports(ctx context.Context) []models.Sport {
	var cached []models.Sport
	if r.cache != nil && r.cache.GetJSON(ctx, "mktdata:sports:active", &cached) {
		return cached
	}

	r.mu.RLock()
	out := make([]models.Sport, 0, len(r.sports))
	for _, s := range r.sports {
		if s.IsActive {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	if r.cache != nil {
		r.cache.SetJSON(ctx, "mktdata:sports:active", out, sportsCacheTTL)
	}
	return out
}

// MarketsForSport returns every market definition in the registry, cached
// for one hour under the sport's key. MarketDefinition carries no sport
// association, so the list is the same for every sportKey.
func (r *Registry) MarketsForSport(ctx context.Context, sportKey string) []models.MarketDefinition {
	key := "mktdata:markets:sport:" + sportKey
	var cached []models.MarketDefinition
	if r.cache != nil && r.cache.GetJSON(ctx, key, &cached) {
		return cached
	}

	r.mu.RLock()
	out := make([]models.MarketDefinition, 0)
	for _, m := range r.markets {
		out = append(out, m)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	if r.cache != nil {
		r.cache.SetJSON(ctx, key, out, marketsCacheTTL)
	}
	return out
}

// MarketByKey looks up a single market definition.
func (r *Registry) MarketByKey(key string) (models.MarketDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[key]
	return m, ok
}

// BookmakerTier returns a bookmaker's tier, defaulting unknown bookmakers to
// Retail per spec.md §4.1.
func (r *Registry) BookmakerTier(key string) models.BookTier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.bookmakers[key]; ok {
		return b.Tier
	}
	return models.BookTierRetail
}

// AccessibleBookmakers returns every bookmaker whose requiredTier is covered
// by tier, cached per tier for one hour.
func (r *Registry) AccessibleBookmakers(ctx context.Context, tier models.SubscriptionTier) []models.Bookmaker {
	key := "mktdata:bookmakers:accessible:" + tier.String()
	var cached []models.Bookmaker
	if r.cache != nil && r.cache.GetJSON(ctx, key, &cached) {
		return cached
	}

	r.mu.RLock()
	out := make([]models.Bookmaker, 0)
	for _, b := range r.bookmakers {
		if b.RequiredTier <= tier {
			out = append(out, b)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	if r.cache != nil {
		r.cache.SetJSON(ctx, key, out, bookmakersCacheTTL)
	}
	return out
}

// CanAccessMarket reports whether tier covers marketKey's requiredTier.
// Monotone in tier: raising tier never revokes access (spec.md §8).
func (r *Registry) CanAccessMarket(tier models.SubscriptionTier, marketKey string) bool {
	m, ok := r.MarketByKey(marketKey)
	if !ok {
		return false
	}
	return tier >= m.RequiredTier
}

// keywordMatch is an internal scoring record used by the two resolve methods.
type keywordMatch struct {
	specificity int
	keywordLen  int
}

// ResolveSportByKeyword ranks sports whose keywords match input (case
// insensitive substring match) and returns the best match.
func (r *Registry) ResolveSportByKeyword(input string) (models.Sport, bool) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return models.Sport{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best models.Sport
	var bestLen int
	found := false

	for _, s := range r.sports {
		for _, kw := range s.Keywords {
			lkw := strings.ToLower(kw)
			if strings.Contains(needle, lkw) || strings.Contains(lkw, needle) {
				if len(lkw) > bestLen {
					best = s
					bestLen = len(lkw)
					found = true
				}
			}
		}
	}
	return best, found
}

// ResolveMarketByKeyword ranks markets whose keywords match input.
// Specificity order (highest first): player-prop > period-specific >
// alternate > longest-keyword-length, matching spec.md §4.1. sportKey is not
// used: markets carry no sport association, so every market is considered.
func (r *Registry) ResolveMarketByKeyword(input string, sportKey string) (models.MarketDefinition, bool) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return models.MarketDefinition{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best models.MarketDefinition
	var bestScore keywordMatch
	found := false

	for _, m := range r.markets {
		for _, kw := range m.Keywords {
			lkw := strings.ToLower(kw)
			if !strings.Contains(needle, lkw) && !strings.Contains(lkw, needle) {
				continue
			}

			score := keywordMatch{keywordLen: len(lkw)}
			if m.IsPlayerProp {
				score.specificity = 3
			} else if m.Period != "" {
				score.specificity = 2
			} else if m.IsAlternate {
				score.specificity = 1
			}

			if !found || score.specificity > bestScore.specificity ||
				(score.specificity == bestScore.specificity && score.keywordLen > bestScore.keywordLen) {
				best = m
				bestScore = score
				found = true
			}
		}
	}
	return best, found
}
