package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

var rankingLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_ranking_cache_total",
		Help: "Ranking cache lookups by result",
	},
	[]string{"result"},
)

func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(rankingLookups)
}

// Rankings memoizes the top-ten queries until Invalidate or the TTL.
type Rankings struct {
	db    *gorm.DB
	cache *expirable.LRU[string, any]

	mu sync.Mutex
	// gen counts Invalidate calls; a load that saw an older gen is
	// not stored.
	gen uint64
}

func NewRankings(db *gorm.DB, size int, ttl time.Duration) *Rankings {
	return &Rankings{
		db:    db,
		cache: expirable.NewLRU[string, any](size, nil, ttl),
	}
}

func cached[T any](ctx context.Context, r *Rankings, key string, load func(*gorm.DB) (T, error)) (T, error) {
	if v, ok := r.cache.Get(key); ok {
		if t, ok := v.(T); ok {
			rankingLookups.WithLabelValues("hit").Inc()
			return t, nil
		}
	}
	rankingLookups.WithLabelValues("miss").Inc()

	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	t, err := load(r.db.WithContext(ctx))
	if err != nil {
		return t, err
	}

	r.mu.Lock()
	if gen == r.gen {
		r.cache.Add(key, t)
	}
	r.mu.Unlock()
	return t, nil
}

func (r *Rankings) Albums(ctx context.Context) ([]Album, error) {
	return cached(ctx, r, "albums", TopAlbums)
}

func (r *Rankings) Songs(ctx context.Context) ([]Song, error) {
	return cached(ctx, r, "songs", TopSongs)
}

func (r *Rankings) Bands(ctx context.Context) ([]BandRevenue, error) {
	return cached(ctx, r, "bands", TopBands)
}

// Genres does not cache failures, so an unknown mode always reports
// ErrNotImplemented.
func (r *Rankings) Genres(ctx context.Context, by GenreBy) ([]Genre, error) {
	return cached(ctx, r, "genres:"+by.String(), func(db *gorm.DB) ([]Genre, error) {
		return TopGenres(db, by)
	})
}

// Invalidate drops every cached ranking.
func (r *Rankings) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.cache.Purge()
}
