package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"movie-discovery/internal/cache"
	"movie-discovery/internal/metrics"
	"movie-discovery/internal/models"
	"movie-discovery/internal/tmdb"
)

// MaxPage is the highest page TMDB serves for list endpoints.
const MaxPage = 500

// Catalog is the upstream movie catalog.
type Catalog interface {
	Trending(ctx context.Context, window string, page int) (*tmdb.MoviePage, error)
	Popular(ctx context.Context, page int) (*tmdb.MoviePage, error)
	Details(ctx context.Context, tmdbID int) (*tmdb.MovieDetail, error)
	Search(ctx context.Context, query string, page int) (*tmdb.MoviePage, error)
	Recommendations(ctx context.Context, tmdbID, page int) (*tmdb.MoviePage, error)
}

// MovieStore is the local catalog the service reconciles into.
type MovieStore interface {
	UpsertMovie(ctx context.Context, m *models.Movie) (bool, error)
	GetMovieByTMDBId(ctx context.Context, tmdbID int) (*models.Movie, error)
}

// MovieService serves catalog queries through the cache, falling back to
// TMDB on a miss and reconciling every fetched movie into the local store.
type MovieService struct {
	movies  MovieStore
	catalog Catalog
	cache   cache.Store
	timeout time.Duration
}

// NewMovieService creates a new MovieService. timeout bounds each upstream call.
func NewMovieService(movies MovieStore, catalog Catalog, store cache.Store, timeout time.Duration) *MovieService {
	if store == nil {
		store = cache.NoopStore{}
	}
	return &MovieService{
		movies:  movies,
		catalog: catalog,
		cache:   store,
		timeout: timeout,
	}
}

// reconcileStats counts upsert outcomes for one fetch.
type reconcileStats struct {
	created, updated, failed int
}

// fetchSpec describes one cache-aside catalog operation.
type fetchSpec[T any] struct {
	op       string
	key      string
	ttl      time.Duration
	fetch    func(ctx context.Context) (*T, error)
	items    func(*T) []*models.Movie
	annotate func(*T)
	attrs    []any
}

// fetchThrough runs the cache-aside flow: cache lookup, upstream fetch on
// miss, reconciliation, annotation, cache write. Upstream failures are
// never cached. With readCache false the lookup is skipped and the entry refreshed.
func fetchThrough[T any](ctx context.Context, s *MovieService, spec fetchSpec[T], readCache bool) (*T, reconcileStats, error) {
	if readCache {
		if raw, ok := s.cache.Get(ctx, spec.key); ok {
			var v T
			err := json.Unmarshal(raw, &v)
			if err == nil {
				slog.Debug("cache hit", "key", spec.key)
				metrics.SyncOperations.WithLabelValues(spec.op, "cache").Inc()
				return &v, reconcileStats{}, nil
			}
			slog.Warn("discarding undecodable cache entry", "key", spec.key, "error", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	v, err := spec.fetch(callCtx)
	cancel()
	if err != nil {
		slog.Error("upstream fetch failed", append([]any{"operation", spec.op, "error", err}, spec.attrs...)...)
		metrics.SyncOperations.WithLabelValues(spec.op, "unavailable").Inc()
		return nil, reconcileStats{}, fmt.Errorf("%s: %w: %w", spec.op, models.ErrUpstreamUnavailable, err)
	}
	metrics.SyncOperations.WithLabelValues(spec.op, "upstream").Inc()

	stats := s.reconcile(ctx, spec.op, spec.items(v))
	spec.annotate(v)

	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode cache entry", "key", spec.key, "error", err)
		return v, stats, nil
	}
	s.cache.Set(ctx, spec.key, data, spec.ttl)
	return v, stats, nil
}

// reconcile upserts every item. Failures are logged and skipped.
func (s *MovieService) reconcile(ctx context.Context, op string, items []*models.Movie) reconcileStats {
	var stats reconcileStats
	for _, m := range items {
		if m.TMDBId <= 0 {
			stats.failed++
			metrics.Reconciliations.WithLabelValues("failed").Inc()
			slog.Error("skipping upstream movie without id", "operation", op, "title", m.Title)
			continue
		}

		created, err := s.movies.UpsertMovie(ctx, m)
		if err != nil {
			stats.failed++
			metrics.Reconciliations.WithLabelValues("failed").Inc()
			slog.Error("failed to upsert movie", "operation", op, "tmdb_id", m.TMDBId, "error", err)
			continue
		}
		if created {
			stats.created++
			metrics.Reconciliations.WithLabelValues("created").Inc()
		} else {
			stats.updated++
			metrics.Reconciliations.WithLabelValues("updated").Inc()
		}
	}
	return stats
}

func pageItems(p *tmdb.MoviePage) []*models.Movie {
	items := make([]*models.Movie, 0, len(p.Results))
	for i := range p.Results {
		items = append(items, p.Results[i].ToModel())
	}
	return items
}

func annotatePage(p *tmdb.MoviePage) { p.Annotate() }

func validatePage(page int) error {
	if page < 1 || page > MaxPage {
		return fmt.Errorf("%w: page must be between 1 and %d", models.ErrInvalidInput, MaxPage)
	}
	return nil
}

func validateID(id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: movie id must be positive", models.ErrInvalidInput)
	}
	return nil
}

// Trending returns trending movies for window "day" or "week".
func (s *MovieService) Trending(ctx context.Context, window string, page int) (*tmdb.MoviePage, error) {
	if window != "day" && window != "week" {
		return nil, fmt.Errorf("%w: time_window must be 'day' or 'week'", models.ErrInvalidInput)
	}
	if err := validatePage(page); err != nil {
		return nil, err
	}
	v, _, err := fetchThrough(ctx, s, s.trendingSpec(window, page), true)
	return v, err
}

func (s *MovieService) trendingSpec(window string, page int) fetchSpec[tmdb.MoviePage] {
	return fetchSpec[tmdb.MoviePage]{
		op:  "trending",
		key: cache.TrendingKey(window, page),
		ttl: cache.TrendingTTL,
		fetch: func(ctx context.Context) (*tmdb.MoviePage, error) {
			return s.catalog.Trending(ctx, window, page)
		},
		items:    pageItems,
		annotate: annotatePage,
		attrs:    []any{"time_window", window, "page", page},
	}
}

// Popular returns TMDB's popular movies.
func (s *MovieService) Popular(ctx context.Context, page int) (*tmdb.MoviePage, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	v, _, err := fetchThrough(ctx, s, s.popularSpec(page), true)
	return v, err
}

func (s *MovieService) popularSpec(page int) fetchSpec[tmdb.MoviePage] {
	return fetchSpec[tmdb.MoviePage]{
		op:  "popular",
		key: cache.PopularKey(page),
		ttl: cache.PopularTTL,
		fetch: func(ctx context.Context) (*tmdb.MoviePage, error) {
			return s.catalog.Popular(ctx, page)
		},
		items:    pageItems,
		annotate: annotatePage,
		attrs:    []any{"page", page},
	}
}

// Details returns one movie with credits, videos and reviews.
func (s *MovieService) Details(ctx context.Context, tmdbID int) (*tmdb.MovieDetail, error) {
	if err := validateID(tmdbID); err != nil {
		return nil, err
	}
	v, _, err := fetchThrough(ctx, s, s.detailsSpec(tmdbID), true)
	return v, err
}

func (s *MovieService) detailsSpec(tmdbID int) fetchSpec[tmdb.MovieDetail] {
	return fetchSpec[tmdb.MovieDetail]{
		op:  "details",
		key: cache.DetailsKey(tmdbID),
		ttl: cache.DetailsTTL,
		fetch: func(ctx context.Context) (*tmdb.MovieDetail, error) {
			return s.catalog.Details(ctx, tmdbID)
		},
		items:    func(d *tmdb.MovieDetail) []*models.Movie { return []*models.Movie{d.ToModel()} },
		annotate: func(d *tmdb.MovieDetail) { d.Annotate() },
		attrs:    []any{"tmdb_id", tmdbID},
	}
}

// Search runs a free-text search. The query is used verbatim.
func (s *MovieService) Search(ctx context.Context, query string, page int) (*tmdb.MoviePage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is required", models.ErrInvalidInput)
	}
	if err := validatePage(page); err != nil {
		return nil, err
	}

	spec := fetchSpec[tmdb.MoviePage]{
		op:  "search",
		key: cache.SearchKey(query, page),
		ttl: cache.SearchTTL,
		fetch: func(ctx context.Context) (*tmdb.MoviePage, error) {
			return s.catalog.Search(ctx, query, page)
		},
		items:    pageItems,
		annotate: annotatePage,
		attrs:    []any{"query", query, "page", page},
	}
	v, _, err := fetchThrough(ctx, s, spec, true)
	return v, err
}

// Related returns TMDB's recommendations for a movie.
func (s *MovieService) Related(ctx context.Context, tmdbID, page int) (*tmdb.MoviePage, error) {
	if err := validateID(tmdbID); err != nil {
		return nil, err
	}
	if err := validatePage(page); err != nil {
		return nil, err
	}

	spec := fetchSpec[tmdb.MoviePage]{
		op:  "related",
		key: cache.RelatedKey(tmdbID, page),
		ttl: cache.RelatedTTL,
		fetch: func(ctx context.Context) (*tmdb.MoviePage, error) {
			return s.catalog.Recommendations(ctx, tmdbID, page)
		},
		items:    pageItems,
		annotate: annotatePage,
		attrs:    []any{"tmdb_id", tmdbID, "page", page},
	}
	v, _, err := fetchThrough(ctx, s, spec, true)
	return v, err
}

// ResolveMovie returns the stored movie, fetching it from TMDB first when it
// is not known locally.
func (s *MovieService) ResolveMovie(ctx context.Context, tmdbID int) (*models.Movie, error) {
	if err := validateID(tmdbID); err != nil {
		return nil, err
	}

	m, err := s.movies.GetMovieByTMDBId(ctx, tmdbID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if _, _, err := fetchThrough(ctx, s, s.detailsSpec(tmdbID), false); err != nil {
		if tmdb.IsNotFound(err) {
			return nil, fmt.Errorf("movie %d: %w", tmdbID, models.ErrNotFound)
		}
		return nil, err
	}
	return s.movies.GetMovieByTMDBId(ctx, tmdbID)
}

// SyncPopular refreshes pages 1..pages of the popular list straight from
// TMDB, reconciling every movie. With clearCache set, all catalog cache
// entries are dropped first.
func (s *MovieService) SyncPopular(ctx context.Context, pages int, clearCache bool) (*models.SyncReport, error) {
	if pages < 1 || pages > MaxPage {
		return nil, fmt.Errorf("%w: pages must be between 1 and %d", models.ErrInvalidInput, MaxPage)
	}
	slog.Info("starting TMDB sync", "pages", pages, "clear_cache", clearCache)

	if clearCache {
		s.InvalidateCatalogCache(ctx)
	}

	report := &models.SyncReport{}
	var lastErr error
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		_, stats, err := fetchThrough(ctx, s, s.popularSpec(page), false)
		if err != nil {
			slog.Error("failed to fetch TMDB page", "page", page, "error", err)
			lastErr = err
			continue
		}
		report.Pages++
		report.Created += stats.created
		report.Updated += stats.updated
		report.Failed += stats.failed
		slog.Info("synced page", "page", page, "created", stats.created, "updated", stats.updated)
	}

	if report.Pages == 0 && lastErr != nil {
		return report, lastErr
	}

	slog.Info("TMDB sync completed",
		"pages", report.Pages, "created", report.Created, "updated", report.Updated, "failed", report.Failed)
	return report, nil
}

// WarmCache refreshes trending (day and week) and popular pages 1..pages and
// returns how many entries were refreshed. pages is capped at MaxPage.
func (s *MovieService) WarmCache(ctx context.Context, pages int) int {
	if pages < 1 {
		slog.Warn("skipping cache warmup", "pages", pages)
		return 0
	}
	pages = min(pages, MaxPage)

	specs := make([]fetchSpec[tmdb.MoviePage], 0, pages*3)
	for page := 1; page <= pages; page++ {
		specs = append(specs, s.trendingSpec("day", page), s.trendingSpec("week", page), s.popularSpec(page))
	}

	warmed := 0
	for _, spec := range specs {
		if ctx.Err() != nil {
			break
		}
		if _, _, err := fetchThrough(ctx, s, spec, false); err != nil {
			continue
		}
		warmed++
	}

	slog.Info("cache warmup completed", "warmed", warmed, "total", len(specs))
	return warmed
}

// InvalidateCatalogCache drops every catalog cache entry.
func (s *MovieService) InvalidateCatalogCache(ctx context.Context) int {
	deleted := 0
	for _, prefix := range cache.CatalogPrefixes {
		deleted += s.cache.DeletePrefix(ctx, prefix)
	}
	slog.Info("catalog cache invalidated", "deleted", deleted)
	return deleted
}
