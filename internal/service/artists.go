package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fairplay-api/internal/cache"
	"fairplay-api/internal/catalog"
	"fairplay-api/internal/events"
	"fairplay-api/internal/models"
)

// topArtistsLimit is the fixed number of artists requested per window.
const topArtistsLimit = 20

// Catalog is the external capability the aggregator consumes.
type Catalog interface {
	TopArtists(ctx context.Context, accessToken string, window catalog.TimeRange, limit int) ([]models.ArtistSummary, error)
}

// ArtistService aggregates a listener's top artists across three
// listening windows into one keyed response.
type ArtistService struct {
	catalog  Catalog
	cache    cache.Cache // nil disables caching
	cacheTTL time.Duration
	events   *events.Manager
	logger   zerolog.Logger
	timeout  time.Duration
}

// NewArtistService creates an artist aggregation service. Pass a nil
// cache to disable response caching.
func NewArtistService(cat Catalog, c cache.Cache, cacheTTL time.Duration, evts *events.Manager, logger zerolog.Logger, timeout time.Duration) *ArtistService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &ArtistService{
		catalog:  cat,
		cache:    c,
		cacheTTL: cacheTTL,
		events:   evts,
		logger:   logger,
		timeout:  timeout,
	}
}

// TopArtists issues three concurrent catalog queries, one per listening
// window, and merges them into one response. The join is all-or-nothing:
// any failed range fails the whole call and no partial result is
// returned. Per-range order is preserved exactly as the catalog
// returned it.
func (s *ArtistService) TopArtists(ctx context.Context, accessToken string) (*models.TopArtists, error) {
	if accessToken == "" {
		return nil, ErrUnauthenticated
	}

	if s.cache != nil {
		var cached models.TopArtists
		if err := cache.GetJSON(ctx, s.cache, cacheKey(accessToken), &cached); err == nil {
			return &cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	windows := []struct {
		name  string
		token catalog.TimeRange
	}{
		{"weekly", catalog.RangeShortTerm},
		{"monthly", catalog.RangeMediumTerm},
		{"yearly", catalog.RangeLongTerm},
	}

	results := make([][]models.ArtistSummary, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range windows {
		g.Go(func() error {
			artists, err := s.catalog.TopArtists(gctx, accessToken, w.token, topArtistsLimit)
			if err != nil {
				return &UpstreamError{Range: w.name, Err: err}
			}
			results[i] = artists
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &UpstreamTimeout{Op: "top-artists aggregation", Err: err}
		}
		s.logger.Error().Err(err).Msg("top-artists aggregation failed")
		return nil, err
	}

	result := &models.TopArtists{
		Weekly:  nonNil(results[0]),
		Monthly: nonNil(results[1]),
		Yearly:  nonNil(results[2]),
	}

	if s.cache != nil {
		// Best effort; a cache failure never fails the request.
		if err := cache.SetJSON(ctx, s.cache, cacheKey(accessToken), result, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("caching top-artists response failed")
		}
	}

	s.events.PublishTopArtistsFetched(ctx, events.TopArtistsFetchedData{
		WeeklyCount:  len(result.Weekly),
		MonthlyCount: len(result.Monthly),
		YearlyCount:  len(result.Yearly),
	})

	return result, nil
}

// cacheKey derives a cache key from a digest of the access token so the
// raw credential never appears in the cache.
func cacheKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return "topartists:" + hex.EncodeToString(sum[:16])
}

// nonNil keeps every range key present in the JSON response even when
// the listener has no history for it.
func nonNil(artists []models.ArtistSummary) []models.ArtistSummary {
	if artists == nil {
		return []models.ArtistSummary{}
	}
	return artists
}
