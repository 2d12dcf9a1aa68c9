package controller

import (
	"context"
	"errors"
	"showservice/internal/cache"
	"showservice/internal/model"
	"time"

	"github.com/rs/zerolog/log"
)

// ShowController serves the imported catalog
type ShowController interface {
	GetShow(ctx context.Context, showID int) (*model.Show, error)
	SearchShows(ctx context.Context, query string, limit, offset int) ([]*model.Show, error)
	ListShowSummaries(ctx context.Context, limit, offset int) ([]*model.ShowSummary, error)
	ListShows(ctx context.Context, limit, offset int) ([]*model.Show, error)
}

type ShowReader interface {
	GetShowByID(ctx context.Context, showID int) (*model.Show, error)
	SearchShows(ctx context.Context, query string, limit, offset int) ([]*model.Show, error)
	ListShowSummaries(ctx context.Context, limit, offset int) ([]*model.ShowSummary, error)
	ListShows(ctx context.Context, limit, offset int) ([]*model.Show, error)
}

type showController struct {
	db       ShowReader
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewShowController builds the read controller. A nil cache disables caching.
func NewShowController(db ShowReader, c cache.Cache, cacheTTL time.Duration) ShowController {
	return &showController{
		db:       db,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

func (c *showController) GetShow(ctx context.Context, showID int) (*model.Show, error) {
	key := cache.ShowKey(showID)

	var cached model.Show
	err := cache.GetJSON(ctx, c.cache, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn().Err(err).Int("showID", showID).Msg("Show cache read failed")
	}

	show, err := c.db.GetShowByID(ctx, showID)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, c.cache, key, show, c.cacheTTL); err != nil {
		log.Warn().Err(err).Int("showID", showID).Msg("Show cache write failed")
	}

	return show, nil
}

func (c *showController) SearchShows(ctx context.Context, query string, limit, offset int) ([]*model.Show, error) {
	return c.db.SearchShows(ctx, query, limit, offset)
}

func (c *showController) ListShowSummaries(ctx context.Context, limit, offset int) ([]*model.ShowSummary, error) {
	return c.db.ListShowSummaries(ctx, limit, offset)
}

func (c *showController) ListShows(ctx context.Context, limit, offset int) ([]*model.Show, error) {
	return c.db.ListShows(ctx, limit, offset)
}
