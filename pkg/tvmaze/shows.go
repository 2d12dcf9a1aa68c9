package tvmaze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
)

// ErrInvalidPeriod is returned for an unsupported updates window
var ErrInvalidPeriod = errors.New("tvmaze: since must be day, week or month")

// UpdatePeriods are the windows accepted by the updates endpoint
var UpdatePeriods = []string{"day", "week", "month"}

// ValidPeriod reports whether since is an accepted updates window
func ValidPeriod(since string) bool {
	for _, p := range UpdatePeriods {
		if p == since {
			return true
		}
	}
	return false
}

// GetShowsPage returns one page of the show index, items undecoded.
// A page past the end of the index yields an empty slice.
func (c *Client) GetShowsPage(ctx context.Context, page int) ([]json.RawMessage, error) {
	body, err := c.request(ctx, "/shows?page="+strconv.Itoa(page))
	if errors.Is(err, ErrNotFound) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("error decoding shows page %d: %w", page, err)
	}

	log.Debug().Int("page", page).Int("count", len(items)).Msg("Fetched shows page")
	return items, nil
}

// GetShowDetails returns a show's full record, or nil when it does not exist.
// A cached copy is served when one exists.
func (c *Client) GetShowDetails(ctx context.Context, showID int) (json.RawMessage, error) {
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, detailsKey(showID)); err == nil {
			return json.RawMessage(cached), nil
		}
	}
	return c.fetchShowDetails(ctx, showID)
}

// RefreshShowDetails always asks the catalog, then replaces any cached copy
func (c *Client) RefreshShowDetails(ctx context.Context, showID int) (json.RawMessage, error) {
	return c.fetchShowDetails(ctx, showID)
}

func (c *Client) fetchShowDetails(ctx context.Context, showID int) (json.RawMessage, error) {
	body, err := c.request(ctx, "/shows/"+strconv.Itoa(showID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("invalid JSON for show %d", showID)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, detailsKey(showID), body, c.cacheTTL); err != nil {
			log.Warn().Err(err).Int("showID", showID).Msg("Failed to cache show details")
		}
	}

	return json.RawMessage(body), nil
}

// GetShowUpdates maps show id to its last-updated unix timestamp
func (c *Client) GetShowUpdates(ctx context.Context, since string) (map[int]int64, error) {
	if !ValidPeriod(since) {
		return nil, ErrInvalidPeriod
	}

	body, err := c.request(ctx, "/updates/shows?since="+since)
	if err != nil {
		return nil, err
	}

	var raw map[string]int64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error decoding updates: %w", err)
	}

	updates := make(map[int]int64, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			log.Warn().Str("key", k).Msg("Skipping non-numeric show id in updates")
			continue
		}
		updates[id] = v
	}

	return updates, nil
}

func detailsKey(showID int) string {
	return "tvmaze:show:" + strconv.Itoa(showID)
}
