package database

import (
	"context"
	"errors"
	"regexp"
	"showservice/internal/model"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ShowDatabase defines show-related database operations
type ShowDatabase interface {
	// Insert or replace a show keyed by its catalog id
	UpsertShow(ctx context.Context, show *model.Show) error

	// Record the catalog's last-updated stamp for a show id
	UpsertShowID(ctx context.Context, showID int, lastUpdated int64) error

	// Get a show by catalog id
	GetShowByID(ctx context.Context, showID int) (*model.Show, error)

	// Case-insensitive name search
	SearchShows(ctx context.Context, query string, limit, offset int) ([]*model.Show, error)

	// Paged summaries projection
	ListShowSummaries(ctx context.Context, limit, offset int) ([]*model.ShowSummary, error)

	// Paged full records
	ListShows(ctx context.Context, limit, offset int) ([]*model.Show, error)

	// Totals used by the freshness check
	ShowStats(ctx context.Context, cutoff time.Time) (total int64, stale int64, newest *time.Time, err error)
}

// UpsertShow replaces the whole document for show.ID, inserting when absent
func (m *mongoDB) UpsertShow(ctx context.Context, show *model.Show) error {
	if show.ID == 0 {
		return errors.New("show must have an id")
	}

	if show.ImportedAt.IsZero() {
		show.ImportedAt = time.Now().UTC()
	}

	_, err := m.showsCol.ReplaceOne(
		ctx,
		bson.M{"_id": show.ID},
		show,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		log.Error().Err(err).Int("showID", show.ID).Msg("Failed to upsert show")
		return err
	}

	log.Debug().Int("showID", show.ID).Str("name", show.Name).Msg("Upserted show")
	return nil
}

func (m *mongoDB) UpsertShowID(ctx context.Context, showID int, lastUpdated int64) error {
	_, err := m.showIDsCol.UpdateOne(
		ctx,
		bson.M{"_id": showID},
		bson.M{"$set": bson.M{
			"last_updated": lastUpdated,
			"tracked_at":   time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Error().Err(err).Int("showID", showID).Msg("Failed to update show id table")
		return err
	}

	return nil
}

func (m *mongoDB) GetShowByID(ctx context.Context, showID int) (*model.Show, error) {
	var show model.Show
	err := m.showsCol.FindOne(ctx, bson.M{"_id": showID}).Decode(&show)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Int("showID", showID).Msg("Failed to get show")
		return nil, err
	}

	return &show, nil
}

func (m *mongoDB) SearchShows(ctx context.Context, query string, limit, offset int) ([]*model.Show, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetSort(bson.D{{Key: "weight", Value: -1}, {Key: "name", Value: 1}})

	cursor, err := m.showsCol.Find(ctx, searchFilter(query), opts)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Failed to search shows")
		return nil, err
	}
	defer cursor.Close(ctx)

	shows := []*model.Show{}
	if err := cursor.All(ctx, &shows); err != nil {
		log.Error().Err(err).Msg("Failed to decode shows")
		return nil, err
	}

	return shows, nil
}

func (m *mongoDB) ListShowSummaries(ctx context.Context, limit, offset int) ([]*model.ShowSummary, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetSort(bson.M{"_id": 1}).
		SetProjection(bson.M{
			"name":      1,
			"genres":    1,
			"status":    1,
			"premiered": 1,
			"rating":    1,
			"image":     1,
			"network":   1,
		})

	cursor, err := m.showsCol.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list show summaries")
		return nil, err
	}
	defer cursor.Close(ctx)

	summaries := []*model.ShowSummary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		log.Error().Err(err).Msg("Failed to decode show summaries")
		return nil, err
	}

	return summaries, nil
}

func (m *mongoDB) ListShows(ctx context.Context, limit, offset int) ([]*model.Show, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetSort(bson.M{"_id": 1})

	cursor, err := m.showsCol.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list shows")
		return nil, err
	}
	defer cursor.Close(ctx)

	shows := []*model.Show{}
	if err := cursor.All(ctx, &shows); err != nil {
		log.Error().Err(err).Msg("Failed to decode shows")
		return nil, err
	}

	return shows, nil
}

func (m *mongoDB) ShowStats(ctx context.Context, cutoff time.Time) (int64, int64, *time.Time, error) {
	total, err := m.showsCol.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, 0, nil, err
	}

	stale, err := m.showsCol.CountDocuments(ctx, bson.M{"imported_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, 0, nil, err
	}

	var newest struct {
		ImportedAt time.Time `bson:"imported_at"`
	}
	opts := options.FindOne().
		SetSort(bson.M{"imported_at": -1}).
		SetProjection(bson.M{"imported_at": 1})

	err = m.showsCol.FindOne(ctx, bson.M{}, opts).Decode(&newest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return total, stale, nil, nil
	}
	if err != nil {
		return 0, 0, nil, err
	}

	return total, stale, &newest.ImportedAt, nil
}

// searchFilter matches names containing the query literally, ignoring case
func searchFilter(query string) bson.M {
	return bson.M{
		"name": bson.M{
			"$regex":   regexp.QuoteMeta(strings.TrimSpace(query)),
			"$options": "i",
		},
	}
}
