package database

import (
	"context"
	"errors"
	"showservice/internal/model"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrImportFinalized is returned when a terminal import run is asked to transition again
var ErrImportFinalized = errors.New("import run already finalized")

// TrackingDatabase defines import-run tracking operations
type TrackingDatabase interface {
	// Create or overwrite an import run record
	UpsertImportRun(ctx context.Context, run *model.ImportRun) error

	// Atomically bump the page counters of an existing run
	IncrementImportProgress(ctx context.Context, importID string, page int, success bool, at time.Time) error

	// Move a non-terminal run to a terminal status
	FinalizeImportRun(ctx context.Context, importID string, status model.ImportStatus, at time.Time) error

	// Get an import run by ID
	GetImportRun(ctx context.Context, importID string) (*model.ImportRun, error)

	// Count import runs by status
	CountImportRunsByStatus(ctx context.Context, status model.ImportStatus) (int64, error)

	// Most recent runs first
	ListImportRuns(ctx context.Context, limit int) ([]*model.ImportRun, error)
}

func (m *mongoDB) UpsertImportRun(ctx context.Context, run *model.ImportRun) error {
	_, err := m.importsCol.ReplaceOne(
		ctx,
		bson.M{"_id": run.ImportID},
		run,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		log.Error().Err(err).Str("importID", run.ImportID).Msg("Failed to upsert import run")
		return err
	}

	log.Debug().Str("importID", run.ImportID).Str("status", string(run.Status)).Msg("Upserted import run")
	return nil
}

// IncrementImportProgress never creates a record; a missing run yields ErrNotFound
func (m *mongoDB) IncrementImportProgress(ctx context.Context, importID string, page int, success bool, at time.Time) error {
	result, err := m.importsCol.UpdateOne(
		ctx,
		bson.M{"_id": importID},
		progressUpdate(page, success, at),
	)
	if err != nil {
		log.Error().Err(err).Str("importID", importID).Int("page", page).Msg("Failed to update import progress")
		return err
	}

	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func progressUpdate(page int, success bool, at time.Time) bson.M {
	counter := "completed_pages"
	if !success {
		counter = "failed_pages"
	}

	return bson.M{
		"$inc": bson.M{counter: 1},
		"$set": bson.M{
			"last_processed_page": page,
			"last_activity_time":  at,
		},
	}
}

func (m *mongoDB) FinalizeImportRun(ctx context.Context, importID string, status model.ImportStatus, at time.Time) error {
	filter := bson.M{
		"_id":    importID,
		"status": bson.M{"$nin": []model.ImportStatus{model.ImportCompleted, model.ImportFailed}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":             status,
			"end_time":           at,
			"last_activity_time": at,
		},
	}

	result, err := m.importsCol.UpdateOne(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Str("importID", importID).Msg("Failed to finalize import run")
		return err
	}

	if result.MatchedCount > 0 {
		return nil
	}

	count, err := m.importsCol.CountDocuments(ctx, bson.M{"_id": importID})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}

	return ErrImportFinalized
}

func (m *mongoDB) GetImportRun(ctx context.Context, importID string) (*model.ImportRun, error) {
	var run model.ImportRun
	err := m.importsCol.FindOne(ctx, bson.M{"_id": importID}).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("importID", importID).Msg("Failed to get import run")
		return nil, err
	}

	return &run, nil
}

func (m *mongoDB) CountImportRunsByStatus(ctx context.Context, status model.ImportStatus) (int64, error) {
	count, err := m.importsCol.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("Failed to count import runs")
		return 0, err
	}

	return count, nil
}

func (m *mongoDB) ListImportRuns(ctx context.Context, limit int) ([]*model.ImportRun, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.M{"start_time": -1})

	cursor, err := m.importsCol.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list import runs")
		return nil, err
	}
	defer cursor.Close(ctx)

	runs := []*model.ImportRun{}
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}

	return runs, nil
}
