package database

import (
	"context"
	"errors"
	"fmt"
	"showservice/internal/config"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a keyed document does not exist
var ErrNotFound = errors.New("document not found")

const (
	showsCollection            = "shows"
	showIDsCollection          = "show_ids"
	importTrackingCollection   = "import_tracking"
	retryTrackingCollection    = "retry_tracking"
	retryResolutionsCollection = "retry_resolutions"
	dataHealthCollection       = "data_health"
)

type Database interface {
	Health() error
	Close(ctx context.Context) error
	ShowDatabase
	TrackingDatabase
	RetryDatabase
	HealthDatabase
}

type mongoDB struct {
	client *mongo.Client
	db     *mongo.Database

	showsCol       *mongo.Collection
	showIDsCol     *mongo.Collection
	importsCol     *mongo.Collection
	retriesCol     *mongo.Collection
	resolutionsCol *mongo.Collection
	healthCol      *mongo.Collection
}

func New(config *config.Config) (Database, error) {
	clientOptions := options.Client().ApplyURI(config.MongoDB.URI)
	if config.MongoDB.Username != "" {
		clientOptions.SetAuth(options.Credential{
			Username: config.MongoDB.Username,
			Password: config.MongoDB.Password,
		})
	}

	client, err := mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	db := client.Database(config.MongoDB.DB)

	m := &mongoDB{
		client:         client,
		db:             db,
		showsCol:       db.Collection(showsCollection),
		showIDsCol:     db.Collection(showIDsCollection),
		importsCol:     db.Collection(importTrackingCollection),
		retriesCol:     db.Collection(retryTrackingCollection),
		resolutionsCol: db.Collection(retryResolutionsCollection),
		healthCol:      db.Collection(dataHealthCollection),
	}

	m.createIndexes(context.Background())

	log.Info().Str("db", config.MongoDB.DB).Msg("MongoDB connection established")
	return m, nil
}

func (m *mongoDB) createIndexes(ctx context.Context) {
	showIndexModels := []mongo.IndexModel{
		{
			// Index for name searches and sorting
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index(),
		},
		{
			// Index for freshness checks
			Keys:    bson.D{{Key: "imported_at", Value: -1}},
			Options: options.Index(),
		},
	}

	importIndexModels := []mongo.IndexModel{
		{
			// Index for counting active imports
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	retryIndexModels := []mongo.IndexModel{
		{
			// One record per attempt of an operation
			Keys: bson.D{
				{Key: "operation_type", Value: 1},
				{Key: "identifier", Value: 1},
				{Key: "attempt_number", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			// Index for the failed operations query
			Keys:    bson.D{{Key: "operation_type", Value: 1}, {Key: "attempt_time", Value: -1}},
			Options: options.Index(),
		},
	}

	resolutionIndexModels := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "operation_type", Value: 1},
				{Key: "identifier", Value: 1},
				{Key: "resolved_at", Value: -1},
			},
			Options: options.Index(),
		},
	}

	if _, err := m.showsCol.Indexes().CreateMany(ctx, showIndexModels); err != nil {
		log.Warn().Err(err).Str("Collection", showsCollection).Msg("Error creating indexes")
	}

	if _, err := m.importsCol.Indexes().CreateMany(ctx, importIndexModels); err != nil {
		log.Warn().Err(err).Str("Collection", importTrackingCollection).Msg("Error creating indexes")
	}

	if _, err := m.retriesCol.Indexes().CreateMany(ctx, retryIndexModels); err != nil {
		log.Warn().Err(err).Str("Collection", retryTrackingCollection).Msg("Error creating indexes")
	}

	if _, err := m.resolutionsCol.Indexes().CreateMany(ctx, resolutionIndexModels); err != nil {
		log.Warn().Err(err).Str("Collection", retryResolutionsCollection).Msg("Error creating indexes")
	}
}

// Health implements Database interface
func (m *mongoDB) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := m.client.Ping(ctx, nil)
	if err != nil {
		log.Error().Msgf("Database health error: %v", err)
		return err
	}

	return nil
}

func (m *mongoDB) Close(ctx context.Context) error {
	log.Info().Msg("Closing MongoDB connection")
	return m.client.Disconnect(ctx)
}
