package database

import (
	"context"
	"errors"
	"showservice/internal/model"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HealthDatabase stores named health metrics
type HealthDatabase interface {
	UpsertHealthMetric(ctx context.Context, metric *model.HealthMetric) error
	GetHealthMetric(ctx context.Context, name string) (*model.HealthMetric, error)
	ListHealthMetrics(ctx context.Context) ([]*model.HealthMetric, error)
}

func (m *mongoDB) UpsertHealthMetric(ctx context.Context, metric *model.HealthMetric) error {
	_, err := m.healthCol.ReplaceOne(
		ctx,
		bson.M{"_id": metric.Name},
		metric,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		log.Error().Err(err).Str("metric", metric.Name).Msg("Failed to upsert health metric")
		return err
	}

	return nil
}

func (m *mongoDB) GetHealthMetric(ctx context.Context, name string) (*model.HealthMetric, error) {
	var metric model.HealthMetric
	err := m.healthCol.FindOne(ctx, bson.M{"_id": name}).Decode(&metric)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &metric, nil
}

func (m *mongoDB) ListHealthMetrics(ctx context.Context) ([]*model.HealthMetric, error) {
	cursor, err := m.healthCol.Find(ctx, bson.M{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list health metrics")
		return nil, err
	}
	defer cursor.Close(ctx)

	metrics := []*model.HealthMetric{}
	if err := cursor.All(ctx, &metrics); err != nil {
		return nil, err
	}

	return metrics, nil
}
