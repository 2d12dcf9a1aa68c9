package database

import (
	"context"
	"showservice/internal/model"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RetryDatabase defines the retry audit trail operations
type RetryDatabase interface {
	// Write the attempt record for its (operation, identifier, attempt number) key
	UpsertRetryAttempt(ctx context.Context, attempt *model.RetryAttempt) error

	// Append a success marker for an operation
	InsertRetryResolution(ctx context.Context, resolution *model.RetryResolution) error

	// Attempts made since `since`, due before `due`, with no later success marker
	ListUnresolvedRetryAttempts(ctx context.Context, op model.OperationType, since, due time.Time) ([]*model.RetryAttempt, error)

	// Distinct operations with an unresolved attempt since `since`
	CountUnresolvedOperations(ctx context.Context, since time.Time) (int, error)
}

func retryAttemptKey(attempt *model.RetryAttempt) bson.M {
	return bson.M{
		"operation_type": attempt.OperationType,
		"identifier":     attempt.Identifier,
		"attempt_number": attempt.AttemptNumber,
	}
}

// unresolvedPipeline keeps attempts matching match for which no resolution
// was recorded at or after the attempt
func unresolvedPipeline(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$lookup", Value: bson.M{
			"from": retryResolutionsCollection,
			"let": bson.M{
				"op":         "$operation_type",
				"identifier": "$identifier",
				"at":         "$attempt_time",
			},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$operation_type", "$$op"}},
					bson.M{"$eq": bson.A{"$identifier", "$$identifier"}},
					bson.M{"$gte": bson.A{"$resolved_at", "$$at"}},
				}}}},
				bson.M{"$limit": 1},
			},
			"as": "resolutions",
		}}},
		{{Key: "$match", Value: bson.M{"resolutions": bson.M{"$size": 0}}}},
		{{Key: "$project", Value: bson.M{"resolutions": 0}}},
	}
}

func (m *mongoDB) UpsertRetryAttempt(ctx context.Context, attempt *model.RetryAttempt) error {
	opts := options.Replace().SetUpsert(true)

	_, err := m.retriesCol.ReplaceOne(ctx, retryAttemptKey(attempt), attempt, opts)
	if err != nil {
		log.Error().Err(err).
			Str("operationType", string(attempt.OperationType)).
			Str("identifier", attempt.Identifier).
			Int("attempt", attempt.AttemptNumber).
			Msg("Failed to record retry attempt")
		return err
	}

	return nil
}

func (m *mongoDB) InsertRetryResolution(ctx context.Context, resolution *model.RetryResolution) error {
	_, err := m.resolutionsCol.InsertOne(ctx, resolution)
	if err != nil {
		log.Error().Err(err).
			Str("operationType", string(resolution.OperationType)).
			Str("identifier", resolution.Identifier).
			Msg("Failed to record retry resolution")
		return err
	}

	return nil
}

func (m *mongoDB) ListUnresolvedRetryAttempts(ctx context.Context, op model.OperationType, since, due time.Time) ([]*model.RetryAttempt, error) {
	pipeline := unresolvedPipeline(bson.M{
		"operation_type":  op,
		"attempt_time":    bson.M{"$gte": since},
		"next_retry_time": bson.M{"$lte": due},
	})
	pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: "attempt_time", Value: 1}}}})

	cursor, err := m.retriesCol.Aggregate(ctx, pipeline)
	if err != nil {
		log.Error().Err(err).Str("operationType", string(op)).Msg("Failed to list retry attempts")
		return nil, err
	}
	defer cursor.Close(ctx)

	attempts := []*model.RetryAttempt{}
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}

	return attempts, nil
}

func (m *mongoDB) CountUnresolvedOperations(ctx context.Context, since time.Time) (int, error) {
	pipeline := unresolvedPipeline(bson.M{"attempt_time": bson.M{"$gte": since}})
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.M{
			"_id": bson.M{"op": "$operation_type", "identifier": "$identifier"},
		}}},
		bson.D{{Key: "$count", Value: "operations"}},
	)

	cursor, err := m.retriesCol.Aggregate(ctx, pipeline)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count unresolved operations")
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Operations int `bson:"operations"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}

	return results[0].Operations, nil
}
