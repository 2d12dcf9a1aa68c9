package controller

import (
	"context"
	"showservice/internal/model"
)

// OperationsController exposes retry, dead-letter and health administration
type OperationsController interface {
	RetryFailedOperations(ctx context.Context, op model.OperationType, maxAgeHours int) model.RetrySummary
	DeadLetterStatistics(ctx context.Context) model.DeadLetterStatistics
	ReplayDeadLetters(ctx context.Context, queueName string, max int) (int, error)
	HealthSummary(ctx context.Context) model.HealthSummary
	CheckDataFreshness(ctx context.Context) model.FreshnessReport
}

type RetryAdmin interface {
	RetryFailedOperations(ctx context.Context, op model.OperationType, maxAgeHours int) model.RetrySummary
	DeadLetterStatistics(ctx context.Context) model.DeadLetterStatistics
	ProcessDeadLetterQueue(ctx context.Context, queueName string, max int) (int, error)
}

type HealthReporter interface {
	GetHealthSummary(ctx context.Context) model.HealthSummary
}

type FreshnessChecker interface {
	CheckDataFreshness(ctx context.Context, maxAgeDays int) model.FreshnessReport
}

type operationsController struct {
	retry      RetryAdmin
	reporter   HealthReporter
	freshness  FreshnessChecker
	maxAgeDays int
}

func NewOperationsController(retry RetryAdmin, reporter HealthReporter, freshness FreshnessChecker, maxAgeDays int) OperationsController {
	return &operationsController{
		retry:      retry,
		reporter:   reporter,
		freshness:  freshness,
		maxAgeDays: maxAgeDays,
	}
}

func (c *operationsController) RetryFailedOperations(ctx context.Context, op model.OperationType, maxAgeHours int) model.RetrySummary {
	return c.retry.RetryFailedOperations(ctx, op, maxAgeHours)
}

func (c *operationsController) DeadLetterStatistics(ctx context.Context) model.DeadLetterStatistics {
	return c.retry.DeadLetterStatistics(ctx)
}

func (c *operationsController) ReplayDeadLetters(ctx context.Context, queueName string, max int) (int, error) {
	return c.retry.ProcessDeadLetterQueue(ctx, queueName, max)
}

func (c *operationsController) HealthSummary(ctx context.Context) model.HealthSummary {
	return c.reporter.GetHealthSummary(ctx)
}

func (c *operationsController) CheckDataFreshness(ctx context.Context) model.FreshnessReport {
	return c.freshness.CheckDataFreshness(ctx, c.maxAgeDays)
}
