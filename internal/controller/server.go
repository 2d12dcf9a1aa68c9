package controller

import (
	"context"
	"showservice/internal/aws"
	"showservice/internal/cache"
	"showservice/internal/database"
	"showservice/internal/monitoring"
	"showservice/internal/rabbitmq"
)

type ServerController interface {
	DBHealth() error
	CacheHealth() error
	RabbitHealth() error
	ArchiveHealth() error
	Online() string

	// Checkers returns the dependency checks used by the health summary
	Checkers() map[string]monitoring.Checker
}

type serverController struct {
	db      database.Database
	cache   cache.Cache
	rabbit  rabbitmq.Client
	archive aws.PageArchive
}

// NewServer builds the server controller. cache and archive may be nil when disabled.
func NewServer(db database.Database, cache cache.Cache, rabbit rabbitmq.Client, archive aws.PageArchive) ServerController {
	return &serverController{
		db:      db,
		cache:   cache,
		rabbit:  rabbit,
		archive: archive,
	}
}

func (sc *serverController) Online() string {
	return "Online"
}

func (sc *serverController) DBHealth() error {
	return sc.db.Health()
}

func (sc *serverController) CacheHealth() error {
	if sc.cache == nil {
		return nil
	}
	return sc.cache.Ping(context.TODO())
}

func (sc *serverController) RabbitHealth() error {
	return sc.rabbit.Health()
}

func (sc *serverController) ArchiveHealth() error {
	if sc.archive == nil {
		return nil
	}
	return sc.archive.TestConnection(context.TODO())
}

func (sc *serverController) Checkers() map[string]monitoring.Checker {
	checkers := map[string]monitoring.Checker{
		"mongodb":  func(context.Context) error { return sc.DBHealth() },
		"rabbitmq": func(context.Context) error { return sc.RabbitHealth() },
	}
	if sc.cache != nil {
		checkers["redis"] = func(ctx context.Context) error { return sc.cache.Ping(ctx) }
	}
	if sc.archive != nil {
		checkers["s3"] = func(ctx context.Context) error { return sc.archive.TestConnection(ctx) }
	}
	return checkers
}
