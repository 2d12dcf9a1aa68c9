package app

import (
	"context"
	"fmt"
	"os"
	"showservice/internal/aws"
	"showservice/internal/cache"
	"showservice/internal/config"
	"showservice/internal/controller"
	"showservice/internal/database"
	"showservice/internal/monitoring"
	"showservice/internal/orchestrator"
	"showservice/internal/rabbitmq"
	"showservice/internal/retry"
	"showservice/pkg/tvmaze"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App holds every wired component of the service
type App struct {
	Config *config.Config

	DB      database.Database
	Cache   cache.Cache // nil when redis is not configured
	Rabbit  rabbitmq.Client
	Archive aws.PageArchive // nil when blob storage is disabled
	Catalog *tvmaze.Client

	Tracker     *monitoring.Tracker
	Coordinator *retry.Coordinator
	Importer    *orchestrator.ShowImporter
	Registry    *orchestrator.Registry
	Reporter    *monitoring.Reporter

	Server     controller.ServerController
	Imports    controller.ImportController
	Operations controller.OperationsController
	Shows      controller.ShowController
}

// LoadConfig reads an optional .env file and then the JSON config
func LoadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}
	return config.LoadConfig(path)
}

func SetupLogger(config config.LoggingConfig) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	switch config.Format {
	case "json":
		// JSON is the default for zerolog
	case "console", "combined":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	log.Logger = log.With().Timestamp().Logger()
}

// New connects to every backing service and wires the pipeline
func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}
	a.DB = db

	if cfg.Redis.Address != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		a.Cache = redisCache
	}

	rabbit, err := rabbitmq.NewClientFromConfig(cfg.RabbitMQ)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}
	a.Rabbit = rabbit

	if cfg.AWS.Enabled {
		archive, err := aws.NewPageArchive(cfg.AWS.AccessKey, cfg.AWS.SecretKey, cfg.AWS.Bucket, cfg.AWS.Region, cfg.AWS.PagePrefix)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize page archive: %w", err)
		}
		a.Archive = archive
	}

	cacheTTL := time.Duration(cfg.TVMaze.DefaultCacheTTL) * time.Second
	a.Catalog = tvmaze.New(cfg.TVMaze.BaseURL, cfg.TVMaze.RequestsPerMinute, time.Duration(cfg.TVMaze.TimeoutSeconds)*time.Second)
	if cfg.TVMaze.Cache && a.Cache != nil {
		a.Catalog.WithCache(a.Cache, cacheTTL)
	}

	a.Tracker = monitoring.NewTracker(db)
	a.Coordinator = retry.NewCoordinator(cfg, a.Tracker, rabbit)
	a.Importer = orchestrator.NewShowImporter(cfg, a.Catalog, db, rabbit, a.Tracker, a.Coordinator, a.Archive).WithShowCache(a.Cache)
	a.Registry = orchestrator.NewRegistry(a.Importer.Routes()...)

	a.Server = controller.NewServer(db, a.Cache, rabbit, a.Archive)
	a.Reporter = monitoring.NewReporter(a.Tracker, a.Server.Checkers())

	a.Imports = controller.NewImportController(a.Importer, a.Tracker, a.Archive)
	a.Operations = controller.NewOperationsController(a.Coordinator, a.Reporter, a.Tracker, cfg.Import.FreshnessMaxAgeDays)
	a.Shows = controller.NewShowController(db, a.Cache, cacheTTL)

	return a, nil
}

// UpdateSchedule builds the periodic catalog update sweep
func (a *App) UpdateSchedule() *orchestrator.UpdateSchedule {
	interval := time.Duration(a.Config.Import.UpdatesIntervalHours) * time.Hour
	maxAge := a.Config.Import.FreshnessMaxAgeDays

	return orchestrator.NewUpdateSchedule(a.Importer, interval, "day", func(ctx context.Context) {
		a.Tracker.CheckDataFreshness(ctx, maxAge)
	})
}

// Close releases every connection that was opened
func (a *App) Close() {
	if a.Catalog != nil {
		a.Catalog.Close()
	}
	if a.Rabbit != nil {
		if err := a.Rabbit.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close RabbitMQ client")
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis cache")
		}
	}
	if a.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.DB.Close(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to close MongoDB connection")
		}
	}
}
