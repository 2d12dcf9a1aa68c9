package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := gin.Default()

	if len(s.config.CORS.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.CORS.AllowedOrigins,
			AllowMethods:     s.config.CORS.AllowedMethods,
			AllowHeaders:     s.config.CORS.AllowedHeaders,
			AllowCredentials: s.config.CORS.AllowCredentials,
			MaxAge:           time.Duration(s.config.CORS.MaxAge) * time.Second,
		}))
	}

	r.GET("/health", s.healthHandler)
	r.GET("/online", s.onlineHandler)
	r.GET("/ready", s.readyHandler)

	shows := r.Group("/shows")
	{
		shows.GET("", s.listShowsHandler)
		shows.GET("/search", s.searchShowsHandler)
		shows.GET("/summaries", s.showSummariesHandler)
		shows.GET("/:id", s.getShowHandler)
	}

	admin := r.Group("/", s.AdminMiddleware())
	{
		admin.POST("/imports", s.startImportHandler)
		admin.POST("/start_get_shows", s.startImportHandler)
		admin.GET("/imports", s.listImportsHandler)
		admin.GET("/imports/:id", s.importStatusHandler)
		admin.GET("/import_status", s.importStatusHandler)
		admin.POST("/imports/:id/complete", s.completeImportHandler)
		admin.GET("/imports/pages/:page", s.archivedPageHandler)

		admin.POST("/updates", s.updatesHandler)
		admin.POST("/update_shows_manually", s.updatesHandler)

		admin.POST("/retry_operations", s.retryOperationsHandler)
		admin.GET("/deadletters", s.deadLettersHandler)
		admin.POST("/deadletters/:queue/replay", s.replayDeadLettersHandler)
		admin.GET("/freshness", s.freshnessHandler)
	}

	return r
}
