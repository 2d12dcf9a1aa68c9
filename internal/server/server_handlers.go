package server

import (
	"net/http"
	"showservice/internal/model"

	"github.com/gin-gonic/gin"
)

func (s *Server) healthHandler(c *gin.Context) {
	summary := s.oc.HealthSummary(c.Request.Context())

	status := http.StatusOK
	if summary.OverallHealth != model.HealthHealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":    summary.OverallHealth,
		"timestamp": summary.LastCheck,
		"details":   summary,
	})
}

func (s *Server) readyHandler(c *gin.Context) {
	dbErr := s.sc.DBHealth()
	cacheErr := s.sc.CacheHealth()
	rabbitErr := s.sc.RabbitHealth()
	archiveErr := s.sc.ArchiveHealth()

	res := gin.H{
		"database": dbErr == nil,
		"cache":    cacheErr == nil,
		"rabbit":   rabbitErr == nil,
		"archive":  archiveErr == nil,
	}

	if dbErr != nil || rabbitErr != nil {
		c.JSON(http.StatusServiceUnavailable, res)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) onlineHandler(c *gin.Context) {
	online := s.sc.Online()

	c.String(http.StatusOK, online)
}

func (s *Server) freshnessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.oc.CheckDataFreshness(c.Request.Context()))
}
