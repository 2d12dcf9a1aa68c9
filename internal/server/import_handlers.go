package server

import (
	"errors"
	"net/http"
	"showservice/internal/aws"
	"showservice/internal/controller"
	"showservice/internal/database"
	"showservice/internal/model"
	"showservice/internal/orchestrator"
	"showservice/internal/retry"
	"showservice/pkg/tvmaze"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (s *Server) startImportHandler(c *gin.Context) {
	page, err := queryInt(c, "page", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	estimated, err := queryInt(c, "estimated_pages", model.UnknownPageCount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	importID, err := s.ic.StartImport(c.Request.Context(), page, estimated)
	if err != nil {
		if errors.Is(err, orchestrator.ErrInvalidPage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Int("page", page).Msg("Failed to start import")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start import"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"import_id": importID,
		"page":      page,
		"message":   "Getting all shows, starting from page " + strconv.Itoa(page),
	})
}

func (s *Server) importStatusHandler(c *gin.Context) {
	importID := c.Param("id")
	if importID == "" {
		importID = c.Query("import_id")
	}
	if importID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "import_id is required"})
		return
	}

	run, err := s.ic.GetImportStatus(c.Request.Context(), importID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "import not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (s *Server) completeImportHandler(c *gin.Context) {
	importID := c.Param("id")
	status := model.ImportStatus(c.DefaultQuery("status", string(model.ImportCompleted)))

	run, err := s.ic.CompleteImport(c.Request.Context(), importID, status)
	switch {
	case errors.Is(err, controller.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "import not found"})
	case errors.Is(err, database.ErrImportFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "import": run})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, run)
	}
}

func (s *Server) listImportsHandler(c *gin.Context) {
	limit, _, err := pageWindow(c, 20, 100)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runs := s.ic.ListImports(c.Request.Context(), limit)
	c.JSON(http.StatusOK, gin.H{"count": len(runs), "imports": runs})
}

func (s *Server) archivedPageHandler(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a non-negative integer"})
		return
	}

	body, err := s.ic.GetArchivedPage(c.Request.Context(), page)
	switch {
	case errors.Is(err, controller.ErrArchiveDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, aws.ErrPageNotArchived):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Data(http.StatusOK, "application/json", body)
	}
}

func (s *Server) updatesHandler(c *gin.Context) {
	since := c.DefaultQuery("since", "day")
	if !tvmaze.ValidPeriod(since) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be 'day', 'week', or 'month'"})
		return
	}

	queued, err := s.ic.QueueUpdates(c.Request.Context(), since)
	if err != nil {
		log.Error().Err(err).Str("since", since).Msg("Failed to queue updates")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"since":  since,
		"queued": queued,
	})
}

func (s *Server) retryOperationsHandler(c *gin.Context) {
	raw := c.Query("operation_type")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "operation_type parameter is required"})
		return
	}

	op, ok := model.ParseOperationType(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": retry.ErrUnknownOperation.Error() + ": " + raw})
		return
	}

	maxAgeHours, err := queryInt(c, "max_age_hours", 24)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.oc.RetryFailedOperations(c.Request.Context(), op, maxAgeHours))
}

func (s *Server) deadLettersHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.oc.DeadLetterStatistics(c.Request.Context()))
}

func (s *Server) replayDeadLettersHandler(c *gin.Context) {
	max, err := queryInt(c, "max", 10)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queueName := c.Param("queue")
	replayed, err := s.oc.ReplayDeadLetters(c.Request.Context(), queueName, max)
	if err != nil {
		if errors.Is(err, retry.ErrUnknownQueue) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "replayed": replayed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"queue": queueName, "replayed": replayed})
}
