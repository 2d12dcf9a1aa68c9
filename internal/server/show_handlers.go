package server

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"showservice/internal/database"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	searchDefaultLimit  = 20
	searchMaxLimit      = 50
	listingDefaultLimit = 100
	listingMaxLimit     = 1000
)

func (s *Server) getShowHandler(c *gin.Context) {
	showID, err := strconv.Atoi(c.Param("id"))
	if err != nil || showID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "show id must be a positive integer"})
		return
	}

	show, err := s.shc.GetShow(c.Request.Context(), showID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "show not found"})
			return
		}
		log.Error().Err(err).Int("showID", showID).Msg("Failed to get show")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, show)
}

func (s *Server) searchShowsHandler(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	limit, offset, err := pageWindow(c, searchDefaultLimit, searchMaxLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit or offset parameter"})
		return
	}

	results, err := s.shc.SearchShows(c.Request.Context(), query, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Failed to search shows")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	body, err := json.Marshal(gin.H{
		"query":   query,
		"limit":   limit,
		"offset":  offset,
		"count":   len(results),
		"results": results,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	etag := bodyETag(body)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("ETag", etag)
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "application/json", body)
}

func (s *Server) showSummariesHandler(c *gin.Context) {
	limit, offset, err := pageWindow(c, listingDefaultLimit, listingMaxLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summaries, err := s.shc.ListShowSummaries(c.Request.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list show summaries")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"offset": offset,
		"limit":  limit,
		"count":  len(summaries),
		"shows":  summaries,
	})
}

func (s *Server) listShowsHandler(c *gin.Context) {
	limit, offset, err := pageWindow(c, listingDefaultLimit, listingMaxLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shows, err := s.shc.ListShows(c.Request.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list shows")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"offset": offset,
		"limit":  limit,
		"count":  len(shows),
		"shows":  shows,
	})
}

// bodyETag is a quoted content hash; weak caching only, not a security boundary
func bodyETag(body []byte) string {
	sum := md5.Sum(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
