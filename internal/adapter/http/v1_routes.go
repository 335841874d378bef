package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/couchcryptid/swiss-hydro-service/internal/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/stations", s.handleStations)
		v1.GET("/stations/data", s.handleStationData)
		v1.GET("/station/:station", s.handleStation)
		v1.GET("/station/:station/*path", s.handleStation)
		v1.GET("/cache/clear", s.handleCacheClear)
		v1.POST("/cache/clear", s.handleCacheClear)
	}
}

func (s *Server) handleStations(c *gin.Context) {
	c.JSON(http.StatusOK, s.queries.Stations())
}

func (s *Server) handleStationData(c *gin.Context) {
	c.JSON(http.StatusOK, s.queries.StationData())
}

// handleStation serves the station and every narrower field below it, e.g.
// /api/v1/station/2135/parameters/level/mean1h.
func (s *Server) handleStation(c *gin.Context) {
	var path []string
	if p := strings.Trim(c.Param("path"), "/"); p != "" {
		path = strings.Split(p, "/")
	}

	v, err := s.queries.Resolve(c.Param("station"), path...)
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleCacheClear(c *gin.Context) {
	s.cache.Invalidate()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func writeLookupError(c *gin.Context, err error) {
	var cnf *domain.CategoryNotFoundError
	switch {
	case errors.Is(err, domain.ErrStationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Invalid station id"})
	case errors.As(err, &cnf):
		c.JSON(http.StatusNotFound, gin.H{"message": "Station does not provide " + string(cnf.Category) + " measurements"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Unknown field"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	}
}
