// Package api exposes the advisory service and the cache admin surface
// over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vulnwatch/vulnwatch/internal/advisory"
	"github.com/vulnwatch/vulnwatch/internal/cache"
	"github.com/vulnwatch/vulnwatch/internal/catalog"
	"github.com/vulnwatch/vulnwatch/internal/core"
	"github.com/vulnwatch/vulnwatch/internal/logger"
)

// Server wires the HTTP routes to the advisory service, the catalog
// manager and the cache store.
type Server struct {
	service *advisory.Service
	catalog *catalog.Manager
	store   *cache.Store
	log     *logger.Logger
}

func NewServer(service *advisory.Service, cat *catalog.Manager, store *cache.Store, log *logger.Logger) *Server {
	return &Server{
		service: service,
		catalog: cat,
		store:   store,
		log:     log.WithComponent("api"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(s.log))

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)

	router.GET("/cves", s.handleCVEs)
	router.GET("/cves/recent", s.handleRecentCVEs)
	router.GET("/cves/search", s.handleSearchCVEs)
	router.GET("/cve/:cve_id", s.handleCVEByID)
	router.GET("/cve/description/:cve_id", s.handleDescription)

	router.GET("/kev/all", s.handleKEVAll)
	router.GET("/kev/recent", s.handleKEVRecent)
	router.GET("/kev/range", s.handleKEVRange)
	router.GET("/kev/search", s.handleKEVSearch)
	router.GET("/kev/:cve_id", s.handleKEVByID)

	router.GET("/stats/global", s.handleGlobalStats)
	router.GET("/stats/week", s.handleWeekStats)

	router.DELETE("/cache/clear", s.handleCacheClear)
	router.GET("/cache/keys", s.handleCacheKeys)
	router.GET("/cache/info", s.handleCacheInfo)

	return router
}

// fail maps the error taxonomy onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, core.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, core.ErrCacheUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
