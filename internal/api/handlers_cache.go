package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleCacheClear(c *gin.Context) {
	pattern := c.DefaultQuery("pattern", "*")

	removed, err := s.store.InvalidatePattern(c.Request.Context(), pattern)
	if err != nil {
		fail(c, err)
		return
	}
	s.log.Infow("Cache cleared", "pattern", pattern, "removed", removed)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"pattern": pattern,
		"removed": removed,
	})
}

func (s *Server) handleCacheKeys(c *gin.Context) {
	pattern := c.DefaultQuery("pattern", "*")

	keys, err := s.store.Keys(c.Request.Context(), pattern)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"pattern": pattern,
		"count":   len(keys),
		"keys":    keys,
	})
}

func (s *Server) handleCacheInfo(c *gin.Context) {
	info, err := s.store.Info(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"backend": info,
	})
}
