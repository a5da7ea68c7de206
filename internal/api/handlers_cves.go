package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vulnwatch/vulnwatch/internal/advisory"
)

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "vulnwatch CVE advisory API",
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	cacheStatus := "connected"
	if err := s.store.Ping(c.Request.Context()); err != nil {
		cacheStatus = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"cache":     cacheStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCVEs(c *gin.Context) {
	limit := intQuery(c, "limit", 5)
	days := intQuery(c, "days", advisory.DefaultDays)

	result, err := s.service.Recent(c.Request.Context(), days, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRecentCVEs(c *gin.Context) {
	limit := intQuery(c, "limit", advisory.DefaultLimit)
	days := intQuery(c, "days", advisory.DefaultDays)

	result, err := s.service.Recent(c.Request.Context(), days, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSearchCVEs(c *gin.Context) {
	params := advisory.SearchParams{
		Page:      intQuery(c, "page", 1),
		Limit:     intQuery(c, "limit", 50),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Keyword:   c.Query("keyword"),
		Severity:  c.Query("severity"),
		Source:    c.Query("source"),
	}
	if v, ok := boolQuery(c, "has_kev"); ok {
		params.HasCatalog = &v
	}
	if v, ok := boolQuery(c, "has_exploit"); ok {
		params.HasExploit = &v
	}

	result, err := s.service.Search(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCVEByID(c *gin.Context) {
	cveID := strings.ToUpper(strings.TrimSpace(c.Param("cve_id")))

	result, err := s.service.ByID(c.Request.Context(), cveID)
	if err != nil {
		fail(c, err)
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no CVE found for " + cveID})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":       1,
		"cve_id":      cveID,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
		"cve":         result,
	})
}

func (s *Server) handleDescription(c *gin.Context) {
	cveID := strings.ToUpper(strings.TrimSpace(c.Param("cve_id")))

	description, err := s.service.Description(c.Request.Context(), cveID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cve_id":      cveID,
		"description": description,
	})
}

func (s *Server) handleGlobalStats(c *gin.Context) {
	stats, err := s.service.Global(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"total_cves": stats.TotalCVEs,
		"total_kev":  stats.TotalKEV,
	})
}

func (s *Server) handleWeekStats(c *gin.Context) {
	days := intQuery(c, "days", 7)

	stats, err := s.service.Window(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func boolQuery(c *gin.Context, name string) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
