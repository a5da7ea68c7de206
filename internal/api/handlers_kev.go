package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vulnwatch/vulnwatch/internal/catalog"
)

func statusFor(count int) string {
	if count > 0 {
		return "success"
	}
	return "empty"
}

func (s *Server) handleKEVAll(c *gin.Context) {
	force, _ := boolQuery(c, "force_refresh")

	snapshot, err := s.catalog.Fetch(c.Request.Context(), force)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          statusFor(len(snapshot.Vulnerabilities)),
		"count":           len(snapshot.Vulnerabilities),
		"dateReleased":    snapshot.DateReleased,
		"catalogVersion":  snapshot.CatalogVersion,
		"vulnerabilities": snapshot.Vulnerabilities,
	})
}

func (s *Server) handleKEVRecent(c *gin.Context) {
	days := intQuery(c, "days", 7)

	snapshot, err := s.catalog.Fetch(c.Request.Context(), false)
	if err != nil {
		fail(c, err)
		return
	}

	recent := catalog.Recent(snapshot, days)
	c.JSON(http.StatusOK, gin.H{
		"status":          statusFor(len(recent)),
		"days":            days,
		"count":           len(recent),
		"vulnerabilities": recent,
	})
}

func (s *Server) handleKEVRange(c *gin.Context) {
	start, err := catalog.ParseDate(c.Query("start"))
	if err != nil {
		fail(c, err)
		return
	}
	end, err := catalog.ParseDate(c.Query("end"))
	if err != nil {
		fail(c, err)
		return
	}

	snapshot, err := s.catalog.Fetch(c.Request.Context(), false)
	if err != nil {
		fail(c, err)
		return
	}

	matched, err := catalog.InRange(snapshot, start, end)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          statusFor(len(matched)),
		"start":           c.Query("start"),
		"end":             c.Query("end"),
		"count":           len(matched),
		"vulnerabilities": matched,
	})
}

func (s *Server) handleKEVSearch(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 50)
	if limit > 100 {
		limit = 100
	}

	snapshot, err := s.catalog.Fetch(c.Request.Context(), false)
	if err != nil {
		fail(c, err)
		return
	}

	matched, err := catalog.Search(snapshot, catalog.SearchFilters{
		Start:   c.Query("start"),
		End:     c.Query("end"),
		CVEID:   c.Query("cve_id"),
		Vendor:  c.Query("vendor"),
		Product: c.Query("product"),
	})
	if err != nil {
		fail(c, err)
		return
	}

	paged, total := catalog.Paginate(matched, page, limit)
	c.JSON(http.StatusOK, gin.H{
		"status":  statusFor(len(paged)),
		"page":    page,
		"limit":   limit,
		"total":   total,
		"count":   len(paged),
		"results": paged,
	})
}

func (s *Server) handleKEVByID(c *gin.Context) {
	cveID := strings.ToUpper(strings.TrimSpace(c.Param("cve_id")))

	snapshot, err := s.catalog.Fetch(c.Request.Context(), false)
	if err != nil {
		fail(c, err)
		return
	}

	matches := catalog.Lookup(snapshot, cveID)
	c.JSON(http.StatusOK, gin.H{
		"status":         statusFor(len(matches)),
		"catalogVersion": snapshot.CatalogVersion,
		"dateReleased":   snapshot.DateReleased,
		"count":          len(matches),
		"matches":        matches,
	})
}
