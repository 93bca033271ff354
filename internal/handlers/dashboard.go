package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"vulnreport/internal/chart"
	"vulnreport/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

const pageSize = 10

// severityOrder ranks findings for listing: critical first, unknown
// values last. The synonym spellings rank with Informative.
const severityOrder = `CASE LOWER(severity)
	WHEN 'critical' THEN 1
	WHEN 'high' THEN 2
	WHEN 'medium' THEN 3
	WHEN 'low' THEN 4
	WHEN 'informative' THEN 5
	WHEN 'informativa' THEN 5
	WHEN 'info' THEN 5
	ELSE 6 END, created_at DESC`

var severityCaser = cases.Title(language.English)

// canonicalSeverity folds a user-supplied filter value onto the stored
// spelling, so "?severity=high" matches "High" and the select box stays
// sticky.
func canonicalSeverity(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return severityCaser.String(strings.ToLower(raw))
}

// Dashboard lists the selected company's findings with filtering,
// severity-ranked ordering and pagination.
func Dashboard(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return
	}

	q := strings.TrimSpace(c.Query("q"))
	severity := canonicalSeverity(c.Query("severity"))
	status := strings.TrimSpace(c.Query("status"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	// each finisher gets its own chain: gorm finishers mutate the
	// statement, so reusing one *gorm.DB would leak ORDER/LIMIT/OFFSET
	// from the page query into the tally query
	filtered := func() *gorm.DB {
		query := scopedVulns(company.ID)
		if q != "" {
			query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+q+"%")
		}
		if severity != "" {
			query = query.Where("LOWER(severity) = LOWER(?)", severity)
		}
		if status != "" {
			query = query.Where("status = ?", status)
		}
		return query
	}

	var total int64
	filtered().Count(&total)

	var vulns []models.Vulnerability
	filtered().Order(severityOrder).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&vulns)

	// tally and status totals cover the whole filtered set, not just the
	// current page
	var all []models.Vulnerability
	filtered().Order("id").Find(&all)
	tally := chart.TallyFrom(all)

	var totalOpen, totalInProgress, totalClosed int
	for _, v := range all {
		switch v.Status {
		case models.StatusOpen:
			totalOpen++
		case models.StatusInProgress:
			totalInProgress++
		case models.StatusClosed:
			totalClosed++
		}
	}

	pages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		pages++
	}
	if pages < 1 {
		pages = 1
	}

	render(c, http.StatusOK, "dashboard.html", gin.H{
		"company":         company,
		"vulns":           vulns,
		"total":           total,
		"totalOpen":       totalOpen,
		"totalInProgress": totalInProgress,
		"totalClosed":     totalClosed,
		"tally":           tally,
		"counts":          tally.Counts(),
		"labels":          chart.Labels,
		"page":            page,
		"pages":           pages,
		"q":               q,
		"severity":        severity,
		"status":          status,
		"severities":      models.Severities,
	})
}
