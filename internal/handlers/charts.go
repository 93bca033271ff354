package handlers

import (
	"net/http"

	"vulnreport/internal/authz"
	"vulnreport/internal/chart"
	"vulnreport/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// chartTally buckets the selected company's findings for the chart
// endpoints.
func chartTally(c *gin.Context) (chart.Tally, bool) {
	sub, ok := subject(c)
	if !ok {
		return chart.Tally{}, false
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return chart.Tally{}, false
	}
	if !authz.Authorize(sub, authz.ActionView, authz.Resource{Kind: "vulnerability", CompanyID: company.ID}) {
		forbid(c)
		return chart.Tally{}, false
	}

	var vulns []models.Vulnerability
	scopedVulns(company.ID).Find(&vulns)
	return chart.TallyFrom(vulns), true
}

// SeverityChartPNG serves the severity donut as a raster image.
func SeverityChartPNG(c *gin.Context) {
	tally, ok := chartTally(c)
	if !ok {
		return
	}

	png, err := chart.RenderPNG(tally)
	if err != nil {
		zap.L().Error("chart render failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to render chart")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// SeverityChartSVG serves the severity donut as a vector image.
func SeverityChartSVG(c *gin.Context) {
	tally, ok := chartTally(c)
	if !ok {
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/svg+xml", chart.RenderSVG(tally))
}
