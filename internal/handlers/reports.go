package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"vulnreport/internal/authz"
	"vulnreport/internal/database"
	"vulnreport/internal/models"
	"vulnreport/internal/obs"
	"vulnreport/internal/report"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// reportConfigFor loads the company's report config, falling back to
// defaults when none has been saved yet.
func reportConfigFor(companyID uint) models.ReportConfig {
	var rc models.ReportConfig
	if err := database.DB.Where("company_id = ?", companyID).First(&rc).Error; err != nil {
		rc = models.ReportConfig{
			CompanyID:        companyID,
			TemplateName:     models.TemplateClassic,
			PrimaryColor:     "#01317d",
			SecondaryColor:   "#3b82f6",
			IncludeExecutive: true,
			IncludeTechnical: true,
		}
	}
	return rc
}

func ShowReportConfig(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionConfig, authz.Resource{Kind: "report", CompanyID: company.ID}) {
		forbid(c)
		return
	}

	render(c, http.StatusOK, "report_config.html", gin.H{
		"company": company,
		"config":  reportConfigFor(company.ID),
		"error":   "",
	})
}

func SaveReportConfig(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionConfig, authz.Resource{Kind: "report", CompanyID: company.ID}) {
		forbid(c)
		return
	}

	rc := reportConfigFor(company.ID)

	tmpl := models.ReportTemplate(c.PostForm("template_name"))
	switch tmpl {
	case models.TemplateClassic, models.TemplateExecutive, models.TemplateTechnical:
		rc.TemplateName = tmpl
	default:
		render(c, http.StatusBadRequest, "report_config.html", gin.H{
			"company": company, "config": rc, "error": "Unknown template",
		})
		return
	}

	rc.CoverBackgroundURL = strings.TrimSpace(c.PostForm("cover_background_url"))
	rc.PageBackgroundURL = strings.TrimSpace(c.PostForm("page_background_url"))
	rc.HeaderLogoURL = strings.TrimSpace(c.PostForm("header_logo_url"))
	if v := strings.TrimSpace(c.PostForm("primary_color")); v != "" {
		rc.PrimaryColor = v
	}
	if v := strings.TrimSpace(c.PostForm("secondary_color")); v != "" {
		rc.SecondaryColor = v
	}
	rc.IncludeExecutive = c.PostForm("include_executive") != ""
	rc.IncludeTechnical = c.PostForm("include_technical") != ""

	if err := database.DB.Save(&rc).Error; err != nil {
		render(c, http.StatusInternalServerError, "report_config.html", gin.H{
			"company": company, "config": rc, "error": "Failed to save report configuration",
		})
		return
	}

	audit(sub, "report", company.ID, "config", "Updated report configuration")
	c.Redirect(http.StatusFound, "/reports/config")
}

// reportContext loads everything a report build needs: the tenant, its
// ordered findings and the assembled options.
func reportContext(c *gin.Context) ([]models.Vulnerability, report.Options, models.ReportConfig, bool) {
	sub, ok := subject(c)
	if !ok {
		return nil, report.Options{}, models.ReportConfig{}, false
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return nil, report.Options{}, models.ReportConfig{}, false
	}
	if !authz.Authorize(sub, authz.ActionExport, authz.Resource{Kind: "report", CompanyID: company.ID}) {
		forbid(c)
		return nil, report.Options{}, models.ReportConfig{}, false
	}

	var vulns []models.Vulnerability
	scopedVulns(company.ID).Order(severityOrder).Find(&vulns)

	rc := reportConfigFor(company.ID)
	opts := report.Options{
		CompanyLabel: company.Name,
		PeriodStart:  strings.TrimSpace(c.Query("period_start")),
		PeriodEnd:    strings.TrimSpace(c.Query("period_end")),
		StaticDir:    cfg.StaticDir,
		Config:       &rc,
	}
	return vulns, opts, rc, true
}

func servePDF(c *gin.Context, variant string, pdf []byte, err error) {
	if err != nil {
		zap.L().Error("report build failed", zap.String("variant", variant), zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to generate report")
		return
	}
	obs.ReportsGenerated.WithLabelValues(variant).Inc()
	name := fmt.Sprintf("report-%s-%s.pdf", variant, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func ExportClassicReport(c *gin.Context) {
	vulns, opts, _, ok := reportContext(c)
	if !ok {
		return
	}
	pdf, err := report.BuildClassic(vulns, opts)
	servePDF(c, "classic", pdf, err)
}

func ExportExecutiveReport(c *gin.Context) {
	vulns, opts, rc, ok := reportContext(c)
	if !ok {
		return
	}
	if !rc.IncludeExecutive {
		c.String(http.StatusBadRequest, "the executive report is disabled for this company")
		return
	}
	pdf, err := report.BuildExecutive(vulns, opts)
	servePDF(c, "executive", pdf, err)
}

func ExportTechnicalReport(c *gin.Context) {
	vulns, opts, rc, ok := reportContext(c)
	if !ok {
		return
	}
	if !rc.IncludeTechnical {
		c.String(http.StatusBadRequest, "the technical report is disabled for this company")
		return
	}
	pdf, err := report.BuildTechnical(vulns, opts)
	servePDF(c, "technical", pdf, err)
}

// ExportVulnerabilityPDF renders one finding as a standalone document.
func ExportVulnerabilityPDF(c *gin.Context) {
	vuln, _, ok := loadVuln(c, authz.ActionExport)
	if !ok {
		return
	}

	rc := reportConfigFor(vuln.CompanyID)
	opts := report.Options{
		CompanyLabel: vuln.CompanyName,
		StaticDir:    cfg.StaticDir,
		Config:       &rc,
	}
	pdf, err := report.BuildVulnPDF(vuln, opts)
	servePDF(c, "single", pdf, err)
}
