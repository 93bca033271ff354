package server

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"vulnreport/internal/config"
	"vulnreport/internal/handlers"
	"vulnreport/internal/middleware"
	"vulnreport/internal/models"
	"vulnreport/internal/obs"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func severityClass(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return "sev-critical"
	case models.SeverityHigh:
		return "sev-high"
	case models.SeverityMedium:
		return "sev-medium"
	case models.SeverityLow:
		return "sev-low"
	default:
		return "sev-informative"
	}
}

func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.Default()

	handlers.Setup(cfg)

	r.Static("/static", cfg.StaticDir)

	r.SetFuncMap(template.FuncMap{
		"severityClass": severityClass,
		"add":           func(a, b int) int { return a + b },
		"sub":           func(a, b int) int { return a - b },
		"deref": func(p *uint) uint {
			if p == nil {
				return 0
			}
			return *p
		},
		"fmtCVSS": func(v *float64) string {
			if v == nil {
				return "N/A"
			}
			return fmt.Sprintf("%.1f", *v)
		},
	})
	r.LoadHTMLGlob(filepath.Join(cfg.TemplatesDir, "*.html"))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("vulnreport_session", store))

	r.Use(middleware.InjectUser())

	// AUTH
	r.GET("/login", handlers.ShowLogin)
	r.POST("/login", handlers.Login)
	r.GET("/logout", handlers.Logout)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())

	// tenant selection precedes everything data-bearing
	auth.GET("/companies/select", handlers.ShowSelectCompany)
	auth.POST("/companies/select/:id", handlers.SelectCompany)

	// COMPANIES
	auth.GET("/companies", handlers.ListCompanies)
	auth.GET("/companies/new", handlers.ShowNewCompany)
	auth.POST("/companies/new", handlers.CreateCompany)
	auth.GET("/companies/:id/edit", handlers.ShowEditCompany)
	auth.POST("/companies/:id/edit", handlers.UpdateCompany)
	auth.POST("/companies/:id/delete",
		middleware.RequireRole(models.RoleAdmin),
		handlers.DeleteCompany,
	)

	// USERS — admin only
	auth.GET("/users", middleware.RequireRole(models.RoleAdmin), handlers.ListUsers)
	auth.GET("/users/new", middleware.RequireRole(models.RoleAdmin), handlers.ShowNewUser)
	auth.POST("/users/new", middleware.RequireRole(models.RoleAdmin), handlers.CreateUser)
	auth.GET("/users/:id/edit", middleware.RequireRole(models.RoleAdmin), handlers.ShowEditUser)
	auth.POST("/users/:id/edit", middleware.RequireRole(models.RoleAdmin), handlers.UpdateUser)
	auth.POST("/users/:id/delete", middleware.RequireRole(models.RoleAdmin), handlers.DeleteUser)

	auth.GET("/profile", handlers.ShowProfile)
	auth.POST("/profile/password", handlers.ChangePassword)

	// AUDIT — admin only
	auth.GET("/audit", middleware.RequireRole(models.RoleAdmin), handlers.ListAudit)

	tenant := auth.Group("/")
	tenant.Use(middleware.RequireCompany())

	// DASHBOARD
	tenant.GET("/", handlers.Dashboard)

	// VULNERABILITIES
	tenant.GET("/vulnerabilities/new", handlers.ShowNewVulnerability)
	tenant.POST("/vulnerabilities/new", handlers.CreateVulnerability)
	tenant.GET("/vulnerabilities/:id", handlers.ShowVulnerability)
	tenant.GET("/vulnerabilities/:id/edit", handlers.ShowEditVulnerability)
	tenant.POST("/vulnerabilities/:id/edit", handlers.UpdateVulnerability)
	tenant.POST("/vulnerabilities/:id/delete",
		middleware.RequireRole(models.RoleAdmin),
		handlers.DeleteVulnerability,
	)
	tenant.POST("/vulnerabilities/:id/access", handlers.GrantVulnerabilityAccess)
	tenant.POST("/vulnerabilities/:id/access/:userID/delete", handlers.RevokeVulnerabilityAccess)
	tenant.GET("/vulnerabilities/:id/pdf", handlers.ExportVulnerabilityPDF)

	// COMMENTS
	tenant.POST("/vulnerabilities/:id/comments", handlers.AddComment)
	tenant.POST("/comments/:id/delete", handlers.DeleteComment)
	tenant.POST("/comments/:id/like", handlers.ToggleLike)

	// REPORTS
	tenant.GET("/reports/config", handlers.ShowReportConfig)
	tenant.POST("/reports/config", handlers.SaveReportConfig)
	tenant.GET("/reports/classic.pdf", handlers.ExportClassicReport)
	tenant.GET("/reports/executive.pdf", handlers.ExportExecutiveReport)
	tenant.GET("/reports/technical.pdf", handlers.ExportTechnicalReport)

	// CHARTS
	tenant.GET("/charts/severity.png", handlers.SeverityChartPNG)
	tenant.GET("/charts/severity.svg", handlers.SeverityChartSVG)

	// EXPORT
	tenant.GET("/export/json", handlers.ExportJSON)
	tenant.GET("/export/csv", handlers.ExportCSV)

	// UPLOADS
	tenant.POST("/uploads", handlers.UploadImage)

	// AI ADVISOR
	tenant.GET("/ai/config", handlers.ShowAIConfig)
	tenant.POST("/ai/config", handlers.SaveAIConfig)
	tenant.GET("/ai/models", handlers.AIModels)
	tenant.POST("/ai/analyze", handlers.AIAnalyze)
	tenant.POST("/ai/similar", handlers.AIDetectSimilar)
	tenant.POST("/ai/summary", handlers.AISummary)
	tenant.POST("/ai/remediation", handlers.AIRemediation)
	tenant.POST("/ai/title", handlers.AITitle)
	tenant.POST("/ai/test", handlers.AITest)

	// HEALTHCHECK + METRICS
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(obs.Handler()))

	return r
}
