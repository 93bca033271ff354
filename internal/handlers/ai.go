package handlers

import (
	"net/http"
	"strings"

	"vulnreport/internal/ai"
	"vulnreport/internal/authz"
	"vulnreport/internal/database"
	"vulnreport/internal/models"
	"vulnreport/internal/obs"

	"github.com/gin-gonic/gin"
)

// aiConfigFor loads the company's AI configuration, defaulting to
// disabled when none has been saved.
func aiConfigFor(companyID uint) models.AIConfig {
	var ac models.AIConfig
	if err := database.DB.Where("company_id = ?", companyID).First(&ac).Error; err != nil {
		ac = models.AIConfig{
			CompanyID:              companyID,
			AutoSuggestSeverity:    true,
			AutoSuggestCVSS:        true,
			AutoSuggestRemediation: true,
			AutoDetectSimilar:      true,
			AutoGenerateSummary:    true,
		}
	}
	return ac
}

func ShowAIConfig(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionConfig, authz.Resource{Kind: "ai", CompanyID: company.ID}) {
		forbid(c)
		return
	}

	render(c, http.StatusOK, "ai_config.html", gin.H{
		"company": company,
		"config":  aiConfigFor(company.ID),
		"error":   "",
	})
}

func SaveAIConfig(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionConfig, authz.Resource{Kind: "ai", CompanyID: company.ID}) {
		forbid(c)
		return
	}

	ac := aiConfigFor(company.ID)
	if key := strings.TrimSpace(c.PostForm("api_key")); key != "" {
		ac.APIKey = key
	}
	ac.AIEnabled = c.PostForm("ai_enabled") != ""
	ac.AutoSuggestSeverity = c.PostForm("auto_suggest_severity") != ""
	ac.AutoSuggestCVSS = c.PostForm("auto_suggest_cvss") != ""
	ac.AutoSuggestRemediation = c.PostForm("auto_suggest_remediation") != ""
	ac.AutoDetectSimilar = c.PostForm("auto_detect_similar") != ""
	ac.AutoGenerateSummary = c.PostForm("auto_generate_summary") != ""

	if ac.AIEnabled && ac.APIKey == "" {
		render(c, http.StatusBadRequest, "ai_config.html", gin.H{
			"company": company, "config": ac, "error": "An API key is required to enable the advisor",
		})
		return
	}

	if err := database.DB.Save(&ac).Error; err != nil {
		render(c, http.StatusInternalServerError, "ai_config.html", gin.H{
			"company": company, "config": ac, "error": "Failed to save AI configuration",
		})
		return
	}

	audit(sub, "ai", company.ID, "config", "Updated AI configuration")
	c.Redirect(http.StatusFound, "/ai/config")
}

// assistant builds the advisor for the selected company, enforcing the
// action through the policy and the per-company enable flag.
func assistant(c *gin.Context, action authz.Action) (*ai.Assistant, models.AIConfig, uint, bool) {
	sub, ok := subject(c)
	if !ok {
		return nil, models.AIConfig{}, 0, false
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return nil, models.AIConfig{}, 0, false
	}
	if !authz.Authorize(sub, action, authz.Resource{Kind: "ai", CompanyID: company.ID}) {
		forbid(c)
		return nil, models.AIConfig{}, 0, false
	}

	ac := aiConfigFor(company.ID)
	if !ac.AIEnabled || ac.APIKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "The AI advisor is not enabled for this company"})
		return nil, ac, company.ID, false
	}
	return ai.NewAssistant(ai.NewClient(ac.APIKey)), ac, company.ID, true
}

func aiRespond(c *gin.Context, operation string, res ai.Result) {
	obs.AICalls.WithLabelValues(operation, obs.AIOutcome(res.Success)).Inc()
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, res)
}

// AIAnalyze returns structured suggestions for a draft finding.
func AIAnalyze(c *gin.Context) {
	helper, _, _, ok := assistant(c, authz.ActionEdit)
	if !ok {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "A description is required"})
		return
	}

	aiRespond(c, "analyze", helper.Analyze(c.Request.Context(), req.Title, req.Description))
}

// AIDetectSimilar compares a draft against the company's existing titles.
func AIDetectSimilar(c *gin.Context) {
	helper, ac, companyID, ok := assistant(c, authz.ActionEdit)
	if !ok {
		return
	}
	if !ac.AutoDetectSimilar {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Similarity detection is disabled"})
		return
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "A description is required"})
		return
	}

	var titles []string
	database.DB.Model(&models.Vulnerability{}).
		Where("company_id = ?", companyID).
		Order("created_at desc").
		Limit(10).
		Pluck("title", &titles)

	aiRespond(c, "similar", helper.DetectSimilar(c.Request.Context(), req.Description, titles))
}

// AISummary writes an executive summary over the company's findings.
func AISummary(c *gin.Context) {
	helper, ac, companyID, ok := assistant(c, authz.ActionView)
	if !ok {
		return
	}
	if !ac.AutoGenerateSummary {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Summary generation is disabled"})
		return
	}

	var vulns []models.Vulnerability
	scopedVulns(companyID).Order(severityOrder).Find(&vulns)

	summaries := make([]ai.VulnSummary, 0, len(vulns))
	for _, v := range vulns {
		summaries = append(summaries, ai.VulnSummary{
			Title:       v.Title,
			Severity:    string(v.Severity),
			Description: v.Description,
		})
	}

	aiRespond(c, "summary", helper.ExecutiveSummary(c.Request.Context(), summaries))
}

// AIRemediation suggests remediation text for a vulnerability type.
func AIRemediation(c *gin.Context) {
	helper, _, _, ok := assistant(c, authz.ActionEdit)
	if !ok {
		return
	}

	var req struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "A description is required"})
		return
	}

	aiRespond(c, "remediation", helper.SuggestRemediation(c.Request.Context(), req.Type, req.Description))
}

// AITitle generates a technical title from a description.
func AITitle(c *gin.Context) {
	helper, _, _, ok := assistant(c, authz.ActionEdit)
	if !ok {
		return
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "A description is required"})
		return
	}

	aiRespond(c, "title", helper.GenerateTitle(c.Request.Context(), req.Description))
}

// AITest verifies the configured API key end to end.
func AITest(c *gin.Context) {
	helper, _, _, ok := assistant(c, authz.ActionConfig)
	if !ok {
		return
	}
	aiRespond(c, "test", helper.TestConnection(c.Request.Context()))
}

// AIModels lists the generation-capable models the key can access.
func AIModels(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionConfig, authz.Resource{Kind: "ai", CompanyID: company.ID}) {
		forbid(c)
		return
	}

	ac := aiConfigFor(company.ID)
	if ac.APIKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "An API key is required"})
		return
	}

	client := ai.NewClient(ac.APIKey)
	infos, err := client.ListModels(c.Request.Context())
	if err != nil {
		res := ai.Failure(err)
		obs.AICalls.WithLabelValues("models", "failure").Inc()
		c.JSON(http.StatusBadGateway, res)
		return
	}

	obs.AICalls.WithLabelValues("models", "success").Inc()
	names := make([]string, 0, len(infos))
	for _, m := range infos {
		names = append(names, m.Name)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "models": names})
}
