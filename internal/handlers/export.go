package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"vulnreport/internal/authz"
	"vulnreport/internal/models"

	"github.com/gin-gonic/gin"
)

// exportVulns loads the selected company's findings for export.
func exportVulns(c *gin.Context) ([]models.Vulnerability, bool) {
	sub, ok := subject(c)
	if !ok {
		return nil, false
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return nil, false
	}
	if !authz.Authorize(sub, authz.ActionExport, authz.Resource{Kind: "vulnerability", CompanyID: company.ID}) {
		forbid(c)
		return nil, false
	}

	var vulns []models.Vulnerability
	scopedVulns(company.ID).Order(severityOrder).Find(&vulns)
	return vulns, true
}

type vulnExport struct {
	ID          uint     `json:"id"`
	Title       string   `json:"title"`
	Severity    string   `json:"severity"`
	Status      string   `json:"status"`
	CVSS        *float64 `json:"cvss"`
	Company     string   `json:"company"`
	Description string   `json:"description"`
	Impact      string   `json:"impact"`
	Likelihood  string   `json:"likelihood"`
	Remediation string   `json:"remediation"`
	References  string   `json:"references"`
	CreatedAt   string   `json:"created_at"`
}

func exportRecord(v models.Vulnerability) vulnExport {
	return vulnExport{
		ID:          v.ID,
		Title:       v.Title,
		Severity:    string(v.Severity),
		Status:      string(v.Status),
		CVSS:        v.CVSS,
		Company:     v.CompanyName,
		Description: v.Description,
		Impact:      v.Impact,
		Likelihood:  v.Likelihood,
		Remediation: v.Remediation,
		References:  v.References,
		CreatedAt:   v.CreatedAt.Format(time.RFC3339),
	}
}

// ExportJSON streams the findings as a JSON array download.
func ExportJSON(c *gin.Context) {
	vulns, ok := exportVulns(c)
	if !ok {
		return
	}

	records := make([]vulnExport, 0, len(vulns))
	for _, v := range vulns {
		records = append(records, exportRecord(v))
	}

	c.Header("Content-Disposition", `attachment; filename="vulnerabilities.json"`)
	c.JSON(http.StatusOK, records)
}

// ExportCSV streams the findings as a CSV download.
func ExportCSV(c *gin.Context) {
	vulns, ok := exportVulns(c)
	if !ok {
		return
	}

	c.Header("Content-Disposition", `attachment; filename="vulnerabilities.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "title", "severity", "status", "cvss", "company", "description", "impact", "likelihood", "remediation", "references", "created_at"})
	for _, v := range vulns {
		cvss := ""
		if v.CVSS != nil {
			cvss = fmt.Sprintf("%.1f", *v.CVSS)
		}
		_ = w.Write([]string{
			fmt.Sprintf("%d", v.ID),
			v.Title,
			string(v.Severity),
			string(v.Status),
			cvss,
			v.CompanyName,
			v.Description,
			v.Impact,
			v.Likelihood,
			v.Remediation,
			v.References,
			v.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
}
