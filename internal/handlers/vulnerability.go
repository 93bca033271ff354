package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"vulnreport/internal/authz"
	"vulnreport/internal/database"
	"vulnreport/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// loadVuln fetches a finding and checks the given action against it.
// Grants are honored through the policy: a granted user may open the
// detail view of a finding outside their company.
func loadVuln(c *gin.Context, action authz.Action) (models.Vulnerability, authz.Subject, bool) {
	var vuln models.Vulnerability

	sub, ok := subject(c)
	if !ok {
		return vuln, sub, false
	}
	id, ok := paramID(c, "id")
	if !ok {
		return vuln, sub, false
	}

	if err := database.DB.Preload("Company").First(&vuln, id).Error; err != nil {
		c.String(http.StatusNotFound, "vulnerability not found")
		return vuln, sub, false
	}

	res := authz.Resource{Kind: "vulnerability", CompanyID: vuln.CompanyID, VulnerabilityID: vuln.ID}
	if !authz.Authorize(sub, action, res) {
		forbid(c)
		return vuln, sub, false
	}
	return vuln, sub, true
}

func ShowNewVulnerability(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionCreate, authz.Resource{Kind: "vulnerability", CompanyID: company.ID}) {
		forbid(c)
		return
	}
	render(c, http.StatusOK, "vuln_new.html", gin.H{
		"company":    company,
		"severities": models.Severities,
		"error":      "",
	})
}

func CreateVulnerability(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	company, ok := selectedCompany(c, sub)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionCreate, authz.Resource{Kind: "vulnerability", CompanyID: company.ID}) {
		forbid(c)
		return
	}

	vuln, errMsg := vulnFromForm(c)
	if errMsg != "" {
		render(c, http.StatusBadRequest, "vuln_new.html", gin.H{
			"company": company, "severities": models.Severities, "error": errMsg,
		})
		return
	}
	vuln.CompanyID = company.ID
	vuln.CompanyName = company.Name

	if err := database.DB.Create(&vuln).Error; err != nil {
		render(c, http.StatusInternalServerError, "vuln_new.html", gin.H{
			"company": company, "severities": models.Severities, "error": "Failed to save vulnerability",
		})
		return
	}

	audit(sub, "vulnerability", vuln.ID, "create", "Created vulnerability: "+vuln.Title)
	c.Redirect(http.StatusFound, "/vulnerabilities/"+strconv.Itoa(int(vuln.ID)))
}

func ShowVulnerability(c *gin.Context) {
	vuln, sub, ok := loadVuln(c, authz.ActionView)
	if !ok {
		return
	}

	var comments []models.Comment
	database.DB.Preload("User").
		Where("vulnerability_id = ?", vuln.ID).
		Order("created_at asc").
		Find(&comments)

	likes := map[uint]int64{}
	liked := map[uint]bool{}
	for _, cm := range comments {
		var n int64
		database.DB.Model(&models.CommentLike{}).Where("comment_id = ?", cm.ID).Count(&n)
		likes[cm.ID] = n
		var mine int64
		database.DB.Model(&models.CommentLike{}).
			Where("comment_id = ? AND user_id = ?", cm.ID, sub.UserID).
			Count(&mine)
		liked[cm.ID] = mine > 0
	}

	var grants []models.VulnerabilityAccess
	if sub.Role == models.RoleAdmin {
		database.DB.Preload("User").Where("vulnerability_id = ?", vuln.ID).Find(&grants)
	}

	render(c, http.StatusOK, "vuln_detail.html", gin.H{
		"vuln":     vuln,
		"comments": comments,
		"likes":    likes,
		"liked":    liked,
		"grants":   grants,
	})
}

func ShowEditVulnerability(c *gin.Context) {
	vuln, _, ok := loadVuln(c, authz.ActionEdit)
	if !ok {
		return
	}
	render(c, http.StatusOK, "vuln_edit.html", gin.H{
		"vuln":       vuln,
		"severities": models.Severities,
		"error":      "",
	})
}

func UpdateVulnerability(c *gin.Context) {
	vuln, sub, ok := loadVuln(c, authz.ActionEdit)
	if !ok {
		return
	}

	updated, errMsg := vulnFromForm(c)
	if errMsg != "" {
		render(c, http.StatusBadRequest, "vuln_edit.html", gin.H{
			"vuln": vuln, "severities": models.Severities, "error": errMsg,
		})
		return
	}

	vuln.Title = updated.Title
	vuln.Severity = updated.Severity
	vuln.Status = updated.Status
	vuln.CVSS = updated.CVSS
	vuln.Description = updated.Description
	vuln.Impact = updated.Impact
	vuln.Likelihood = updated.Likelihood
	vuln.Remediation = updated.Remediation
	vuln.References = updated.References
	vuln.Comments = updated.Comments
	vuln.ClientName = updated.ClientName
	vuln.ProjectName = updated.ProjectName
	vuln.TestType = updated.TestType
	vuln.TestDate = updated.TestDate
	vuln.TesterName = updated.TesterName
	vuln.ClientContact = updated.ClientContact

	if err := database.DB.Save(&vuln).Error; err != nil {
		render(c, http.StatusInternalServerError, "vuln_edit.html", gin.H{
			"vuln": vuln, "severities": models.Severities, "error": "Failed to save vulnerability",
		})
		return
	}

	audit(sub, "vulnerability", vuln.ID, "update", "Updated vulnerability: "+vuln.Title)
	c.Redirect(http.StatusFound, "/vulnerabilities/"+strconv.Itoa(int(vuln.ID)))
}

func DeleteVulnerability(c *gin.Context) {
	vuln, sub, ok := loadVuln(c, authz.ActionDelete)
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vulnerability_id = ?", vuln.ID).Delete(&models.VulnerabilityAccess{}).Error; err != nil {
			return err
		}
		if err := tx.Where("vulnerability_id = ?", vuln.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&vuln).Error
	})
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to delete vulnerability")
		return
	}

	audit(sub, "vulnerability", vuln.ID, "delete", "Deleted vulnerability: "+vuln.Title)
	c.Redirect(http.StatusFound, "/")
}

// GrantVulnerabilityAccess gives a user outside the finding's company
// access to its detail view.
func GrantVulnerabilityAccess(c *gin.Context) {
	vuln, sub, ok := loadVuln(c, authz.ActionEdit)
	if !ok {
		return
	}

	userID, err := strconv.Atoi(c.PostForm("user_id"))
	if err != nil || userID <= 0 {
		c.String(http.StatusBadRequest, "invalid user")
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.String(http.StatusNotFound, "user not found")
		return
	}

	var count int64
	database.DB.Model(&models.VulnerabilityAccess{}).
		Where("vulnerability_id = ? AND user_id = ?", vuln.ID, user.ID).
		Count(&count)
	if count == 0 {
		grant := models.VulnerabilityAccess{VulnerabilityID: vuln.ID, UserID: user.ID}
		if err := database.DB.Create(&grant).Error; err != nil {
			c.String(http.StatusInternalServerError, "failed to grant access")
			return
		}
		audit(sub, "vulnerability", vuln.ID, "grant", "Granted access to user: "+user.Username)
	}

	c.Redirect(http.StatusFound, "/vulnerabilities/"+strconv.Itoa(int(vuln.ID)))
}

func RevokeVulnerabilityAccess(c *gin.Context) {
	vuln, sub, ok := loadVuln(c, authz.ActionEdit)
	if !ok {
		return
	}
	userID, err := strconv.Atoi(c.Param("userID"))
	if err != nil || userID <= 0 {
		c.String(http.StatusBadRequest, "invalid user")
		return
	}

	database.DB.Where("vulnerability_id = ? AND user_id = ?", vuln.ID, userID).
		Delete(&models.VulnerabilityAccess{})

	audit(sub, "vulnerability", vuln.ID, "revoke", "Revoked access for user id "+strconv.Itoa(userID))
	c.Redirect(http.StatusFound, "/vulnerabilities/"+strconv.Itoa(int(vuln.ID)))
}

// vulnFromForm validates and builds a finding from the submitted form.
func vulnFromForm(c *gin.Context) (models.Vulnerability, string) {
	var vuln models.Vulnerability

	title := strings.TrimSpace(c.PostForm("title"))
	if len(title) < 3 {
		return vuln, "Title must be at least 3 characters"
	}
	if len(title) > 200 {
		return vuln, "Title must be at most 200 characters"
	}

	severity := strings.TrimSpace(c.PostForm("severity"))
	valid := false
	for _, s := range models.Severities {
		if strings.EqualFold(severity, string(s)) {
			severity = string(s)
			valid = true
			break
		}
	}
	if !valid {
		return vuln, "Unknown severity"
	}

	status := strings.TrimSpace(c.PostForm("status"))
	switch models.VulnStatus(status) {
	case models.StatusOpen, models.StatusInProgress, models.StatusClosed:
	case "":
		status = string(models.StatusOpen)
	default:
		return vuln, "Unknown status"
	}

	var cvss *float64
	if raw := strings.TrimSpace(c.PostForm("cvss")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 10 {
			return vuln, "CVSS must be a number between 0.0 and 10.0"
		}
		cvss = &v
	}

	var testDate *time.Time
	if raw := strings.TrimSpace(c.PostForm("test_date")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return vuln, "Test date must be YYYY-MM-DD"
		}
		testDate = &t
	}

	vuln.Title = title
	vuln.Severity = models.Severity(severity)
	vuln.Status = models.VulnStatus(status)
	vuln.CVSS = cvss
	vuln.Description = c.PostForm("description")
	vuln.Impact = c.PostForm("impact")
	vuln.Likelihood = c.PostForm("likelihood")
	vuln.Remediation = c.PostForm("remediation")
	vuln.References = c.PostForm("references")
	vuln.Comments = c.PostForm("comments")
	vuln.ClientName = strings.TrimSpace(c.PostForm("client_name"))
	vuln.ProjectName = strings.TrimSpace(c.PostForm("project_name"))
	vuln.TestType = strings.TrimSpace(c.PostForm("test_type"))
	vuln.TestDate = testDate
	vuln.TesterName = strings.TrimSpace(c.PostForm("tester_name"))
	vuln.ClientContact = strings.TrimSpace(c.PostForm("client_contact"))
	return vuln, ""
}
