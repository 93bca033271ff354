package handlers

import (
	"net/http"
	"strconv"
	"unicode"

	"vulnreport/internal/authz"
	"vulnreport/internal/database"
	"vulnreport/internal/middleware"
	"vulnreport/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// subject fetches the per-request authorization context; a missing one
// means the auth middleware did not run, treated as unauthenticated.
func subject(c *gin.Context) (authz.Subject, bool) {
	sub, ok := middleware.SubjectFrom(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
	return sub, ok
}

func forbid(c *gin.Context) {
	c.String(http.StatusForbidden, "access denied")
	c.Abort()
}

// selectedCompany loads the tenant the subject is acting in.
func selectedCompany(c *gin.Context, sub authz.Subject) (models.Company, bool) {
	var company models.Company
	if sub.SelectedCompanyID == 0 {
		c.Redirect(http.StatusFound, "/companies/select")
		return company, false
	}
	if err := database.DB.First(&company, sub.SelectedCompanyID).Error; err != nil {
		c.Redirect(http.StatusFound, "/companies/select")
		return company, false
	}
	return company, true
}

// scopedVulns returns the tenant-filtered vulnerability query.
func scopedVulns(companyID uint) *gorm.DB {
	return database.DB.Model(&models.Vulnerability{}).Where("company_id = ?", companyID)
}

func audit(sub authz.Subject, entity string, entityID uint, action, details string) {
	database.CreateAuditLog(sub.UserID, entity, entityID, action, details)
}

// strongPassword enforces the account password policy: at least 12
// characters with upper, lower, digit and special classes.
func strongPassword(pw string) bool {
	if len(pw) < 12 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}
