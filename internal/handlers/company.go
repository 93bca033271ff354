package handlers

import (
	"net/http"
	"strings"

	"vulnreport/internal/authz"
	"vulnreport/internal/database"
	"vulnreport/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListCompanies shows every company to the admin and only the home
// company to everyone else.
func ListCompanies(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}

	var companies []models.Company
	query := database.DB.Order("name asc")
	if sub.Role != models.RoleAdmin {
		query = query.Where("id = ?", sub.CompanyID)
	}
	query.Find(&companies)

	render(c, http.StatusOK, "companies_list.html", gin.H{
		"companies": companies,
	})
}

// ShowSelectCompany is the tenant picker shown until a company is active.
func ShowSelectCompany(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}

	var companies []models.Company
	query := database.DB.Order("name asc")
	if sub.Role != models.RoleAdmin {
		query = query.Where("id = ?", sub.CompanyID)
	}
	query.Find(&companies)

	render(c, http.StatusOK, "companies_select.html", gin.H{
		"companies": companies,
		"error":     "",
	})
}

// SelectCompany makes a company the active tenant for this session.
func SelectCompany(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var company models.Company
	if err := database.DB.First(&company, id).Error; err != nil {
		c.String(http.StatusNotFound, "company not found")
		return
	}
	if !authz.CanSelectCompany(sub, company.ID) {
		forbid(c)
		return
	}

	sess := sessions.Default(c)
	sess.Set("selected_company_id", company.ID)
	if err := sess.Save(); err != nil {
		c.String(http.StatusInternalServerError, "session error")
		return
	}

	audit(sub, "company", company.ID, "select", "Selected company: "+company.Name)
	c.Redirect(http.StatusFound, "/")
}

func ShowNewCompany(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionCreate, authz.Resource{Kind: "company"}) {
		forbid(c)
		return
	}
	render(c, http.StatusOK, "companies_new.html", gin.H{"error": ""})
}

func CreateCompany(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionCreate, authz.Resource{Kind: "company"}) {
		forbid(c)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if len(name) < 2 {
		render(c, http.StatusBadRequest, "companies_new.html", gin.H{
			"error": "Company name must be at least 2 characters",
		})
		return
	}

	var count int64
	database.DB.Model(&models.Company{}).
		Where("LOWER(name) = LOWER(?)", name).
		Count(&count)
	if count > 0 {
		render(c, http.StatusBadRequest, "companies_new.html", gin.H{
			"error": "A company with that name already exists",
		})
		return
	}

	company := models.Company{
		Name:         name,
		Description:  strings.TrimSpace(c.PostForm("description")),
		ContactEmail: strings.TrimSpace(c.PostForm("contact_email")),
		ContactPhone: strings.TrimSpace(c.PostForm("contact_phone")),
		Address:      strings.TrimSpace(c.PostForm("address")),
	}
	if err := database.DB.Create(&company).Error; err != nil {
		render(c, http.StatusInternalServerError, "companies_new.html", gin.H{
			"error": "Failed to save company",
		})
		return
	}

	audit(sub, "company", company.ID, "create", "Created company: "+company.Name)
	c.Redirect(http.StatusFound, "/companies")
}

func ShowEditCompany(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var company models.Company
	if err := database.DB.First(&company, id).Error; err != nil {
		c.String(http.StatusNotFound, "company not found")
		return
	}
	if !authz.Authorize(sub, authz.ActionEdit, authz.Resource{Kind: "company", CompanyID: company.ID}) {
		forbid(c)
		return
	}

	render(c, http.StatusOK, "companies_edit.html", gin.H{
		"company": company,
		"error":   "",
	})
}

// UpdateCompany saves company changes. A rename rewrites the
// denormalized company name on every finding in the same transaction.
func UpdateCompany(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var company models.Company
	if err := database.DB.First(&company, id).Error; err != nil {
		c.String(http.StatusNotFound, "company not found")
		return
	}
	if !authz.Authorize(sub, authz.ActionEdit, authz.Resource{Kind: "company", CompanyID: company.ID}) {
		forbid(c)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if len(name) < 2 {
		render(c, http.StatusBadRequest, "companies_edit.html", gin.H{
			"company": company, "error": "Company name must be at least 2 characters",
		})
		return
	}

	if !strings.EqualFold(name, company.Name) {
		var count int64
		database.DB.Model(&models.Company{}).
			Where("LOWER(name) = LOWER(?) AND id <> ?", name, company.ID).
			Count(&count)
		if count > 0 {
			render(c, http.StatusBadRequest, "companies_edit.html", gin.H{
				"company": company, "error": "A company with that name already exists",
			})
			return
		}
	}

	renamed := name != company.Name
	oldName := company.Name
	company.Name = name
	company.Description = strings.TrimSpace(c.PostForm("description"))
	company.ContactEmail = strings.TrimSpace(c.PostForm("contact_email"))
	company.ContactPhone = strings.TrimSpace(c.PostForm("contact_phone"))
	company.Address = strings.TrimSpace(c.PostForm("address"))

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&company).Error; err != nil {
			return err
		}
		if renamed {
			return tx.Model(&models.Vulnerability{}).
				Where("company_id = ?", company.ID).
				Update("company_name", company.Name).Error
		}
		return nil
	})
	if err != nil {
		zap.L().Error("company update failed", zap.Uint("company_id", company.ID), zap.Error(err))
		render(c, http.StatusInternalServerError, "companies_edit.html", gin.H{
			"company": company, "error": "Failed to save company",
		})
		return
	}

	if renamed {
		audit(sub, "company", company.ID, "rename", "Renamed company: "+oldName+" -> "+company.Name)
	} else {
		audit(sub, "company", company.ID, "update", "Updated company: "+company.Name)
	}
	c.Redirect(http.StatusFound, "/companies")
}

// DeleteCompany removes a company and its findings. Admin only.
func DeleteCompany(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionDelete, authz.Resource{Kind: "company", CompanyID: id}) {
		forbid(c)
		return
	}

	var company models.Company
	if err := database.DB.First(&company, id).Error; err != nil {
		c.String(http.StatusNotFound, "company not found")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", company.ID).Delete(&models.Vulnerability{}).Error; err != nil {
			return err
		}
		return tx.Delete(&company).Error
	})
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to delete company")
		return
	}

	// drop a now-dangling tenant selection
	sess := sessions.Default(c)
	if v := sess.Get("selected_company_id"); v != nil {
		if cur, ok := v.(uint); ok && cur == company.ID {
			sess.Delete("selected_company_id")
			_ = sess.Save()
		}
	}

	audit(sub, "company", company.ID, "delete", "Deleted company: "+company.Name)
	c.Redirect(http.StatusFound, "/companies")
}
