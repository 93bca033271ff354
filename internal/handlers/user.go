package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"vulnreport/internal/authz"
	"vulnreport/internal/database"
	"vulnreport/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// ListUsers shows the account list. Admin only.
func ListUsers(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionView, authz.Resource{Kind: "user"}) {
		forbid(c)
		return
	}

	var users []models.User
	database.DB.Preload("Company").Order("username asc").Find(&users)

	render(c, http.StatusOK, "users_list.html", gin.H{"users": users})
}

func ShowNewUser(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionCreate, authz.Resource{Kind: "user"}) {
		forbid(c)
		return
	}

	var companies []models.Company
	database.DB.Order("name asc").Find(&companies)

	render(c, http.StatusOK, "users_new.html", gin.H{
		"companies": companies,
		"error":     "",
	})
}

// CreateUser adds an account. Exactly one admin exists system-wide, so
// requests for a second one are rejected.
func CreateUser(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionCreate, authz.Resource{Kind: "user"}) {
		forbid(c)
		return
	}

	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	role := models.UserRole(c.PostForm("role"))

	fail := func(status int, msg string) {
		var companies []models.Company
		database.DB.Order("name asc").Find(&companies)
		render(c, status, "users_new.html", gin.H{"companies": companies, "error": msg})
	}

	if len(username) < 3 {
		fail(http.StatusBadRequest, "Username must be at least 3 characters")
		return
	}
	if !strongPassword(password) {
		fail(http.StatusBadRequest, "Password must be at least 12 characters with upper and lower case letters, a digit and a special character")
		return
	}

	switch role {
	case models.RoleEditor, models.RoleViewer:
	case models.RoleAdmin:
		fail(http.StatusBadRequest, "There is exactly one administrator account")
		return
	default:
		fail(http.StatusBadRequest, "Unknown role")
		return
	}

	var count int64
	database.DB.Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", username).
		Count(&count)
	if count > 0 {
		fail(http.StatusBadRequest, "A user with that name already exists")
		return
	}

	var companyID *uint
	if raw := c.PostForm("company_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			fail(http.StatusBadRequest, "Invalid company")
			return
		}
		var company models.Company
		if err := database.DB.First(&company, id).Error; err != nil {
			fail(http.StatusBadRequest, "Invalid company")
			return
		}
		companyID = &company.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fail(http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CompanyID:    companyID,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		fail(http.StatusInternalServerError, "Failed to save user")
		return
	}

	audit(sub, "user", user.ID, "create", "Created user: "+user.Username)
	c.Redirect(http.StatusFound, "/users")
}

func ShowEditUser(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionEdit, authz.Resource{Kind: "user"}) {
		forbid(c)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var user models.User
	if err := database.DB.Preload("Company").First(&user, id).Error; err != nil {
		c.String(http.StatusNotFound, "user not found")
		return
	}

	var companies []models.Company
	database.DB.Order("name asc").Find(&companies)

	render(c, http.StatusOK, "users_edit.html", gin.H{
		"user":      user,
		"companies": companies,
		"error":     "",
	})
}

// UpdateUser edits role, company, and optionally the password. The
// admin account's role cannot be changed away.
func UpdateUser(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionEdit, authz.Resource{Kind: "user"}) {
		forbid(c)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		c.String(http.StatusNotFound, "user not found")
		return
	}

	fail := func(status int, msg string) {
		var companies []models.Company
		database.DB.Order("name asc").Find(&companies)
		render(c, status, "users_edit.html", gin.H{"user": user, "companies": companies, "error": msg})
	}

	role := models.UserRole(c.PostForm("role"))
	if user.Role == models.RoleAdmin {
		if role != models.RoleAdmin {
			fail(http.StatusBadRequest, "The administrator role cannot be changed")
			return
		}
	} else {
		switch role {
		case models.RoleEditor, models.RoleViewer:
			user.Role = role
		case models.RoleAdmin:
			fail(http.StatusBadRequest, "There is exactly one administrator account")
			return
		default:
			fail(http.StatusBadRequest, "Unknown role")
			return
		}
	}

	if raw := c.PostForm("company_id"); raw != "" {
		cid, err := strconv.Atoi(raw)
		if err != nil || cid <= 0 {
			fail(http.StatusBadRequest, "Invalid company")
			return
		}
		var company models.Company
		if err := database.DB.First(&company, cid).Error; err != nil {
			fail(http.StatusBadRequest, "Invalid company")
			return
		}
		user.CompanyID = &company.ID
	} else if user.Role != models.RoleAdmin {
		user.CompanyID = nil
	}

	if pw := c.PostForm("password"); pw != "" {
		if !strongPassword(pw) {
			fail(http.StatusBadRequest, "Password must be at least 12 characters with upper and lower case letters, a digit and a special character")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			fail(http.StatusInternalServerError, "Failed to hash password")
			return
		}
		user.PasswordHash = string(hash)
	}

	if err := database.DB.Save(&user).Error; err != nil {
		fail(http.StatusInternalServerError, "Failed to save user")
		return
	}

	audit(sub, "user", user.ID, "update", "Updated user: "+user.Username)
	c.Redirect(http.StatusFound, "/users")
}

// DeleteUser removes an account. Self-deletion and deleting the admin
// are rejected.
func DeleteUser(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionDelete, authz.Resource{Kind: "user"}) {
		forbid(c)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if id == sub.UserID {
		c.String(http.StatusBadRequest, "you cannot delete your own account")
		return
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		c.String(http.StatusNotFound, "user not found")
		return
	}
	if user.Role == models.RoleAdmin {
		c.String(http.StatusBadRequest, "the administrator account cannot be deleted")
		return
	}

	database.DB.Where("user_id = ?", user.ID).Delete(&models.VulnerabilityAccess{})
	database.DB.Where("user_id = ?", user.ID).Delete(&models.CommentLike{})
	if err := database.DB.Delete(&user).Error; err != nil {
		c.String(http.StatusInternalServerError, "failed to delete user")
		return
	}

	audit(sub, "user", user.ID, "delete", "Deleted user: "+user.Username)
	c.Redirect(http.StatusFound, "/users")
}

// ShowProfile renders the current user's profile.
func ShowProfile(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}

	var user models.User
	if err := database.DB.Preload("Company").First(&user, sub.UserID).Error; err != nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	render(c, http.StatusOK, "profile.html", gin.H{"user": user, "error": "", "notice": ""})
}

// ChangePassword updates the current user's password after verifying
// the old one.
func ChangePassword(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}

	var user models.User
	if err := database.DB.First(&user, sub.UserID).Error; err != nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	current := c.PostForm("current_password")
	next := c.PostForm("new_password")

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		render(c, http.StatusBadRequest, "profile.html", gin.H{
			"user": user, "error": "Current password is incorrect", "notice": "",
		})
		return
	}
	if !strongPassword(next) {
		render(c, http.StatusBadRequest, "profile.html", gin.H{
			"user": user, "error": "Password must be at least 12 characters with upper and lower case letters, a digit and a special character", "notice": "",
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		render(c, http.StatusInternalServerError, "profile.html", gin.H{
			"user": user, "error": "Failed to hash password", "notice": "",
		})
		return
	}
	user.PasswordHash = string(hash)
	if err := database.DB.Save(&user).Error; err != nil {
		render(c, http.StatusInternalServerError, "profile.html", gin.H{
			"user": user, "error": "Failed to save password", "notice": "",
		})
		return
	}

	audit(sub, "user", user.ID, "password", "Changed own password")
	render(c, http.StatusOK, "profile.html", gin.H{
		"user": user, "error": "", "notice": "Password updated",
	})
}
