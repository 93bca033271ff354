package handlers

import (
	"net/http"
	"strings"

	"vulnreport/internal/database"
	"vulnreport/internal/models"
	"vulnreport/internal/obs"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func ShowLogin(c *gin.Context) {
	sess := sessions.Default(c)
	if sess.Get("user_id") != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	render(c, http.StatusOK, "login.html", gin.H{"error": ""})
}

func Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	var user models.User
	err := database.DB.Where("username = ?", username).First(&user).Error
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		obs.Logins.WithLabelValues("failure").Inc()
		zap.L().Warn("login rejected", zap.String("username", username))
		render(c, http.StatusUnauthorized, "login.html", gin.H{"error": "Invalid username or password"})
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	// non-admin users start in their home company
	if user.Role != models.RoleAdmin && user.CompanyID != nil {
		sess.Set("selected_company_id", *user.CompanyID)
	} else {
		sess.Delete("selected_company_id")
	}
	if err := sess.Save(); err != nil {
		c.String(http.StatusInternalServerError, "session error")
		return
	}

	obs.Logins.WithLabelValues("success").Inc()
	database.CreateAuditLog(user.ID, "user", user.ID, "login", "User logged in: "+user.Username)
	c.Redirect(http.StatusFound, "/")
}

func Logout(c *gin.Context) {
	sess := sessions.Default(c)
	if v := sess.Get("user_id"); v != nil {
		if uid, ok := v.(uint); ok {
			database.CreateAuditLog(uid, "user", uid, "logout", "User logged out")
		}
	}
	sess.Clear()
	_ = sess.Save()
	c.Redirect(http.StatusFound, "/login")
}
