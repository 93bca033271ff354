package middleware

import (
	"vulnreport/internal/authz"
	"vulnreport/internal/database"
	"vulnreport/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// InjectUser resolves the session user and builds the per-request
// authorization subject consulted by every handler.
func InjectUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uidRaw := sess.Get("user_id"); uidRaw != nil {
			if uid, ok := uidRaw.(uint); ok && uid > 0 {
				var user models.User
				if err := database.DB.First(&user, uid).Error; err == nil {
					c.Set("CurrentUser", user)
					c.Set("Subject", buildSubject(c, user))
				}
			}
		}

		c.Next()
	}
}

func buildSubject(c *gin.Context, user models.User) authz.Subject {
	sub := authz.Subject{
		UserID: user.ID,
		Role:   user.Role,
	}
	if user.CompanyID != nil {
		sub.CompanyID = *user.CompanyID
	}

	sess := sessions.Default(c)
	if raw := sess.Get("selected_company_id"); raw != nil {
		if id, ok := raw.(uint); ok {
			sub.SelectedCompanyID = id
		}
	}

	if user.Role != models.RoleAdmin {
		var grants []models.VulnerabilityAccess
		if err := database.DB.Where("user_id = ?", user.ID).Find(&grants).Error; err == nil {
			sub.Grants = make(map[uint]struct{}, len(grants))
			for _, g := range grants {
				sub.Grants[g.VulnerabilityID] = struct{}{}
			}
		}
	}

	return sub
}

// CurrentUser returns the injected user, if any.
func CurrentUser(c *gin.Context) (models.User, bool) {
	if v, ok := c.Get("CurrentUser"); ok {
		if u, ok := v.(models.User); ok {
			return u, true
		}
	}
	return models.User{}, false
}

// SubjectFrom returns the per-request authorization subject.
func SubjectFrom(c *gin.Context) (authz.Subject, bool) {
	if v, ok := c.Get("Subject"); ok {
		if s, ok := v.(authz.Subject); ok {
			return s, true
		}
	}
	return authz.Subject{}, false
}
