package handlers

import (
	"vulnreport/internal/middleware"

	"github.com/gin-gonic/gin"
)

// render wraps c.HTML and feeds the current user and tenant selection
// into every template.
func render(c *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	if u, ok := middleware.CurrentUser(c); ok {
		data["CurrentUser"] = u
		data["CurrentUsername"] = u.Username
		data["CurrentUserRole"] = u.Role
	}
	if sub, ok := middleware.SubjectFrom(c); ok {
		data["SelectedCompanyID"] = sub.SelectedCompanyID
	}

	c.HTML(status, tmpl, data)
}
