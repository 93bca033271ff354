package handlers

import (
	"net/http"
	"strconv"

	"vulnreport/internal/authz"
	"vulnreport/internal/database"
	"vulnreport/internal/models"

	"github.com/gin-gonic/gin"
)

const auditPageSize = 50

// ListAudit shows the audit trail, newest first. Admin only.
func ListAudit(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionView, authz.Resource{Kind: "audit"}) {
		forbid(c)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	var total int64
	database.DB.Model(&models.AuditLog{}).Count(&total)

	var logs []models.AuditLog
	database.DB.Preload("User").
		Order("created_at desc").
		Limit(auditPageSize).
		Offset((page - 1) * auditPageSize).
		Find(&logs)

	pages := int(total) / auditPageSize
	if int(total)%auditPageSize != 0 {
		pages++
	}

	render(c, http.StatusOK, "audit_list.html", gin.H{
		"logs":  logs,
		"page":  page,
		"pages": pages,
		"total": total,
	})
}
