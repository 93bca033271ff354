package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"vulnreport/internal/authz"
	"vulnreport/internal/database"
	"vulnreport/internal/models"

	"github.com/gin-gonic/gin"
)

// AddComment posts a comment on a finding the subject can view.
func AddComment(c *gin.Context) {
	vuln, sub, ok := loadVuln(c, authz.ActionView)
	if !ok {
		return
	}

	body := strings.TrimSpace(c.PostForm("body"))
	if body == "" {
		c.Redirect(http.StatusFound, "/vulnerabilities/"+strconv.Itoa(int(vuln.ID)))
		return
	}

	comment := models.Comment{
		VulnerabilityID: vuln.ID,
		UserID:          sub.UserID,
		Body:            body,
	}
	if err := database.DB.Create(&comment).Error; err != nil {
		c.String(http.StatusInternalServerError, "failed to save comment")
		return
	}

	audit(sub, "comment", comment.ID, "create", "Commented on vulnerability: "+vuln.Title)
	c.Redirect(http.StatusFound, "/vulnerabilities/"+strconv.Itoa(int(vuln.ID)))
}

// DeleteComment removes a comment: authors delete their own, the admin
// deletes any.
func DeleteComment(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.First(&comment, id).Error; err != nil {
		c.String(http.StatusNotFound, "comment not found")
		return
	}
	if comment.UserID != sub.UserID && sub.Role != models.RoleAdmin {
		forbid(c)
		return
	}

	database.DB.Where("comment_id = ?", comment.ID).Delete(&models.CommentLike{})
	database.DB.Delete(&comment)

	audit(sub, "comment", comment.ID, "delete", "Deleted comment")
	c.Redirect(http.StatusFound, "/vulnerabilities/"+strconv.Itoa(int(comment.VulnerabilityID)))
}

// ToggleLike flips the subject's like on a comment.
func ToggleLike(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.First(&comment, id).Error; err != nil {
		c.String(http.StatusNotFound, "comment not found")
		return
	}

	var like models.CommentLike
	err := database.DB.Where("comment_id = ? AND user_id = ?", comment.ID, sub.UserID).
		First(&like).Error
	if err == nil {
		database.DB.Delete(&like)
	} else {
		like = models.CommentLike{CommentID: comment.ID, UserID: sub.UserID}
		if err := database.DB.Create(&like).Error; err != nil {
			c.String(http.StatusInternalServerError, "failed to save like")
			return
		}
	}

	var count int64
	database.DB.Model(&models.CommentLike{}).Where("comment_id = ?", comment.ID).Count(&count)
	c.JSON(http.StatusOK, gin.H{"likes": count})
}
