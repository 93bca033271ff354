package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"vulnreport/internal/authz"
	"vulnreport/internal/obs"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadBytes = 5 << 20

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// UploadImage stores an evidence image under a generated name and
// returns its /static/ URL for embedding in finding text.
func UploadImage(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	if !authz.Authorize(sub, authz.ActionEdit, authz.Resource{Kind: "vulnerability", CompanyID: sub.SelectedCompanyID}) {
		forbid(c)
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image in request"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image exceeds the 5 MB limit"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = ".png"
	}
	if !allowedImageExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
		return
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		zap.L().Error("upload dir create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		return
	}

	// generated names keep pasted 'image.png' uploads from colliding
	name := "img-" + uuid.NewString() + ext
	dst := filepath.Join(cfg.UploadDir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		zap.L().Error("upload save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		return
	}

	obs.Uploads.Inc()
	audit(sub, "upload", 0, "create", "Uploaded image: "+name)
	c.JSON(http.StatusOK, gin.H{"url": "/static/uploads/" + name})
}
