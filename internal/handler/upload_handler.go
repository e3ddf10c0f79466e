package handler

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// UploadImage 处理图片上传请求，保存到上传目录并返回访问地址与尺寸。
func (a *API) UploadImage(c *gin.Context) {
	// 获取上传的文件
	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "image file is required")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(c, http.StatusBadRequest, "only image files are allowed")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondInternal(c, "open upload", err)
		return
	}
	cfg, format, err := image.DecodeConfig(src)
	src.Close()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unsupported image format")
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		respondInternal(c, "create upload dir", err)
		return
	}

	// 文件名使用日期加 uuid，扩展名以解码出的格式为准
	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}
	name := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	if err := c.SaveUploadedFile(file, filepath.Join(a.uploadDir, name)); err != nil {
		respondInternal(c, "save upload", err)
		return
	}

	url := strings.TrimRight(a.uploadURL, "/") + "/" + name
	log.Printf("[UPLOAD] stored %s (%dx%d %s)", name, cfg.Width, cfg.Height, format)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Image uploaded successfully",
		"url":     url,
		"width":   cfg.Width,
		"height":  cfg.Height,
		"format":  format,
	})
}
