package handlers

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maskerade/privchat/internal/common"
)

// UploadFile extracts the first page's text from an uploaded PDF and, in
// private mode, masks it. A blank or unreadable first page is reported as a
// distinguished fileInvalid payload, not a hard error.
func (h *Handler) UploadFile(c *gin.Context) {
	log.Printf("[UploadFile] request received - /upload-file")
	ctx := c.Request.Context()

	if h.History != nil {
		if email := c.GetHeader("email"); email != "" {
			if err := h.History.CreateUser(ctx, email); err != nil {
				log.Printf("[UploadFile] create user failed: %v", err)
			}
		}
	}

	file, err := c.FormFile("pdfFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	textFilter := c.PostForm("filter")

	if err := os.MkdirAll(h.Cfg.UploadDir, 0o755); err != nil {
		common.ServerError(c, err)
		return
	}
	path := filepath.Join(h.Cfg.UploadDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		common.ServerError(c, err)
		return
	}
	// the temp file never outlives the request, even on a parse failure
	defer h.cleanUploadDir()

	text, err := h.Extractor.FirstPageText(path)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("PDF has no text on the first page.")
	}
	if err != nil {
		log.Printf("[UploadFile] Error on parsing file - %s: %v", path, err)
		c.JSON(http.StatusOK, gin.H{
			"fileInvalid": gin.H{"message": h.Cfg.ParseErrMessage},
			"success":     true,
			"error":       gin.H{"message": err.Error()},
		})
		return
	}

	if textFilter == "public" {
		common.OK(c, gin.H{"text": text})
		return
	}

	masked, _, identifiedTokens, err := h.Masker.Mask(ctx, text)
	if err != nil {
		log.Printf("[UploadFile] mask failed: %v", err)
		common.ServerError(c, err)
		return
	}
	common.OK(c, gin.H{"text": masked, "identified_tokens": identifiedTokens})
}

func (h *Handler) cleanUploadDir() {
	entries, err := os.ReadDir(h.Cfg.UploadDir)
	if err != nil {
		log.Printf("[UploadFile] Error reading upload directory %q: %v", h.Cfg.UploadDir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(h.Cfg.UploadDir, e.Name())); err != nil {
			log.Printf("[UploadFile] Error deleting file %q: %v", e.Name(), err)
		}
	}
}
