package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maskerade/privchat/internal/common"
)

func (h *Handler) Menus(c *gin.Context) {
	log.Printf("[Menus] request received - /menus")
	menu := []gin.H{
		{
			"link":     "/",
			"key":      "privacy-filter",
			"name":     "Privacy Filter",
			"icon":     "Lock",
			"children": []gin.H{},
		},
		{
			"link":     "/no-filter",
			"key":      "no-filter",
			"name":     "No Filter",
			"icon":     "Lock",
			"children": []gin.H{},
		},
	}
	common.OK(c, menu)
}

func (h *Handler) HistoryEnsure(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "PostgresDB is configured and working"})
}

// TrainingStatus drives and reports fine-tune job progress. Responses are the
// fixed {content, status} table keyed by persisted job state.
func (h *Handler) TrainingStatus(c *gin.Context) {
	report := h.Training.Check(c.Request.Context())

	if !report.Success {
		common.Fail(c, report.HTTPStatus, report.ErrMessage)
		return
	}
	common.OK(c, gin.H{"content": report.Content, "status": report.Done})
}
