package httpapi

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/maskerade/privchat/internal/httpapi/handlers"
	"github.com/maskerade/privchat/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	r.GET("/conversation", h.Conversation)
	r.POST("/conversation", h.Conversation)
	r.POST("/history/generate", h.HistoryGenerate)
	r.GET("/history/ensure", h.HistoryEnsure)
	r.PUT("/upload-file", h.UploadFile)
	r.GET("/menus", h.Menus)
	r.GET("/training", h.TrainingStatus)

	// front-end bundle
	staticDir := h.Cfg.StaticDir
	r.StaticFile("/", filepath.Join(staticDir, "index.html"))
	r.StaticFile("/no-filter", filepath.Join(staticDir, "index.html"))
	r.StaticFile("/favicon.ico", filepath.Join(staticDir, "favicon.ico"))
	r.Static("/assets", filepath.Join(staticDir, "assets"))

	return r
}
