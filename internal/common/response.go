package common

import "github.com/gin-gonic/gin"

// Envelope is the {data, success, error} shape the front-end expects from
// the menus, upload and training endpoints.
type Envelope struct {
	Data    any      `json:"data"`
	Success bool     `json:"success"`
	Error   ErrorMsg `json:"error"`
}

type ErrorMsg struct {
	Message string `json:"message"`
}

func OK(c *gin.Context, data any) {
	c.JSON(200, Envelope{Data: data, Success: true, Error: ErrorMsg{Message: ""}})
}

func Fail(c *gin.Context, httpStatus int, msg string) {
	c.JSON(httpStatus, Envelope{Data: map[string]any{}, Success: false, Error: ErrorMsg{Message: msg}})
}

// ServerError is the bare {error} payload used by the conversation endpoints.
func ServerError(c *gin.Context, err error) {
	c.JSON(500, gin.H{"error": err.Error()})
}
