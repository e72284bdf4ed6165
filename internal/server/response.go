package server

import (
	"errors"
	"net/http"

	"ragchat/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	msgSessionNotFound = "Session not found."
	msgUnavailable     = "This feature is not configured."
	msgBadRequest      = "Invalid request."
)

// APIResponse is the envelope of every JSON reply.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func respondSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, APIResponse{Success: true, Data: data, Message: "ok", Code: status})
}

func respondError(c *gin.Context, status int, message string, data any) {
	c.AbortWithStatusJSON(status, APIResponse{Message: message, Data: data, Code: status})
}

// respondSessionError handles the errors returned by session.Manager.Do
// when no response was written yet.
func respondSessionError(c *gin.Context, err error) {
	if c.Writer.Written() {
		return
	}
	if errors.Is(err, session.ErrNotFound) {
		respondError(c, http.StatusNotFound, msgSessionNotFound, nil)
		return
	}
	respondError(c, http.StatusInternalServerError, "Something went wrong, please try again.", nil)
}
