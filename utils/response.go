package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response and stops the handler chain.
// Server-side failures only expose message; the wrapped cause stays in the logs.
func JSONError(c *gin.Context, status int, err error, message string) {
	detail := message
	if status < http.StatusInternalServerError && err != nil {
		detail = err.Error()
	}
	c.AbortWithStatusJSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   detail,
	})
}
