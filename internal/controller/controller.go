// Package controller exposes the HTTP API. Controllers validate
// requests, delegate to services, and translate engine errors into
// standardized response bodies.
package controller

import (
	"github.com/gin-gonic/gin"

	"lakehouse-gateway/internal/utils"
	"lakehouse-gateway/pkg/response"
)

func getCorrelationID(c *gin.Context) string {
	if correlationID, exists := c.Get("correlation_id"); exists {
		if id, ok := correlationID.(string); ok {
			return id
		}
	}
	return ""
}

// sendError maps any error to its HTTP status and standardized body.
func sendError(c *gin.Context, err error) {
	appErr := utils.FromError(err)
	c.JSON(appErr.Status(), response.ErrorResponseFromAppError(appErr, getCorrelationID(c)))
}

func sendData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, response.SuccessResponse(data, getCorrelationID(c)))
}

func sendMessage(c *gin.Context, status int, message string) {
	c.JSON(status, response.SuccessMessageResponse(message, getCorrelationID(c)))
}
