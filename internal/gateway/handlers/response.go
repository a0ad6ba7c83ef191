package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"anypos-register/internal/apperror"
	"anypos-register/internal/gateway/middleware"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type PageMeta struct {
	Skip    int  `json:"skip"`
	Limit   int  `json:"limit"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// handleAPIError writes err with the status its kind maps to. The message is
// the one the operator sees, so server details pass through unchanged.
func handleAPIError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %v", middleware.GetRequestID(c.Request.Context()), c.Request.Method, c.FullPath(), err)
	}
	resp := errorResponse(apperror.Message(err))
	resp.Error = apperror.Code(err)
	c.JSON(status, resp)
	c.Abort()
}

// requestContext bounds a handler's outbound calls while keeping the request
// id and cancellation of the incoming request.
func requestContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}

// credentialToken returns the bearer token put in place by the session
// middleware.
func credentialToken(c *gin.Context) (string, bool) {
	cred, ok := middleware.GetCredential(c)
	if !ok {
		handleAPIError(c, apperror.ErrUnauthenticated)
		return "", false
	}
	return cred.Token, true
}

func parseIDParam(c *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid "+label+" ID"))
		return 0, false
	}
	return id, true
}
