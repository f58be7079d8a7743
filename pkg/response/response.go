package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clarovate/onboarding/internal/errs"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    errs.Kind   `json:"code,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// OKMessage sends a 200 JSON response with data and a human-readable message.
func OKMessage(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data, Message: message})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err, Code: errs.KindBadRequest})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err, Code: errs.KindUnauthorized})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err, Code: errs.KindForbidden})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err, Code: errs.KindNotFound})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err, Code: errs.KindInternal})
}

// Error renders err with the status and code of its errs.Kind. Foreign errors
// become a generic 500 so low-level details never reach the client.
func Error(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	c.JSON(errs.HTTPStatus(kind), Body{Success: false, Error: errs.MessageOf(err), Code: kind})
}

// ErrorWithData is Error plus a payload, for failures that still changed
// state (an invitation persisted whose email could not be queued).
func ErrorWithData(c *gin.Context, err error, data interface{}) {
	kind := errs.KindOf(err)
	c.JSON(errs.HTTPStatus(kind), Body{Success: false, Data: data, Error: errs.MessageOf(err), Code: kind})
}
