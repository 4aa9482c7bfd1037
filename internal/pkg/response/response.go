package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
)

// Response is the unified JSON envelope for all API endpoints
type Response struct {
	Code    int         `json:"code"`              // Business error code (0 means success)
	Message string      `json:"message,omitempty"` // Human-readable message
	Data    interface{} `json:"data"`              // Payload (never null, {} when empty)
}

// Page is the envelope for paginated listings
type Page struct {
	Content       interface{} `json:"content"`
	Page          int         `json:"page"`
	Size          int         `json:"size"`
	TotalElements int64       `json:"totalElements"`
	TotalPages    int         `json:"totalPages"`
	First         bool        `json:"first"`
	Last          bool        `json:"last"`
	HasNext       bool        `json:"hasNext"`
	HasPrevious   bool        `json:"hasPrevious"`
}

// NewPage builds a Page from a zero-based page number, page size and total count
func NewPage(content interface{}, page, size int, total int64) *Page {
	if size <= 0 {
		size = 1
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	return &Page{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page >= totalPages-1,
		HasNext:       page < totalPages-1,
		HasPrevious:   page > 0,
	}
}

// Success sends a 200 response with the given data
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusOK, Response{
		Code:    apperrors.Success,
		Message: "",
		Data:    data,
	})
}

// SuccessWithMessage sends a 200 response with a message
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusOK, Response{
		Code:    apperrors.Success,
		Message: message,
		Data:    data,
	})
}

// Created sends a 201 response with the given data
func Created(c *gin.Context, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusCreated, Response{
		Code:    apperrors.Success,
		Message: "",
		Data:    data,
	})
}

// HandleError maps an error to the envelope, honoring AppError codes
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := apperrors.ExtractCode(err)
	httpStatus := apperrors.GetHTTPStatus(code)
	message := apperrors.FormatError(code, apperrors.GetDetails(err))

	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    struct{}{},
	})
}

// ErrorWithCode sends an error response for a known business code
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	httpStatus := apperrors.GetHTTPStatus(code)
	message := apperrors.FormatError(code, details...)

	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    struct{}{},
	})
}

// BadRequest sends a 400 error
func BadRequest(c *gin.Context, details ...string) {
	ErrorWithCode(c, apperrors.ErrBadRequest, details...)
}

// Unauthorized sends a 401 error
func Unauthorized(c *gin.Context, details ...string) {
	ErrorWithCode(c, apperrors.ErrUnauthorized, details...)
}

// Forbidden sends a 403 error
func Forbidden(c *gin.Context, details ...string) {
	ErrorWithCode(c, apperrors.ErrForbidden, details...)
}

// NotFound sends a 404 error
func NotFound(c *gin.Context, details ...string) {
	ErrorWithCode(c, apperrors.ErrNotFound, details...)
}

// InternalError sends a 500 error
func InternalError(c *gin.Context, details ...string) {
	ErrorWithCode(c, apperrors.ErrInternalServer, details...)
}
