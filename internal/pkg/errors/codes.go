package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer = 1000
	ErrInvalidParams  = 1001
	ErrNotFound       = 1002
	ErrUnauthorized   = 1003
	ErrForbidden      = 1004
	ErrConflict       = 1005
	ErrBadRequest     = 1007

	// Auth errors (2000-2999)
	ErrAuthInvalidCredentials = 2000
	ErrAuthUserNotFound       = 2001
	ErrAuthEmailExists        = 2002
	ErrAuthUsernameExists     = 2003
	ErrAuthInvalidToken       = 2004
	ErrAuthTokenExpired       = 2005
	ErrAuthAccountDisabled    = 2006

	// User errors (3000-3999)
	ErrUserExists = 3001

	// File errors (4000-4999)
	ErrFileNotFound        = 4000
	ErrFileEmpty           = 4001
	ErrFileTooLarge        = 4002
	ErrFileAlreadyExists   = 4003
	ErrFileStorageFailed   = 4004
	ErrFileNotInStorage    = 4005
	ErrFilePreviewDenied   = 4006
	ErrFileMissingField    = 4007
	ErrFileUploadForbidden = 4008
	ErrFileViewForbidden   = 4009
	ErrFileDeleteForbidden = 4010

	// Organization errors (5000-5999)
	ErrDepartmentNotFound    = 5000
	ErrDepartmentHasUsers    = 5001
	ErrDepartmentHasProjects = 5002
	ErrProjectNotFound       = 5003
	ErrProjectHasFiles       = 5004
	ErrAssignmentNotFound    = 5005
	ErrAssignmentExists      = 5006
	ErrAssignmentForbidden   = 5007
	ErrDepartmentExists      = 5008

	// Assistant errors (6000-6999)
	ErrChatUpstreamOverloaded = 6000
	ErrChatUpstreamFailed     = 6001
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer: {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:  {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:       {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:   {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:      {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:       {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrBadRequest:     {ErrBadRequest, http.StatusBadRequest, "Bad request"},

	// Auth errors
	ErrAuthInvalidCredentials: {ErrAuthInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	ErrAuthUserNotFound:       {ErrAuthUserNotFound, http.StatusNotFound, "User not found"},
	ErrAuthEmailExists:        {ErrAuthEmailExists, http.StatusConflict, "Email already registered"},
	ErrAuthUsernameExists:     {ErrAuthUsernameExists, http.StatusConflict, "Username already taken"},
	ErrAuthInvalidToken:       {ErrAuthInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},
	ErrAuthTokenExpired:       {ErrAuthTokenExpired, http.StatusUnauthorized, "Token expired"},
	ErrAuthAccountDisabled:    {ErrAuthAccountDisabled, http.StatusForbidden, "Account is disabled"},

	// User errors
	ErrUserExists: {ErrUserExists, http.StatusConflict, "User already exists"},

	// File errors
	ErrFileNotFound:        {ErrFileNotFound, http.StatusNotFound, "File not found"},
	ErrFileEmpty:           {ErrFileEmpty, http.StatusBadRequest, "File is empty"},
	ErrFileTooLarge:        {ErrFileTooLarge, http.StatusBadRequest, "File size exceeds the allowed limit"},
	ErrFileAlreadyExists:   {ErrFileAlreadyExists, http.StatusConflict, "An identical file already exists"},
	ErrFileStorageFailed:   {ErrFileStorageFailed, http.StatusInternalServerError, "Failed to store file"},
	ErrFileNotInStorage:    {ErrFileNotInStorage, http.StatusNotFound, "File content not found in storage"},
	ErrFilePreviewDenied:   {ErrFilePreviewDenied, http.StatusBadRequest, "File type is not previewable"},
	ErrFileMissingField:    {ErrFileMissingField, http.StatusBadRequest, "Required upload field is missing"},
	ErrFileUploadForbidden: {ErrFileUploadForbidden, http.StatusForbidden, "No permission to upload to this target"},
	ErrFileViewForbidden:   {ErrFileViewForbidden, http.StatusForbidden, "No permission to view this file"},
	ErrFileDeleteForbidden: {ErrFileDeleteForbidden, http.StatusForbidden, "No permission to delete this file"},

	// Organization errors
	ErrDepartmentNotFound:    {ErrDepartmentNotFound, http.StatusNotFound, "Department not found"},
	ErrDepartmentHasUsers:    {ErrDepartmentHasUsers, http.StatusConflict, "Department still has assigned users"},
	ErrDepartmentHasProjects: {ErrDepartmentHasProjects, http.StatusConflict, "Department still has active projects"},
	ErrProjectNotFound:       {ErrProjectNotFound, http.StatusNotFound, "Project not found"},
	ErrProjectHasFiles:       {ErrProjectHasFiles, http.StatusConflict, "Project still has files"},
	ErrAssignmentNotFound:    {ErrAssignmentNotFound, http.StatusNotFound, "Assignment not found"},
	ErrAssignmentExists:      {ErrAssignmentExists, http.StatusConflict, "User is already assigned"},
	ErrAssignmentForbidden:   {ErrAssignmentForbidden, http.StatusForbidden, "No permission to manage assignments"},
	ErrDepartmentExists:      {ErrDepartmentExists, http.StatusConflict, "Department name already in use"},

	// Assistant errors
	ErrChatUpstreamOverloaded: {ErrChatUpstreamOverloaded, http.StatusServiceUnavailable, "Assistant is overloaded, try again later"},
	ErrChatUpstreamFailed:     {ErrChatUpstreamFailed, http.StatusInternalServerError, "Assistant request failed"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsSuccess checks if the code represents success
func IsSuccess(code int) bool {
	return code == Success
}

// IsClientError checks if the code represents a client error (4xx)
func IsClientError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}

// IsServerError checks if the code represents a server error (5xx)
func IsServerError(code int) bool {
	return GetHTTPStatus(code) >= 500
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
