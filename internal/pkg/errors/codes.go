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
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// User errors (2000-2999)
	ErrUserNotFound     = 2000
	ErrUserExists       = 2001
	ErrUserInvalidInput = 2002

	// Storage accounting errors (3000-3999)
	ErrQuotaExceeded = 3000
	ErrConsistency   = 3001

	// Upload / photo errors (4000-4999)
	ErrPhotoNotFound     = 4000
	ErrGalleryNotFound   = 4001
	ErrFileTooLarge      = 4002
	ErrInvalidImage      = 4003
	ErrAlreadyProcessed  = 4004
	ErrShareLinkNotFound = 4005

	// Object storage errors (5000-5999)
	ErrStorage        = 5000
	ErrObjectNotFound = 5001
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	// User errors
	ErrUserNotFound:     {ErrUserNotFound, http.StatusNotFound, "User not found"},
	ErrUserExists:       {ErrUserExists, http.StatusConflict, "User already exists"},
	ErrUserInvalidInput: {ErrUserInvalidInput, http.StatusBadRequest, "Invalid user input"},

	// Storage accounting errors
	ErrQuotaExceeded: {ErrQuotaExceeded, http.StatusForbidden, "Storage quota exceeded"},
	ErrConsistency:   {ErrConsistency, http.StatusInternalServerError, "Storage accounting inconsistency"},

	// Upload / photo errors
	ErrPhotoNotFound:     {ErrPhotoNotFound, http.StatusNotFound, "Photo not found"},
	ErrGalleryNotFound:   {ErrGalleryNotFound, http.StatusNotFound, "Gallery not found"},
	ErrFileTooLarge:      {ErrFileTooLarge, http.StatusBadRequest, "File size exceeds limit"},
	ErrInvalidImage:      {ErrInvalidImage, http.StatusBadRequest, "File is not a valid image"},
	ErrAlreadyProcessed:  {ErrAlreadyProcessed, http.StatusConflict, "Upload already processed"},
	ErrShareLinkNotFound: {ErrShareLinkNotFound, http.StatusNotFound, "Share link not found"},

	// Object storage errors
	ErrStorage:        {ErrStorage, http.StatusInternalServerError, "Storage operation failed"},
	ErrObjectNotFound: {ErrObjectNotFound, http.StatusNotFound, "Object not found in storage"},
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
	status := GetHTTPStatus(code)
	return status >= 500
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
