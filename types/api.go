package types

// APIResponse is the standardized envelope for every HTTP response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func NewSuccessResponse(data interface{}) *APIResponse {
	return &APIResponse{Success: true, Data: data}
}

func NewErrorResponse(code, message string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	}
}

// Common error codes
const (
	ErrorCodeValidation     = "VALIDATION_ERROR"
	ErrorCodeUnauthorized   = "UNAUTHORIZED"
	ErrorCodeForbidden      = "FORBIDDEN"
	ErrorCodeNotFound       = "NOT_FOUND"
	ErrorCodeConflict       = "CONFLICT"
	ErrorCodeInternal       = "INTERNAL_ERROR"
	ErrorCodeInvalidToken   = "INVALID_TOKEN"
	ErrorCodeInvalidRequest = "INVALID_REQUEST"
)
