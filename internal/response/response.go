package response

// SuccessResponse is a plain confirmation
type SuccessResponse struct {
	Message string `json:"message" example:"Operation completed"`
}

// ErrorResponse is returned by every failing endpoint
type ErrorResponse struct {
	// Machine readable error code
	// example: VALIDATION_ERROR
	Code string `json:"code"`

	// Human readable message
	// example: Request validation failed
	Message string `json:"message"`

	// Optional details
	// example: doctor_id must be greater than 0
	Details string `json:"details,omitempty"`
}

// TokenResponse carries a freshly issued token pair
type TokenResponse struct {
	// JWT for protected endpoints
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"access_token"`

	// JWT used to obtain a new access token
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"refresh_token"`
}

// Error codes shared by the REST facade and the websocket gateway.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeForbidden         = "FORBIDDEN"
	CodeDB                = "DB_ERROR"
)
