package types

// ErrorResponse is the OpenAI-compatible error envelope returned on every
// non-streaming failure path.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error message plus machine-readable classification.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error type constants matching the OpenAI API specification.
const (
	ErrorTypeInvalidRequest     = "invalid_request_error"
	ErrorTypeAuthentication     = "authentication_error"
	ErrorTypePermissionDenied   = "permission_denied"
	ErrorTypeNotFound           = "not_found"
	ErrorTypeServerError        = "server_error"
	ErrorTypeBadGateway         = "bad_gateway"
	ErrorTypeServiceUnavailable = "service_unavailable"
	ErrorTypeGatewayTimeout     = "gateway_timeout"
)

// Error codes for common gateway failures.
const (
	CodeInvalidJSON       = "invalid_json"
	CodeMissingField      = "missing_field"
	CodeInvalidValue      = "invalid_value"
	CodeMissingCredential = "missing_credential"
	CodeNotSessionOwner   = "not_session_owner"
	CodeSessionNotFound   = "session_not_found"
	CodePromptNotFound    = "prompt_not_found"
	CodeVariableMismatch  = "prompt_variable_mismatch"
	CodeUpstreamError     = "upstream_error"
	CodeInternalError     = "internal_error"
)

// NewErrorResponse builds an error envelope.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError builds a 400 envelope.
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewAuthenticationError builds a 401 envelope.
func NewAuthenticationError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeAuthentication, "", code)
}

// NewNotFoundError builds a 404 envelope.
func NewNotFoundError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeNotFound, "", code)
}

// NewServerError builds a 500 envelope with a generic message; internal
// details stay in the logs.
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewBadGatewayError builds a 502 envelope.
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, "", CodeUpstreamError)
}

// HTTPStatusCode maps the error type to its transport status.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return 400
	case ErrorTypeAuthentication:
		return 401
	case ErrorTypePermissionDenied:
		return 403
	case ErrorTypeNotFound:
		return 404
	case ErrorTypeServerError:
		return 500
	case ErrorTypeBadGateway:
		return 502
	case ErrorTypeServiceUnavailable:
		return 503
	case ErrorTypeGatewayTimeout:
		return 504
	default:
		return 500
	}
}
