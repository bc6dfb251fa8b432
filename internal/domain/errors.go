package domain

// APIError is an RFC 7807 problem body. Workflow rejections also carry the
// season status involved so a client can render the reason without parsing Detail.
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`

	CurrentStatus   SeasonStatus `json:"currentStatus,omitempty"`
	RequestedStatus SeasonStatus `json:"requestedStatus,omitempty"`
	NextStatus      SeasonStatus `json:"nextStatus,omitempty"`
	EntityKind      EntityKind   `json:"entityKind,omitempty"`
	Operation       Operation    `json:"operation,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages maps validator tags used on request DTOs to messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"max":      "Exceeds maximum length",
	"gte":      "Must be greater than or equal to minimum value",
	"oneof":    "Must be one of the allowed values",
	"alphanum": "Must contain only alphanumeric characters",
	"datetime": "Must be a valid date (YYYY-MM-DD)",
	"email":    "Must be a valid email address",
	"min":      "Below minimum length",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeConflict     = "conflict"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeInternal     = "internal_error"

	ErrorTypeInvalidTransition = "invalid_transition"
	ErrorTypeWorkflowViolation = "workflow_violation"
	ErrorTypeInvalidState      = "invalid_state"
)
