package errors

import "fmt"

// ErrorCode represents an lnfee error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrInvalidConfig  ErrorCode = "INVALID_CONFIG"  // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrInvalidFee     ErrorCode = "INVALID_FEE"     // 422
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrGateway        ErrorCode = "GATEWAY"         // 502
)

// FeeError represents a structured error with code, status, and details.
type FeeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *FeeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *FeeError {
	return &FeeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidConfig creates a 400 error for a configuration value that fails validation.
func NewInvalidConfig(field, msg string) *FeeError {
	return &FeeError{
		Code:    ErrInvalidConfig,
		Status:  400,
		Message: fmt.Sprintf("invalid config %s: %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

// NewNotFound creates a 404 error for when a channel cannot be found.
func NewNotFound(identifier string) *FeeError {
	return &FeeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("channel not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing input file.
func NewFileNotFound(path string) *FeeError {
	return &FeeError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewInvalidFee creates a 422 error for a fee pair the node must never receive.
func NewInvalidFee(localFee, inboundFee int64) *FeeError {
	return &FeeError{
		Code:    ErrInvalidFee,
		Status:  422,
		Message: fmt.Sprintf("inbound fee must not be positive: %d", inboundFee),
		Details: map[string]any{"local_fee": localFee, "inbound_fee": inboundFee},
	}
}

// NewGateway creates a 502 error for a failed fee push.
func NewGateway(channelID string, err error) *FeeError {
	msg := "fee update failed"
	if err != nil {
		msg = err.Error()
	}
	return &FeeError{
		Code:    ErrGateway,
		Status:  502,
		Message: msg,
		Details: map[string]any{"channel_id": channelID},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *FeeError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &FeeError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a FeeError with the given code.
func Is(err error, code ErrorCode) bool {
	if fErr, ok := err.(*FeeError); ok {
		return fErr.Code == code
	}
	return false
}
