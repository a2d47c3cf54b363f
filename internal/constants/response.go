package constants

// Envelope field keys
const (
	ResponseFieldStatusCode = "statusCode"
	ResponseFieldData       = "data"
	ResponseFieldMessage    = "message"
	ResponseFieldSuccess    = "success"
	ResponseFieldErrors     = "errors"
)

// BuildSuccessResponse wraps data in the success envelope.
func BuildSuccessResponse(statusCode int, data any, message string) map[string]any {
	return map[string]any{
		ResponseFieldStatusCode: statusCode,
		ResponseFieldData:       data,
		ResponseFieldMessage:    message,
		ResponseFieldSuccess:    statusCode < 400,
	}
}

// BuildErrorResponse wraps a failure in the error envelope. errs is never null in the output.
func BuildErrorResponse(statusCode int, message string, errs []string) map[string]any {
	if errs == nil {
		errs = []string{}
	}
	return map[string]any{
		ResponseFieldStatusCode: statusCode,
		ResponseFieldData:       nil,
		ResponseFieldMessage:    message,
		ResponseFieldSuccess:    false,
		ResponseFieldErrors:     errs,
	}
}
