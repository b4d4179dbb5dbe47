package middleware

// ErrorResponse is the envelope middleware uses when it aborts a request
// before a handler runs.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}
