package types

type contextKey string

// Context keys carried from the HTTP layer into logging and telemetry.
const (
	ContextKeyRequestID     contextKey = "request_id"
	ContextKeyUserID        contextKey = "user_id"
	ContextKeyRequestSource contextKey = "request_source"
)
