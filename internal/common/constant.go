package common

// Placeholders used for audit attribution when the subject of a request
// cannot be identified.
const (
	InvalidUserID   = "InvalidUserID"
	InvalidUserName = "InvalidUserName"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"
