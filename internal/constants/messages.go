package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "Unauthorized"
	MsgRateLimited        = "Too many requests"

	// Shortener-specific messages
	MsgInvalidURL   = "Invalid URL (must be http or https)"
	MsgInvalidAlias = "Invalid alias (1-32 characters, letters, digits, - and _)"
	MsgAliasTaken   = "Custom alias already in use"
	MsgLinkNotFound = "Link not found"
)
