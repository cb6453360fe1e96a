package resputil

// ErrorCode is the machine-readable code of the envelope. The first three digits
// follow the HTTP status the code is usually sent with.
type ErrorCode int

const (
	OK ErrorCode = 0

	// Malformed body, path or query parameters
	InvalidRequest ErrorCode = 40001

	// Token
	TokenExpired ErrorCode = 40101
	TokenInvalid ErrorCode = 40102
	// The account changed role or was deactivated after the token was issued
	TokenOutdated ErrorCode = 40103

	InvalidCredentials ErrorCode = 40106

	// Wrong role, or not the owner / session coordinator of the application
	UserNotAllowed ErrorCode = 40301

	// The resource does not exist or is not visible to the user
	ResourceNotFound ErrorCode = 40401

	// Uploaded document over the size limit
	FileTooLarge ErrorCode = 41301

	ServiceError ErrorCode = 50001

	// Frontend prints the message as is, without translation
	NotSpecified ErrorCode = 99999
)
