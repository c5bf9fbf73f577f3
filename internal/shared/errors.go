package shared

import "errors"

// Sentinels shared across modules. Handlers translate these to HTTP
// statuses; services wrap them with context via fmt.Errorf and %w.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCSRFTokenMissing   = errors.New("csrf token missing")
	ErrCSRFTokenMismatch  = errors.New("csrf token mismatch")
)
