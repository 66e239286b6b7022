package service

import "errors"

// Errors returned by the services. Handlers map them to HTTP statuses;
// anything else is treated as an internal failure.
var (
	// 400
	ErrInvalidRequestType   = errors.New("invalid request type")
	ErrRoleMismatch         = errors.New("target user has the wrong role for this request")
	ErrDuplicateRequest     = errors.New("link request already exists")
	ErrAlreadyLinked        = errors.New("already linked to this parent")
	ErrInvalidAction        = errors.New("invalid action")
	ErrRequestNotPending    = errors.New("request has already been answered")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInappropriateContent = errors.New("content contains inappropriate language")
	ErrEmailTaken           = errors.New("email already taken")

	// 401
	ErrInvalidCredentials = errors.New("invalid email or password")

	// 403
	ErrForbidden = errors.New("access denied")

	// 404
	ErrNotFound = errors.New("not found")
)

// detailedError carries a caller-facing message while matching its kind with errors.Is
type detailedError struct {
	kind error
	msg  string
}

func (e *detailedError) Error() string { return e.msg }
func (e *detailedError) Unwrap() error { return e.kind }

func withMessage(kind error, msg string) error {
	return &detailedError{kind: kind, msg: msg}
}
