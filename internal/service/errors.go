package service

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrProjectNotFound       = errors.New("project not found")
	ErrAccessDenied          = errors.New("access denied: user is not a project member")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrRegistrationFailed    = errors.New("registration failed: username or email already exists")
	ErrSessionNotActive      = errors.New("collaboration session missing or inactive")
	ErrInvalidOperation      = errors.New("invalid edit operation")
	ErrDownstreamUnavailable = errors.New("ai suggestion provider unavailable")
	ErrInternalServer        = errors.New("internal server error")
)
