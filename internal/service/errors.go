package service

import "errors"

// Stable eligibility and state errors surfaced verbatim to clients.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrAlreadyVerified   = errors.New("already verified")
	ErrRateLimited       = errors.New("rate limited")
	ErrSessionInProgress = errors.New("session in progress")
	ErrInvalidState      = errors.New("invalid state")
	ErrSessionExpired    = errors.New("session expired")
	ErrVideoTooLarge     = errors.New("video too large")
	ErrBadMediaType      = errors.New("unsupported media type")
	ErrInvalidVerdict    = errors.New("invalid verdict")
)
