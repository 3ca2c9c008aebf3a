package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// Quota reservation rejections. Each maps to one RejectReason so the
	// HTTP layer can report why the metered work was refused.
	ErrQuotaExceeded        = errors.New("usage limit reached")
	ErrSubscriptionInactive = errors.New("subscription is not active")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
