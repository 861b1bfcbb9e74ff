package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidPrompt    = errors.New("invalid prompt")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrSubmissionFailed = errors.New("submission failed")
	ErrProviderFailure  = errors.New("provider failure")
)
