package tracking

import "errors"

var (
	ErrPermissionDenied   = errors.New("location permission denied")
	ErrAlreadyRecording   = errors.New("recording already in progress")
	ErrNotRecording       = errors.New("no active recording")
	ErrInvalidMode        = errors.New("invalid tracking mode")
	ErrInvalidSample      = errors.New("invalid location sample")
	ErrNoSubscription     = errors.New("location source has no active subscription")
	ErrSubscriptionClosed = errors.New("subscription closed")
	ErrSaveFailed         = errors.New("route could not be saved")
	ErrNoOwner            = errors.New("missing owner")
)
