package myerrors

import "errors"

var (
	ErrValidation   = errors.New("invalid event payload")
	ErrIdentity     = errors.New("claimed id does not match the authenticated identity")
	ErrThrottled    = errors.New("location update throttled")
	ErrUnknownEvent = errors.New("unknown event type")
)
