package responders

import "errors"

var (
	ErrResponderNotFound = errors.New("responder not found")
	ErrEmailExists       = errors.New("responder email already registered")
	ErrInvalidRole       = errors.New("invalid responder role")
)
