package domain

import "errors"

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameInvalid = errors.New("username contains invalid characters")
	ErrIdentityExists  = errors.New("identity already exists")

	// ErrIdentityNotFound aborts connection setup.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrDecode aborts a single inbound event.
	ErrDecode = errors.New("decode error")
	// ErrStorageWrite aborts a single event's broadcast.
	ErrStorageWrite = errors.New("storage write error")
	// ErrUnrecognizedEvent marks inbound payloads with neither "message" nor "audio".
	ErrUnrecognizedEvent = errors.New("unrecognized event")

	ErrInvalidAudioFormat = errors.New("invalid audio format")
)
