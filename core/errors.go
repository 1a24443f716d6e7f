package core

import "errors"

var (
	// ErrMissingType marks a message published without a type.
	ErrMissingType = errors.New("missing message type")
	// ErrMissingSender marks a message published without a sender id.
	ErrMissingSender = errors.New("missing sender")
	// ErrMissingRecipient marks a directed message without a recipient.
	ErrMissingRecipient = errors.New("missing recipient for directed message")
)
