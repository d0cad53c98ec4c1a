package core

import "errors"

var (
	// ErrInvalidInput is returned when a request body is missing required fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateUser is returned when registering a username that already exists.
	ErrDuplicateUser = errors.New("user already registered")
	// ErrNotRegistered is returned by login for an unknown username.
	ErrNotRegistered = errors.New("user not registered")
	// ErrWrongPassword is returned by login when the password does not match the stored hash.
	ErrWrongPassword = errors.New("wrong password")
	// ErrUnauthorized is returned when the list gate secret does not match.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPostNotFound is returned when no post matches a slug.
	ErrPostNotFound = errors.New("blog post not found")
	// ErrMissingAttachment is returned when a post is created without a photo.
	ErrMissingAttachment = errors.New("attachment is required")
	// ErrAttachmentTooLarge is returned when an upload exceeds the configured limit.
	ErrAttachmentTooLarge = errors.New("attachment too large")
	// ErrAttachmentNotFound is returned when a stored attachment does not exist.
	ErrAttachmentNotFound = errors.New("attachment not found")
)
