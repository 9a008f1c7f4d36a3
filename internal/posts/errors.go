package posts

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches any error reporting a missing post.
	ErrNotFound = errors.New("post not found")
	// ErrInternal matches any unexpected persistence failure.
	ErrInternal = errors.New("internal error")
)

// NotFoundError names the post that was not found.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Post with ID %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InternalError carries the store failure behind a public message. Only
// Message is meant for clients; Err is for logs.
type InternalError struct {
	Op      string
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}
