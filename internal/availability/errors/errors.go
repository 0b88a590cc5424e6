package errors

import "errors"

var (
	ErrNotFound = errors.New("availability day not found")
)
