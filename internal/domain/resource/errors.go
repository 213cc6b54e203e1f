package resource

import "errors"

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrInvalidPath      = errors.New("resource path is invalid")
	ErrEmptyName        = errors.New("resource name is empty")
)
