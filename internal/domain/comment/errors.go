package comment

import "errors"

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrMissingSubject  = errors.New("comment subject type and id are required")
	ErrMissingAuthor   = errors.New("comment author is required")
)
