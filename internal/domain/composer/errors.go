package composer

import "errors"

var (
	ErrComposerNotFound = errors.New("composer not found")
	ErrNotOwner         = errors.New("composer belongs to another user")
	ErrSubjectNotSet    = errors.New("subject id is not set")
	ErrRowNotFound      = errors.New("attachment row not found")
	ErrInvalidManifest  = errors.New("invalid upload manifest")
	ErrFileTooLarge     = errors.New("file exceeds the upload size limit")
	ErrNoFiles          = errors.New("no files in upload")
)
