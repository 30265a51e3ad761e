package media

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("media file not found")

	ErrNoFile           = fmt.Errorf("%w: no file uploaded", ErrValidation)
	ErrPayloadTooLarge  = fmt.Errorf("%w: payload too large", ErrValidation)
	ErrUnsupportedType  = fmt.Errorf("%w: only image and video files are allowed", ErrValidation)
	ErrInvalidTypeQuery = fmt.Errorf("%w: type must be image or video", ErrValidation)
	ErrNameTooLong      = fmt.Errorf("%w: file name too long", ErrValidation)
	ErrMimeTypeTooLong  = fmt.Errorf("%w: content type too long", ErrValidation)

	ErrUploadFailed = errors.New("upload failed")
	ErrRecordWrite  = errors.New("media record write failed")
	ErrRecordRead   = errors.New("media record read failed")
	ErrStorageRead  = errors.New("media storage read failed")
	ErrDeleteFailed = errors.New("media delete failed")

	// ErrBlobMissing means the row exists but its object does not. It is kept
	// apart from ErrNotFound so monitors can tell "never existed" from
	// "inconsistent".
	ErrBlobMissing = fmt.Errorf("%w: object missing for existing record", ErrStorageRead)

	// ErrObjectNotFound is returned by ObjectStorage implementations.
	ErrObjectNotFound = errors.New("object not found")
)
