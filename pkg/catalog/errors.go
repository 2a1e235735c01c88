package catalog

import "errors"

var (
	// ErrNotFound is returned when a component does not exist.
	ErrNotFound = errors.New("component not found")

	// ErrInvalidInput is returned when required component fields are blank.
	ErrInvalidInput = errors.New("invalid component input")

	// ErrNoFieldsToUpdate is returned by UpdateResources when the patch is empty.
	ErrNoFieldsToUpdate = errors.New("no valid fields provided to update")

	// ErrNotAnImage is returned when an upload does not carry an image content type.
	ErrNotAnImage = errors.New("only image files are allowed")

	// ErrImageTooLarge is returned when an upload exceeds MaxImageSize.
	ErrImageTooLarge = errors.New("image size exceeds 5MB")

	// ErrImageStorageDisabled is returned when an image operation is
	// requested but no image store is configured.
	ErrImageStorageDisabled = errors.New("image storage is not configured")
)
