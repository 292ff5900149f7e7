package loader

import "errors"

var (
	// ErrRootRequired is returned when no content root is configured.
	ErrRootRequired = errors.New("content root required")

	// ErrUnsupportedCategory is returned for a scope outside the configured categories.
	ErrUnsupportedCategory = errors.New("unsupported category")

	// ErrCategoryMismatch is returned when metadata names a different category than its directory.
	ErrCategoryMismatch = errors.New("metadata category does not match directory")

	// ErrInvalidSlug is returned for a slug that is not a single directory name.
	ErrInvalidSlug = errors.New("invalid slug")
)
