package faults

import "errors"

// taggedError attaches a category to an error so the classifier can
// resolve it without text matching.
type taggedError struct {
	err      error
	category Category
}

// Error implements the error interface.
func (t *taggedError) Error() string {
	return t.err.Error()
}

// Unwrap returns the wrapped error.
func (t *taggedError) Unwrap() error {
	return t.err
}

// Tag wraps err with an explicit category. The classifier honors the
// tag ahead of every typed check and text rule. Tagging nil returns nil.
func Tag(err error, category Category) error {
	if err == nil {
		return nil
	}
	return &taggedError{err: err, category: category}
}

// CategoryOf returns the tagged category of err, or CategoryUnknown and
// false when err carries no tag.
func CategoryOf(err error) (Category, bool) {
	var tagged *taggedError
	if errors.As(err, &tagged) {
		return tagged.category, true
	}
	return CategoryUnknown, false
}
