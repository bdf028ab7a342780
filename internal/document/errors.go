package document

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by *Error.
var (
	ErrEmpty           = errors.New("empty document buffer")
	ErrTooLarge        = errors.New("document exceeds size limit")
	ErrInvalidDocument = errors.New("not a valid PDF document")
	ErrPageOutOfRange  = errors.New("page out of range")
	ErrExtract         = errors.New("text extraction failed")
	ErrRender          = errors.New("page rendering failed")
)

// Error describes a failure tied to one document, and optionally one page of it.
type Error struct {
	Doc  string `json:"document"`
	Op   string `json:"operation"`
	Page int    `json:"page,omitempty"`
	Err  error  `json:"error"`
}

func (e *Error) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("document %q: %s page %d: %v", e.Doc, e.Op, e.Page, e.Err)
	}
	return fmt.Sprintf("document %q: %s: %v", e.Doc, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// recovered converts a panic value raised inside a third-party parser into an error.
func recovered(r any, cause error) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", cause, err)
	}
	return fmt.Errorf("%w: %v", cause, r)
}
