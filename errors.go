package pdfreport

import (
	"errors"
	"fmt"
)

// Sentinel errors for report rendering failure conditions.
var (
	ErrInvalidDocument = errors.New("pdfreport: invalid document")
	ErrImageDecode     = errors.New("pdfreport: image could not be decoded")
	ErrSerialization   = errors.New("pdfreport: document could not be serialized")
	ErrInvalidParam    = errors.New("pdfreport: invalid parameter")
)

// RenderError represents an error that occurred during a specific render step.
// It wraps an underlying error and includes the operation name for context.
type RenderError struct {
	Op  string // operation name, e.g. "validate", "serialize"
	Err error  // underlying error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdfreport.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("pdfreport.%s: unknown error", e.Op)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// newRenderError creates a new RenderError wrapping the given error with operation context.
func newRenderError(op string, err error) *RenderError {
	return &RenderError{Op: op, Err: err}
}

// InvalidDocumentError rejects a document before anything is drawn.
type InvalidDocumentError struct {
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	return "invalid document: " + e.Reason
}

func (e *InvalidDocumentError) Is(target error) bool {
	return target == ErrInvalidDocument
}

// ImageDecodeError describes an image block that could not be fetched or
// decoded. It never aborts a render: the block is replaced by placeholder
// text and the error is reported in RenderedDocument.Warnings.
type ImageDecodeError struct {
	Index int    // position of the block in document order
	Ref   string // image reference, empty for inline data
	Err   error
}

func (e *ImageDecodeError) Error() string {
	ref := e.Ref
	if ref == "" {
		ref = "inline data"
	}
	return fmt.Sprintf("image %d (%s): %v", e.Index, ref, e.Err)
}

func (e *ImageDecodeError) Unwrap() error {
	return e.Err
}

func (e *ImageDecodeError) Is(target error) bool {
	return target == ErrImageDecode
}

// SerializationError is returned when the finished pages cannot be written
// out as a PDF. No partial output accompanies it.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization failed: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}
