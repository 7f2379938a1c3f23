package domain

import (
	"errors"
	"fmt"
)

var (
	ErrImageNotFound     = errors.New("image not found")
	ErrInvalidFormat     = errors.New("invalid or unsupported image format")
	ErrFileTooLarge      = errors.New("file size exceeds maximum allowed")
	ErrInvalidImageData  = errors.New("invalid image data")
	ErrStorageFailed     = errors.New("storage operation failed")
	ErrQueueFailed       = errors.New("queue operation failed")
	ErrAlreadyProcessing = errors.New("image is already being processed")
	ErrNotCompressed     = errors.New("image not compressed yet")
	ErrStatusConflict    = errors.New("image status changed concurrently")

	ErrUnsupportedSource = errors.New("unsupported source type")
	ErrUnsupportedOutput = errors.New("unsupported output type")
	ErrCodecFailed       = errors.New("codec operation failed")
)

// CodecOp names the direction of a codec call.
type CodecOp string

const (
	OpDecode CodecOp = "decode"
	OpEncode CodecOp = "encode"
)

// CodecError is returned by the dispatcher for every decode/encode failure.
// Error() keeps the short generic message; Unwrap exposes the underlying cause.
type CodecError struct {
	Op  CodecOp
	Tag string
	Err error
}

func (e *CodecError) Error() string {
	if e.Op == OpDecode {
		return fmt.Sprintf("failed to decode %s image", e.Tag)
	}
	return fmt.Sprintf("failed to encode to %s", e.Tag)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// Is matches ErrCodecFailed unless the call never reached a codec because the tag was unknown.
func (e *CodecError) Is(target error) bool {
	if target != ErrCodecFailed {
		return false
	}
	return !errors.Is(e.Err, ErrUnsupportedSource) && !errors.Is(e.Err, ErrUnsupportedOutput)
}
