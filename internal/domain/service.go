package domain

import (
	"context"
	"io"
)

// UploadRequest describes a file handed to the compressor.
type UploadRequest struct {
	Filename   string
	MimeType   string
	Size       int64
	Reader     io.Reader
	OutputType string
	// Quality nil selects the configured default for the output format.
	Quality *int
}

// FileVariant selects which stored file of a job to read.
type FileVariant string

const (
	VariantCompressed FileVariant = "compressed"
	VariantOriginal   FileVariant = "original"
	VariantPreview    FileVariant = "preview"
)

// ImageContent is an open stored file together with the name and type to serve it under.
type ImageContent struct {
	io.ReadCloser
	Filename    string
	ContentType string
}

type ImageService interface {
	UploadImage(ctx context.Context, req UploadRequest) (*ImageFile, error)
	GetImage(ctx context.Context, id string) (*ImageFile, error)
	GetImageFile(ctx context.Context, id string, variant FileVariant) (*ImageContent, error)
	RequeueImage(ctx context.Context, id string) (*ImageFile, error)
	DeleteImage(ctx context.Context, id string) error
	ListImages(ctx context.Context, filter ListFilter) ([]*ImageFile, error)
}

// ListFilter pages through jobs, optionally only those in one status.
type ListFilter struct {
	Status ProcessingStatus
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalized applies the default page size and clamps limit to 1..MaxPageLimit.
func (f ListFilter) Normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	f.Limit = min(f.Limit, MaxPageLimit)
	f.Offset = max(f.Offset, 0)
	return f
}

// ParseStatus accepts a status name as stored on the job.
func ParseStatus(s string) (ProcessingStatus, bool) {
	switch st := ProcessingStatus(s); st {
	case StatusPending, StatusQueued, StatusProcessing, StatusComplete, StatusError:
		return st, true
	default:
		return "", false
	}
}

type CompressorService interface {
	CompressImage(ctx context.Context, imageID string) error
}

type QueueService interface {
	PublishCompressionTask(ctx context.Context, imageID string, outputType Format, quality int) error
	Close() error
}
