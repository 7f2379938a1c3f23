package dto

import (
	"errors"
	"fmt"

	"github.com/yokitheyo/imagecompressor/internal/domain"
)

var ErrInvalidTask = errors.New("invalid compression task")

// UploadImageRequest is read from the multipart form next to the "image" file.
// Quality is nil when the form leaves it out.
type UploadImageRequest struct {
	OutputType string
	Quality    *int
}

// CompressImageRequest is the Kafka message body for one compression job.
type CompressImageRequest struct {
	ImageID    string `json:"image_id"`
	OutputType string `json:"output_type"`
	Quality    int    `json:"quality"`
}

func (r *CompressImageRequest) Validate() error {
	if r.ImageID == "" {
		return fmt.Errorf("%w: empty image_id", ErrInvalidTask)
	}
	if _, ok := domain.ParseFormat(r.OutputType); !ok {
		return fmt.Errorf("%w: output_type %q", ErrInvalidTask, r.OutputType)
	}
	return nil
}

type ListImagesQuery struct {
	Status string
	Limit  int
	Offset int
}

// ToFilter validates the status and clamps pagination.
func (q *ListImagesQuery) ToFilter() (domain.ListFilter, error) {
	var status domain.ProcessingStatus
	if q.Status != "" {
		st, ok := domain.ParseStatus(q.Status)
		if !ok {
			return domain.ListFilter{}, fmt.Errorf("unknown status %q", q.Status)
		}
		status = st
	}
	return domain.ListFilter{Status: status, Limit: q.Limit, Offset: q.Offset}.Normalized(), nil
}
