package domain

import (
	"time"
)

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusQueued     ProcessingStatus = "queued"
	StatusProcessing ProcessingStatus = "processing"
	StatusComplete   ProcessingStatus = "complete"
	StatusError      ProcessingStatus = "error"
)

// ImageFile is a single compression job: the uploaded original and, once
// complete, the re-encoded output.
type ImageFile struct {
	ID               string           `json:"id"`
	OriginalFilename string           `json:"original_filename"`
	OriginalPath     string           `json:"original_path"`
	PreviewPath      string           `json:"preview_path,omitempty"`
	OutputPath       string           `json:"output_path,omitempty"`
	MimeType         string           `json:"mime_type"`
	SourceType       Format           `json:"source_type"`
	OutputType       Format           `json:"output_type"`
	Quality          int              `json:"quality"`
	OriginalSize     int64            `json:"original_size"`
	CompressedSize   int64            `json:"compressed_size,omitempty"`
	Width            int              `json:"width,omitempty"`
	Height           int              `json:"height,omitempty"`
	Status           ProcessingStatus `json:"status"`
	ErrorMessage     string           `json:"error_message,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

func (i *ImageFile) IsComplete() bool {
	return i.Status == StatusComplete
}

func (i *ImageFile) IsFailed() bool {
	return i.Status == StatusError
}

func (i *ImageFile) CanBeProcessed() bool {
	return i.Status == StatusPending || i.Status == StatusQueued || i.Status == StatusError
}

// CanBeRequeued reports whether a job may be put back on the queue: it failed,
// or it has not moved on from pending, queued or processing within staleAfter.
func (i *ImageFile) CanBeRequeued(now time.Time, staleAfter time.Duration) bool {
	switch i.Status {
	case StatusError:
		return true
	case StatusPending, StatusQueued, StatusProcessing:
		return staleAfter > 0 && now.Sub(i.UpdatedAt) > staleAfter
	default:
		return false
	}
}

func (i *ImageFile) MarkAsQueued() {
	i.Status = StatusQueued
	i.ErrorMessage = ""
	i.UpdatedAt = time.Now()
}

func (i *ImageFile) MarkAsProcessing() {
	i.Status = StatusProcessing
	i.ErrorMessage = ""
	i.UpdatedAt = time.Now()
}

func (i *ImageFile) MarkAsComplete(outputPath string, compressedSize int64, width, height int) {
	i.Status = StatusComplete
	i.OutputPath = outputPath
	i.CompressedSize = compressedSize
	i.Width = width
	i.Height = height
	now := time.Now()
	i.CompletedAt = &now
	i.UpdatedAt = now
	i.ErrorMessage = ""
}

func (i *ImageFile) MarkAsError(errMsg string) {
	i.Status = StatusError
	i.ErrorMessage = errMsg
	i.UpdatedAt = time.Now()
}

// SavingsPercent is the size reduction of the output relative to the original.
// Negative when the output grew.
func (i *ImageFile) SavingsPercent() float64 {
	if !i.IsComplete() || i.OriginalSize <= 0 {
		return 0
	}
	return float64(i.OriginalSize-i.CompressedSize) / float64(i.OriginalSize) * 100
}
