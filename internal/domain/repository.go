package domain

import "context"

type ImageRepository interface {
	Create(ctx context.Context, image *ImageFile) error
	FindByID(ctx context.Context, id string) (*ImageFile, error)
	Update(ctx context.Context, image *ImageFile) error
	Delete(ctx context.Context, id string) error
	FindByStatus(ctx context.Context, status ProcessingStatus, limit, offset int) ([]*ImageFile, error)
	List(ctx context.Context, limit, offset int) ([]*ImageFile, error)
	// UpdateStatus moves a job from one status to another and stores errMsg
	// with it. It returns ErrStatusConflict when the job is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to ProcessingStatus, errMsg string) error
}

// FormatStatusRepository shares codec readiness between the worker and the API.
type FormatStatusRepository interface {
	Save(ctx context.Context, statuses []FormatStatus) error
	List(ctx context.Context) ([]FormatStatus, error)
}
