package usecase

import (
	"context"
	"time"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

// FormatUsecase answers codec readiness for the API from what workers last
// reported. A report older than staleAfter counts as not ready.
type FormatUsecase struct {
	repo       domain.FormatStatusRepository
	staleAfter time.Duration
	now        func() time.Time
}

func NewFormatUsecase(repo domain.FormatStatusRepository, staleAfter time.Duration) *FormatUsecase {
	return &FormatUsecase{
		repo:       repo,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Formats lists every known format. Formats no worker has reported are not ready.
func (u *FormatUsecase) Formats(ctx context.Context) ([]domain.FormatStatus, error) {
	reported, err := u.repo.List(ctx)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to load codec readiness")
		return nil, err
	}

	byFormat := make(map[domain.Format]domain.FormatStatus, len(reported))
	for _, s := range reported {
		byFormat[s.Format] = s
	}

	now := u.now()
	out := make([]domain.FormatStatus, 0, len(domain.AllFormats()))
	for _, f := range domain.AllFormats() {
		s, ok := byFormat[f]
		out = append(out, domain.FormatStatus{
			Format:    f,
			Ready:     ok && s.Ready && now.Sub(s.UpdatedAt) <= u.staleAfter,
			Lossless:  f.Lossless(),
			UpdatedAt: s.UpdatedAt,
		})
	}
	return out, nil
}
