package postgres

import (
	"context"
	"fmt"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

type formatStatusRepository struct {
	db       *dbpg.DB
	strategy retry.Strategy
}

func NewFormatStatusRepository(db *dbpg.DB, strategy retry.Strategy) domain.FormatStatusRepository {
	return &formatStatusRepository{
		db:       db,
		strategy: strategy,
	}
}

func (r *formatStatusRepository) Save(ctx context.Context, statuses []domain.FormatStatus) error {
	query := `
		INSERT INTO codec_status (format, ready, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (format) DO UPDATE
		SET ready = EXCLUDED.ready,
		    updated_at = EXCLUDED.updated_at
	`

	for _, s := range statuses {
		if _, err := r.db.ExecWithRetry(ctx, r.strategy, query, s.Format, s.Ready); err != nil {
			zlog.Logger.Error().Err(err).Str("format", s.Format.String()).Msg("failed to save codec status")
			return fmt.Errorf("save codec status: %w", err)
		}
	}
	return nil
}

func (r *formatStatusRepository) List(ctx context.Context) ([]domain.FormatStatus, error) {
	rows, err := r.db.QueryWithRetry(ctx, r.strategy, `SELECT format, ready, updated_at FROM codec_status`)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list codec status")
		return nil, fmt.Errorf("list codec status: %w", err)
	}
	defer rows.Close()

	out := make([]domain.FormatStatus, 0)
	for rows.Next() {
		var s domain.FormatStatus
		if err := rows.Scan(&s.Format, &s.Ready, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan codec status: %w", err)
		}
		s.Lossless = s.Format.Lossless()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
