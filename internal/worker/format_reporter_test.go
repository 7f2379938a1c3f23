package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

type staticSource []domain.FormatStatus

func (s staticSource) Formats() []domain.FormatStatus { return s }

type recordingRepo struct {
	mu    sync.Mutex
	saves [][]domain.FormatStatus
	err   error
}

func (r *recordingRepo) Save(_ context.Context, statuses []domain.FormatStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, statuses)
	return r.err
}

func (r *recordingRepo) List(context.Context) ([]domain.FormatStatus, error) { return nil, nil }

func (r *recordingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func TestFormatReporter_Report(t *testing.T) {
	source := staticSource{{Format: domain.FormatPNG, Ready: true, Lossless: true}}
	repo := &recordingRepo{}

	require.NoError(t, NewFormatReporter(source, repo, time.Second).Report(context.Background()))
	require.Len(t, repo.saves, 1)
	assert.Equal(t, []domain.FormatStatus(source), repo.saves[0])

	repo.err = errors.New("db down")
	assert.Error(t, NewFormatReporter(source, repo, time.Second).Report(context.Background()))
}

func TestFormatReporter_RunUntilCancelled(t *testing.T) {
	repo := &recordingRepo{}
	r := NewFormatReporter(staticSource{{Format: domain.FormatGIF}}, repo, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return repo.count() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop")
	}
}
