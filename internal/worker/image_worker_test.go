package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/dto"
)

type fakeCompressor struct {
	calls []string
	err   error
}

func (f *fakeCompressor) CompressImage(_ context.Context, id string) error {
	f.calls = append(f.calls, id)
	return f.err
}

func TestHandleCompressionTask(t *testing.T) {
	codecErr := &domain.CodecError{Op: domain.OpDecode, Tag: "png", Err: domain.ErrInvalidImageData}

	tests := []struct {
		name      string
		task      dto.CompressImageRequest
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"success", dto.CompressImageRequest{ImageID: "a", OutputType: "webp"}, nil, 1, false},
		{"invalid task is dropped", dto.CompressImageRequest{ImageID: "a", OutputType: "bmp"}, nil, 0, false},
		{"codec failure is acknowledged", dto.CompressImageRequest{ImageID: "a", OutputType: "png"}, fmt.Errorf("compress: %w", codecErr), 1, false},
		{"missing image is acknowledged", dto.CompressImageRequest{ImageID: "a", OutputType: "png"}, domain.ErrImageNotFound, 1, false},
		{"transient failure is retried", dto.CompressImageRequest{ImageID: "a", OutputType: "png"}, errors.New("db down"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCompressor{err: tt.err}
			w := NewImageWorker(c)

			err := w.HandleCompressionTask(context.Background(), &tt.task)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, c.calls, tt.wantCalls)
		})
	}
}
