package usecase

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/infrastructure/storage"
)

type memRepo struct {
	mu     sync.Mutex
	images map[string]domain.ImageFile
	// updateErr, when set, can reject a full-row Update.
	updateErr func(img *domain.ImageFile) error
}

func newMemRepo() *memRepo {
	return &memRepo{images: make(map[string]domain.ImageFile)}
}

func (r *memRepo) Create(_ context.Context, img *domain.ImageFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[img.ID] = *img
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*domain.ImageFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return nil, domain.ErrImageNotFound
	}
	return &img, nil
}

func (r *memRepo) Update(_ context.Context, img *domain.ImageFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		if err := r.updateErr(img); err != nil {
			return err
		}
	}
	if _, ok := r.images[img.ID]; !ok {
		return domain.ErrImageNotFound
	}
	r.images[img.ID] = *img
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[id]; !ok {
		return domain.ErrImageNotFound
	}
	delete(r.images, id)
	return nil
}

func (r *memRepo) FindByStatus(ctx context.Context, status domain.ProcessingStatus, limit, offset int) ([]*domain.ImageFile, error) {
	all, _ := r.List(ctx, 1<<30, 0)
	var out []*domain.ImageFile
	for _, img := range all {
		if img.Status == status {
			out = append(out, img)
		}
	}
	return page(out, limit, offset), nil
}

func (r *memRepo) List(_ context.Context, limit, offset int) ([]*domain.ImageFile, error) {
	r.mu.Lock()
	out := make([]*domain.ImageFile, 0, len(r.images))
	for _, img := range r.images {
		img := img
		out = append(out, &img)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, from, to domain.ProcessingStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok || img.Status != from {
		return domain.ErrStatusConflict
	}
	img.Status = to
	img.ErrorMessage = errMsg
	img.UpdatedAt = time.Now()
	r.images[id] = img
	return nil
}

func page(in []*domain.ImageFile, limit, offset int) []*domain.ImageFile {
	if offset >= len(in) {
		return []*domain.ImageFile{}
	}
	in = in[offset:]
	if limit < len(in) {
		in = in[:limit]
	}
	return in
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (s *memStorage) save(dir, name string, r io.Reader) (string, error) {
	if r == nil {
		return "", storage.ErrNilReader
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := path.Join(dir, name)
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return key, nil
}

func (s *memStorage) SaveOriginal(_ context.Context, name string, r io.Reader) (string, error) {
	return s.save("original", name, r)
}

func (s *memStorage) SaveCompressed(_ context.Context, name string, r io.Reader) (string, error) {
	return s.save("compressed", name, r)
}

func (s *memStorage) Open(_ context.Context, p string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[p]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) Delete(_ context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, p)
	return nil
}

func (s *memStorage) DeleteAll(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		_ = s.Delete(ctx, p)
	}
	return nil
}

func (s *memStorage) has(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[p]
	return ok
}

type publishedTask struct {
	ImageID    string
	OutputType domain.Format
	Quality    int
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []publishedTask
	err   error
	// deliver runs the consumer side inline, before publish returns.
	deliver func(ctx context.Context, id string)
}

func (q *fakeQueue) PublishCompressionTask(ctx context.Context, id string, out domain.Format, quality int) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, publishedTask{ImageID: id, OutputType: out, Quality: quality})
	q.mu.Unlock()
	if q.deliver != nil {
		q.deliver(ctx, id)
	}
	return nil
}

func (q *fakeQueue) Close() error { return nil }

var errBoom = errors.New("boom")

func intPtr(v int) *int { return &v }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
