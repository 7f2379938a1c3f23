package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/dto"
)

type fakeService struct {
	uploaded  domain.UploadRequest
	uploadErr error
	images    map[string]*domain.ImageFile
	content   map[domain.FileVariant]string
	fileErr   error
	filter    domain.ListFilter
}

func (s *fakeService) UploadImage(_ context.Context, req domain.UploadRequest) (*domain.ImageFile, error) {
	s.uploaded = req
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	out, _ := domain.ParseFormat(req.OutputType)
	img := &domain.ImageFile{ID: "new-id", OriginalFilename: req.Filename, OutputType: out, Status: domain.StatusQueued}
	if req.Quality != nil {
		img.Quality = *req.Quality
	}
	return img, nil
}

func (s *fakeService) GetImage(_ context.Context, id string) (*domain.ImageFile, error) {
	img, ok := s.images[id]
	if !ok {
		return nil, domain.ErrImageNotFound
	}
	return img, nil
}

func (s *fakeService) GetImageFile(_ context.Context, id string, variant domain.FileVariant) (*domain.ImageContent, error) {
	if s.fileErr != nil {
		return nil, s.fileErr
	}
	if _, ok := s.images[id]; !ok {
		return nil, domain.ErrImageNotFound
	}
	return &domain.ImageContent{
		ReadCloser:  io.NopCloser(strings.NewReader(s.content[variant])),
		Filename:    "photo.webp",
		ContentType: "image/webp",
	}, nil
}

func (s *fakeService) RequeueImage(_ context.Context, id string) (*domain.ImageFile, error) {
	img, ok := s.images[id]
	if !ok {
		return nil, domain.ErrImageNotFound
	}
	if !img.IsFailed() {
		return nil, domain.ErrAlreadyProcessing
	}
	img.MarkAsQueued()
	return img, nil
}

func (s *fakeService) DeleteImage(_ context.Context, id string) error {
	if _, ok := s.images[id]; !ok {
		return domain.ErrImageNotFound
	}
	delete(s.images, id)
	return nil
}

func (s *fakeService) ListImages(_ context.Context, filter domain.ListFilter) ([]*domain.ImageFile, error) {
	s.filter = filter
	out := make([]*domain.ImageFile, 0, len(s.images))
	for _, img := range s.images {
		if filter.Status == "" || img.Status == filter.Status {
			out = append(out, img)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	statuses []domain.FormatStatus
	err      error
}

func (f fakeCatalog) Formats(context.Context) ([]domain.FormatStatus, error) { return f.statuses, f.err }

func intPtr(v int) *int { return &v }

func newTestRouter(svc *fakeService) *gin.Engine {
	return newTestRouterWithCatalog(svc, fakeCatalog{statuses: []domain.FormatStatus{
		{Format: domain.FormatPNG, Ready: true, Lossless: true},
		{Format: domain.FormatAVIF},
	}})
}

func newTestRouterWithCatalog(svc *fakeService, catalog FormatCatalog) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewImageHandler(svc, catalog, func(f domain.Format) int {
		if f == domain.FormatAVIF {
			return 50
		}
		return 100
	}, 1)

	r := gin.New()
	r.POST("/upload", h.UploadImage)
	r.GET("/image/:id", h.GetCompressedImage)
	r.GET("/image/:id/original", h.GetOriginalImage)
	r.GET("/image/:id/info", h.GetImageInfo)
	r.POST("/image/:id/retry", h.RetryImage)
	r.DELETE("/image/:id", h.DeleteImage)
	r.GET("/images", h.ListImages)
	r.GET("/formats", h.ListFormats)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	body, ct := multipartBody(t, map[string]string{"output_type": "avif", "quality": "40"}, "cat.png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "cat.png", svc.uploaded.Filename)
	assert.Equal(t, "avif", svc.uploaded.OutputType)
	require.NotNil(t, svc.uploaded.Quality)
	assert.Equal(t, 40, *svc.uploaded.Quality)

	var resp dto.ImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "new-id", resp.ID)
	assert.Equal(t, "queued", resp.Status)
}

func TestUploadImage_Quality(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		expected *int
	}{
		{"omitted", map[string]string{"output_type": "gif"}, nil},
		{"explicit zero", map[string]string{"output_type": "gif", "quality": "0"}, intPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			body, ct := multipartBody(t, tt.fields, "a.png", []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rec, req)

			require.Equal(t, http.StatusCreated, rec.Code)
			assert.Equal(t, tt.expected, svc.uploaded.Quality)
		})
	}
}

func TestUploadImage_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		data     []byte
		svcErr   error
		want     int
	}{
		{"missing file", map[string]string{"output_type": "png"}, "", nil, nil, http.StatusBadRequest},
		{"missing output type", nil, "a.png", []byte("x"), nil, http.StatusBadRequest},
		{"quality out of range", map[string]string{"output_type": "png", "quality": "101"}, "a.png", []byte("x"), nil, http.StatusBadRequest},
		{"too large", map[string]string{"output_type": "png"}, "a.png", bytes.Repeat([]byte("x"), 1<<20+1), nil, http.StatusRequestEntityTooLarge},
		{"unsupported source", map[string]string{"output_type": "png"}, "a.tiff", []byte("x"), domain.ErrUnsupportedSource, http.StatusUnsupportedMediaType},
		{"unsupported output", map[string]string{"output_type": "bmp"}, "a.png", []byte("x"), domain.ErrUnsupportedOutput, http.StatusBadRequest},
		{"queue down", map[string]string{"output_type": "png"}, "a.png", []byte("x"), domain.ErrQueueFailed, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeService{uploadErr: tt.svcErr})
			body, ct := multipartBody(t, tt.fields, tt.filename, tt.data)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetCompressedImage(t *testing.T) {
	svc := &fakeService{
		images:  map[string]*domain.ImageFile{"a": {ID: "a", Status: domain.StatusComplete}},
		content: map[domain.FileVariant]string{domain.VariantCompressed: "webp-bytes", domain.VariantOriginal: "png-bytes"},
	}
	r := newTestRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image/a", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "webp-bytes", rec.Body.String())
	assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename=photo.webp`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image/a/original", nil))
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCompressedImage_NotReady(t *testing.T) {
	svc := &fakeService{images: map[string]*domain.ImageFile{"a": {ID: "a"}}, fileErr: domain.ErrNotCompressed}
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image/a", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetImageInfo(t *testing.T) {
	svc := &fakeService{images: map[string]*domain.ImageFile{"a": {ID: "a", OriginalSize: 1536, Status: domain.StatusQueued}}}
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image/a/info", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1.5 KB", resp.OriginalSizeText)
}

func TestRetryImage(t *testing.T) {
	svc := &fakeService{images: map[string]*domain.ImageFile{
		"failed": {ID: "failed", Status: domain.StatusError},
		"done":   {ID: "done", Status: domain.StatusComplete},
	}}
	r := newTestRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/image/failed/retry", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/image/done/retry", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteAndListImages(t *testing.T) {
	svc := &fakeService{images: map[string]*domain.ImageFile{"a": {ID: "a"}, "b": {ID: "b"}}}
	r := newTestRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/image/a", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/image/a", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images?limit=500&offset=-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.ImageListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 100, list.Limit)
	assert.Equal(t, 0, list.Offset)
}

func TestListImages_StatusFilter(t *testing.T) {
	svc := &fakeService{images: map[string]*domain.ImageFile{
		"a": {ID: "a", Status: domain.StatusError},
		"b": {ID: "b", Status: domain.StatusComplete},
	}}
	r := newTestRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images?status=error", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ListFilter{Status: domain.StatusError, Limit: 20}, svc.filter)
	var list dto.ImageListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Images, 1)
	assert.Equal(t, "a", list.Images[0].ID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images?status=done", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFormats(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&fakeService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/formats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.FormatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Formats, 2)
	assert.Equal(t, dto.FormatResponse{Format: "png", MimeType: "image/png", Extension: ".png", Lossless: true, DefaultQuality: 100, Ready: true}, resp.Formats[0])
	assert.Equal(t, "avif", resp.Formats[1].Format)
	assert.Equal(t, 50, resp.Formats[1].DefaultQuality)
	assert.False(t, resp.Formats[1].Ready)
}

func TestListFormats_CatalogError(t *testing.T) {
	rec := httptest.NewRecorder()
	r := newTestRouterWithCatalog(&fakeService{}, fakeCatalog{err: errors.New("db down")})
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/formats", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
