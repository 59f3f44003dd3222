package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFileService struct {
	uploadFn   func(ctx context.Context, ownerID int64, originalName string, size int64, r io.Reader) (*model.File, error)
	getFn      func(ctx context.Context, id, ownerID int64) (*model.File, error)
	listFn     func(ctx context.Context, ownerID int64, filter model.FileListFilter) ([]model.File, int, error)
	downloadFn func(ctx context.Context, id, ownerID int64) (*model.File, io.ReadCloser, error)
	updateFn   func(ctx context.Context, id, ownerID int64, newName *string, isPublic *bool) (*model.File, error)
	deleteFn   func(ctx context.Context, id, ownerID int64) error
}

func (s *stubFileService) Upload(ctx context.Context, ownerID int64, originalName string, size int64, r io.Reader) (*model.File, error) {
	return s.uploadFn(ctx, ownerID, originalName, size, r)
}

func (s *stubFileService) Get(ctx context.Context, id, ownerID int64) (*model.File, error) {
	return s.getFn(ctx, id, ownerID)
}

func (s *stubFileService) List(ctx context.Context, ownerID int64, filter model.FileListFilter) ([]model.File, int, error) {
	return s.listFn(ctx, ownerID, filter)
}

func (s *stubFileService) Download(ctx context.Context, id, ownerID int64) (*model.File, io.ReadCloser, error) {
	return s.downloadFn(ctx, id, ownerID)
}

func (s *stubFileService) UpdateMeta(ctx context.Context, id, ownerID int64, newName *string, isPublic *bool) (*model.File, error) {
	return s.updateFn(ctx, id, ownerID, newName, isPublic)
}

func (s *stubFileService) Delete(ctx context.Context, id, ownerID int64) error {
	return s.deleteFn(ctx, id, ownerID)
}

func newFileMux(svc service.FileService, userID, maxSizeBytes int64) *http.ServeMux {
	h := NewFileHandler(svc, validator.New(validator.WithRequiredStructEnabled()), maxSizeBytes)
	mux := http.NewServeMux()
	passthrough := func(next http.Handler) http.Handler { return next }
	h.RegisterRoutes(mux, asUser(userID), passthrough)
	return mux
}

func testStoredFile() *model.File {
	rows, cols := 120, 4
	errMsg := "boom"
	return &model.File{
		ID:           7,
		OwnerID:      1,
		OriginalName: "sales.csv",
		SizeBytes:    2048,
		FileType:     "csv",
		MimeType:     "text/csv",
		Status:       model.FileStatusFailed,
		ErrorMessage: &errMsg,
		RowCount:     &rows,
		ColumnCount:  &cols,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestFileHandlerGetMetadata(t *testing.T) {
	stored := testStoredFile()
	svc := &stubFileService{
		getFn: func(_ context.Context, id, ownerID int64) (*model.File, error) {
			assert.Equal(t, int64(7), id)
			assert.Equal(t, int64(1), ownerID)
			return stored, nil
		},
	}
	mux := newFileMux(svc, 1, 1024)

	req := httptest.NewRequest(http.MethodGet, "/files/7/metadata", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.Bytes()
	var resp dto.FileMetadataResponseDTO
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "sales.csv", resp.Filename)
	assert.Equal(t, int64(2048), resp.SizeBytes)
	assert.Equal(t, "csv", resp.FileType)
	require.NotNil(t, resp.RowCount)
	assert.Equal(t, 120, *resp.RowCount)

	// The metadata shape must not leak processing state.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.NotContains(t, raw, "status")
	assert.NotContains(t, raw, "error_message")
	assert.NotContains(t, raw, "mime_type")
	assert.Contains(t, raw, "filename")
}

func TestFileHandlerGetFileFullShape(t *testing.T) {
	stored := testStoredFile()
	svc := &stubFileService{
		getFn: func(_ context.Context, id, ownerID int64) (*model.File, error) {
			return stored, nil
		},
	}
	mux := newFileMux(svc, 1, 1024)

	req := httptest.NewRequest(http.MethodGet, "/files/7", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, decodeJSON(rec, &raw))
	assert.Equal(t, model.FileStatusFailed, raw["status"])
	assert.Equal(t, "boom", raw["error_message"])
	assert.Equal(t, "sales.csv", raw["original_name"])
}

func TestFileHandlerGetMetadataNotFound(t *testing.T) {
	svc := &stubFileService{
		getFn: func(_ context.Context, _, _ int64) (*model.File, error) {
			return nil, service.ErrFileNotFound
		},
	}
	mux := newFileMux(svc, 1, 1024)

	req := httptest.NewRequest(http.MethodGet, "/files/99/metadata", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestFileHandlerUploadCreated(t *testing.T) {
	svc := &stubFileService{
		uploadFn: func(_ context.Context, ownerID int64, originalName string, size int64, r io.Reader) (*model.File, error) {
			assert.Equal(t, int64(1), ownerID)
			assert.Equal(t, "sales.csv", originalName)
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, "a,b\n1,2\n", string(data))
			return &model.File{ID: 7, OwnerID: ownerID, OriginalName: originalName, SizeBytes: size, Status: model.FileStatusUploaded}, nil
		},
	}
	mux := newFileMux(svc, 1, 1024)

	body, contentType := multipartBody(t, "file", "sales.csv", "a,b\n1,2\n")
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.FileResponseDTO
	require.NoError(t, decodeJSON(rec, &resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, model.FileStatusUploaded, resp.Status)
}

func TestFileHandlerUploadMalformedMultipart(t *testing.T) {
	svc := &stubFileService{
		uploadFn: func(_ context.Context, _ int64, _ string, _ int64, _ io.Reader) (*model.File, error) {
			t.Fatal("upload must not be reached for a malformed body")
			return nil, nil
		},
	}
	mux := newFileMux(svc, 1, 1024)

	req := httptest.NewRequest(http.MethodPost, "/files/upload", strings.NewReader("this is not a multipart body"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=deadbeef")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileHandlerUploadBodyTooLarge(t *testing.T) {
	svc := &stubFileService{
		uploadFn: func(_ context.Context, _ int64, _ string, _ int64, _ io.Reader) (*model.File, error) {
			t.Fatal("upload must not be reached for an oversized body")
			return nil, nil
		},
	}
	mux := newFileMux(svc, 1, 64)

	// Well-formed multipart, but past the 64 byte limit plus headroom.
	body, contentType := multipartBody(t, "file", "big.csv", strings.Repeat("x", 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFileHandlerMissingFileField(t *testing.T) {
	svc := &stubFileService{
		uploadFn: func(_ context.Context, _ int64, _ string, _ int64, _ io.Reader) (*model.File, error) {
			t.Fatal("upload must not be reached without a file field")
			return nil, nil
		},
	}
	mux := newFileMux(svc, 1, 1024)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "sales"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
