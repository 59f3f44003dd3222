package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalysisService struct {
	requestFn func(ctx context.Context, fileID, ownerID int64) (*model.File, error)
	resultsFn func(ctx context.Context, fileID, ownerID int64) (*model.AnalysisResult, error)
}

func (s *stubAnalysisService) RequestAnalysis(ctx context.Context, fileID, ownerID int64) (*model.File, error) {
	return s.requestFn(ctx, fileID, ownerID)
}

func (s *stubAnalysisService) GetResults(ctx context.Context, fileID, ownerID int64) (*model.AnalysisResult, error) {
	return s.resultsFn(ctx, fileID, ownerID)
}

func (s *stubAnalysisService) ProcessFile(context.Context, int64) error { return nil }

// asUser injects a user id the way AuthMiddleware does after token validation.
func asUser(userID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newAnalyticsMux(svc service.AnalysisService, userID int64) *http.ServeMux {
	h := NewAnalyticsHandler(svc, validator.New(validator.WithRequiredStructEnabled()))
	mux := http.NewServeMux()
	passthrough := func(next http.Handler) http.Handler { return next }
	h.RegisterRoutes(mux, asUser(userID), passthrough)
	return mux
}

func TestAnalyticsHandlerAnalyzeQueued(t *testing.T) {
	svc := &stubAnalysisService{
		requestFn: func(_ context.Context, fileID, ownerID int64) (*model.File, error) {
			assert.Equal(t, int64(7), fileID)
			assert.Equal(t, int64(1), ownerID)
			return &model.File{ID: fileID, Status: model.FileStatusProcessing}, nil
		},
	}
	mux := newAnalyticsMux(svc, 1)

	req := httptest.NewRequest(http.MethodPost, "/analytics/analyze", strings.NewReader(`{"file_id":7}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp dto.AnalyzeAcceptedDTO
	require.NoError(t, decodeJSON(rec, &resp))
	assert.Equal(t, int64(7), resp.FileID)
	assert.Equal(t, model.FileStatusProcessing, resp.Status)
}

func TestAnalyticsHandlerAnalyzeInlineCompleted(t *testing.T) {
	svc := &stubAnalysisService{
		requestFn: func(_ context.Context, fileID, _ int64) (*model.File, error) {
			return &model.File{ID: fileID, Status: model.FileStatusCompleted}, nil
		},
	}
	mux := newAnalyticsMux(svc, 1)

	req := httptest.NewRequest(http.MethodPost, "/analytics/analyze", strings.NewReader(`{"file_id":7}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyticsHandlerAnalyzeErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"file not found", service.ErrFileNotFound, http.StatusNotFound},
		{"already processing", service.ErrAnalysisInProgress, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubAnalysisService{
				requestFn: func(context.Context, int64, int64) (*model.File, error) {
					return nil, tc.err
				},
			}
			mux := newAnalyticsMux(svc, 1)

			req := httptest.NewRequest(http.MethodPost, "/analytics/analyze", strings.NewReader(`{"file_id":7}`))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAnalyticsHandlerAnalyzeValidation(t *testing.T) {
	mux := newAnalyticsMux(&stubAnalysisService{}, 1)

	for _, body := range []string{`{}`, `{"file_id":0}`, `{"file_id":-2}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/analytics/analyze", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestAnalyticsHandlerGetResults(t *testing.T) {
	computed := time.Now().UTC().Truncate(time.Second)
	svc := &stubAnalysisService{
		resultsFn: func(_ context.Context, fileID, _ int64) (*model.AnalysisResult, error) {
			return &model.AnalysisResult{
				FileID: fileID,
				Metadata: model.AnalysisMeta{
					Columns:     []string{"age"},
					RowCount:    3,
					ColumnCount: 1,
					DTypes:      map[string]string{"age": "int64"},
				},
				Results: model.AnalysisColumns{
					MissingValues: map[string]int{"age": 0},
					UniqueValues:  map[string]int{"age": 3},
					DataTypes:     map[string]string{"age": "int64"},
				},
				ComputedAt: computed,
			}, nil
		},
	}
	mux := newAnalyticsMux(svc, 1)

	req := httptest.NewRequest(http.MethodGet, "/analytics/results/7", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.AnalysisResultResponseDTO
	require.NoError(t, decodeJSON(rec, &resp))
	assert.Equal(t, int64(7), resp.FileID)
	assert.Equal(t, 3, resp.Metadata.RowCount)
	assert.Equal(t, "int64", resp.Results.DataTypes["age"])
}

func TestAnalyticsHandlerGetResultsNotReady(t *testing.T) {
	svc := &stubAnalysisService{
		resultsFn: func(context.Context, int64, int64) (*model.AnalysisResult, error) {
			return nil, service.ErrResultsNotReady
		},
	}
	mux := newAnalyticsMux(svc, 1)

	req := httptest.NewRequest(http.MethodGet, "/analytics/results/7", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyticsHandlerGetResultsBadID(t *testing.T) {
	mux := newAnalyticsMux(&stubAnalysisService{}, 1)

	req := httptest.NewRequest(http.MethodGet, "/analytics/results/abc", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
