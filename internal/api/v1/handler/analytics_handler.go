package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type AnalyticsHandler struct {
	analysisService service.AnalysisService
	validate        *validator.Validate
}

func NewAnalyticsHandler(analysisService service.AnalysisService, v *validator.Validate) *AnalyticsHandler {
	return &AnalyticsHandler{analysisService: analysisService, validate: v}
}

// RegisterRoutes mounts v1 analytics routes
func (h *AnalyticsHandler) RegisterRoutes(mux *http.ServeMux, authMw, _ func(http.Handler) http.Handler) {
	mux.Handle("/analytics/analyze", authMw(http.HandlerFunc(h.analyze)))
	mux.Handle("/analytics/results/", authMw(http.HandlerFunc(h.getResults)))
}

func (h *AnalyticsHandler) analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. Extract UserID from context
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	// 2. Decode and validate request body
	var req dto.AnalyzeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	// 3. Queue (or run) the analysis
	f, err := h.analysisService.RequestAnalysis(r.Context(), req.FileID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, service.ErrAnalysisInProgress):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "Failed to start analysis: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	// 4. Completed inline runs return 200, queued runs 202
	status := http.StatusAccepted
	if f.Status == model.FileStatusCompleted {
		status = http.StatusOK
	}
	resp := dto.AnalyzeAcceptedDTO{FileID: f.ID, Status: f.Status}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (h *AnalyticsHandler) getResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	fileID, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/analytics/results/"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	res, err := h.analysisService.GetResults(r.Context(), fileID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, service.ErrResultsNotReady):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	resp := dto.AnalysisResultResponseDTO{
		FileID:     res.FileID,
		Metadata:   res.Metadata,
		Results:    res.Results,
		ComputedAt: res.ComputedAt,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
