package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type FileHandler struct {
	fileService  service.FileService
	validate     *validator.Validate
	maxSizeBytes int64
}

func NewFileHandler(fileService service.FileService, v *validator.Validate, maxSizeBytes int64) *FileHandler {
	return &FileHandler{fileService: fileService, validate: v, maxSizeBytes: maxSizeBytes}
}

// RegisterRoutes mounts v1 file routes
func (h *FileHandler) RegisterRoutes(mux *http.ServeMux, authMw, _ func(http.Handler) http.Handler) {
	mux.Handle("/files", authMw(http.HandlerFunc(h.listFiles)))
	mux.Handle("/files/upload", authMw(http.HandlerFunc(h.uploadFile)))
	mux.Handle("/files/", authMw(http.HandlerFunc(h.handleFile)))
}

func (h *FileHandler) handleFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch r.Method {
	case http.MethodGet:
		if strings.HasSuffix(path, "/download") {
			h.downloadFile(w, r)
			return
		}
		if strings.HasSuffix(path, "/metadata") {
			h.getMetadata(w, r)
			return
		}
		h.getFile(w, r)
	case http.MethodPatch:
		if strings.HasSuffix(path, "/metadata") {
			h.updateMetadata(w, r)
			return
		}
		http.NotFound(w, r)
	case http.MethodDelete:
		h.deleteFile(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// fileIDFromPath extracts the numeric file ID from paths like
// /files/42, /files/42/download and /files/42/metadata.
func fileIDFromPath(path string) (int64, error) {
	rest := strings.TrimPrefix(path, "/files/")
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	return strconv.ParseInt(rest, 10, 64)
}

func (h *FileHandler) uploadFile(w http.ResponseWriter, r *http.Request) {
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

	// 2. Parse the multipart form, leaving headroom over the file limit
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSizeBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxSizeBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	// 3. Store the upload
	f, err := h.fileService.Upload(r.Context(), userID, header.Filename, header.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		case errors.Is(err, service.ErrFileTooLarge):
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		case errors.Is(err, service.ErrStorageQuotaExceeded):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			http.Error(w, "Failed to upload file: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	// 4. Return the created file
	resp := dto.NewFileResponseDTO(f)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *FileHandler) listFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	// Parse pagination and filters from query parameters
	q := r.URL.Query()
	filter := model.FileListFilter{
		Status:   q.Get("status"),
		FileType: q.Get("file_type"),
		Page:     1,
		PageSize: 20,
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if ps, err := strconv.Atoi(q.Get("page_size")); err == nil && ps > 0 {
		filter.PageSize = ps
	}

	files, total, err := h.fileService.List(r.Context(), userID, filter)
	if err != nil {
		http.Error(w, "Failed to list files: "+err.Error(), http.StatusInternalServerError)
		return
	}

	fileDTOs := make([]dto.FileResponseDTO, 0, len(files))
	for i := range files {
		fileDTOs = append(fileDTOs, dto.NewFileResponseDTO(&files[i]))
	}
	resp := dto.FileListResponseDTO{
		Files:    fileDTOs,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *FileHandler) getFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}
	fileID, err := fileIDFromPath(r.URL.Path)
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	f, err := h.fileService.Get(r.Context(), fileID, userID)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.NewFileResponseDTO(f)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// getMetadata returns the trimmed metadata shape without analysis state.
func (h *FileHandler) getMetadata(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}
	fileID, err := fileIDFromPath(r.URL.Path)
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	f, err := h.fileService.Get(r.Context(), fileID, userID)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.NewFileMetadataResponseDTO(f)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *FileHandler) downloadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}
	fileID, err := fileIDFromPath(r.URL.Path)
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	f, rc, err := h.fileService.Download(r.Context(), fileID, userID)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to download file: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", f.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(f.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.OriginalName))
	io.Copy(w, rc)
}

func (h *FileHandler) updateMetadata(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}
	fileID, err := fileIDFromPath(r.URL.Path)
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	var req dto.FileUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	f, err := h.fileService.UpdateMeta(r.Context(), fileID, userID, req.Filename, req.IsPublic)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to update file metadata: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.NewFileResponseDTO(f)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *FileHandler) deleteFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}
	fileID, err := fileIDFromPath(r.URL.Path)
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	if err := h.fileService.Delete(r.Context(), fileID, userID); err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeMessage(w, http.StatusOK, "file deleted")
}
