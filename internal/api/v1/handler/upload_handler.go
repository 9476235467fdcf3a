package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// UploadHandler issues presigned upload URLs for reference images.
type UploadHandler struct {
	uploadService service.UploadService
	validate      *validator.Validate
	logger        zerolog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploadService service.UploadService, validate *validator.Validate, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, validate: validate, logger: logger}
}

// RegisterRoutes mounts upload routes.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/upload/image", authMw(http.HandlerFunc(h.uploadImage)))
}

func (h *UploadHandler) uploadImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.UploadImageDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	ticket, err := h.uploadService.InitiateUpload(r.Context(), userID, req.Filename)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Upload presign failed")
		http.Error(w, "Failed to prepare upload", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dto.UploadImageResponseDTO{
		UploadURL:   ticket.UploadURL,
		PublicURL:   ticket.PublicURL,
		StoragePath: ticket.StoragePath,
	})
}
