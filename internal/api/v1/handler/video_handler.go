package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// VideoHandler handles video generation, status polling and listing.
type VideoHandler struct {
	videoService service.VideoService
	validate     *validator.Validate
	logger       zerolog.Logger
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(videoService service.VideoService, validate *validator.Validate, logger zerolog.Logger) *VideoHandler {
	return &VideoHandler{videoService: videoService, validate: validate, logger: logger}
}

// RegisterRoutes mounts video routes.
func (h *VideoHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/video/generate", authMw(http.HandlerFunc(h.generate)))
	mux.Handle("/video/details", authMw(http.HandlerFunc(h.details)))
	mux.Handle("/videos/list", authMw(http.HandlerFunc(h.list)))
}

func (h *VideoHandler) generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.GenerateVideoDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	video, err := h.videoService.Generate(r.Context(), userID, service.GenerateVideoParams{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Seed:        req.Seed,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientTokens):
			http.Error(w, "Insufficient tokens", http.StatusPaymentRequired)
		case errors.Is(err, service.ErrProviderCreditsExhausted):
			http.Error(w, "Video generation temporarily unavailable", http.StatusPaymentRequired)
		default:
			h.logger.Error().Err(err).Str("user_id", userID).Msg("Video generation failed")
			http.Error(w, "Failed to generate video", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(videoResponse(video))
}

func (h *VideoHandler) details(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		http.Error(w, "Missing taskId parameter", http.StatusBadRequest)
		return
	}

	video, err := h.videoService.Details(r.Context(), taskID)
	if err != nil {
		h.logger.Error().Err(err).Str("task_id", taskID).Msg("Video detail lookup failed")
		http.Error(w, "Failed to retrieve video", http.StatusInternalServerError)
		return
	}
	if video == nil || video.UserID != userID {
		http.Error(w, "Video not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(videoResponse(video))
}

func (h *VideoHandler) list(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	videos, err := h.videoService.List(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Video listing failed")
		http.Error(w, "Failed to retrieve videos", http.StatusInternalServerError)
		return
	}

	page, limit := pageParams(r)
	rng, pagination := paginate(len(videos), page, limit)
	resp := make([]dto.VideoResponseDTO, 0, rng.end-rng.start)
	for i := rng.start; i < rng.end; i++ {
		resp = append(resp, videoResponse(&videos[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.VideoListResponseDTO{Videos: resp, Pagination: pagination})
}

func videoResponse(v *model.Video) dto.VideoResponseDTO {
	return dto.VideoResponseDTO{
		ID:          v.ID,
		TaskID:      v.VideoID,
		Prompt:      v.Prompt,
		AspectRatio: v.AspectRatio,
		Seed:        v.Seed,
		ImageURL:    v.ImageURL,
		VideoURL:    v.VideoURL,
		Status:      string(v.Status),
		TokensUsed:  v.TokensUsed,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}
