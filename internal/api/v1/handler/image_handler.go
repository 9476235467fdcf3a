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

// ImageHandler handles image generation and listing.
type ImageHandler struct {
	imageService service.ImageService
	validate     *validator.Validate
	logger       zerolog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(imageService service.ImageService, validate *validator.Validate, logger zerolog.Logger) *ImageHandler {
	return &ImageHandler{imageService: imageService, validate: validate, logger: logger}
}

// RegisterRoutes mounts image routes.
func (h *ImageHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/image/generate", authMw(http.HandlerFunc(h.generate)))
	mux.Handle("/images/list", authMw(http.HandlerFunc(h.list)))
}

func (h *ImageHandler) generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.GenerateImageDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	img, err := h.imageService.Generate(r.Context(), userID, service.GenerateImageParams{
		Prompt:            req.Prompt,
		AspectRatio:       req.AspectRatio,
		ReferenceImageURL: req.ImageURL,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientTokens) {
			http.Error(w, "Insufficient tokens", http.StatusPaymentRequired)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Image generation failed")
		http.Error(w, "Failed to generate image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(imageResponse(img))
}

func (h *ImageHandler) list(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	images, err := h.imageService.List(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Image listing failed")
		http.Error(w, "Failed to retrieve images", http.StatusInternalServerError)
		return
	}

	page, limit := pageParams(r)
	pageItems, pagination := paginate(len(images), page, limit)
	resp := make([]dto.ImageResponseDTO, 0, pageItems.end-pageItems.start)
	for i := pageItems.start; i < pageItems.end; i++ {
		resp = append(resp, imageResponse(&images[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.ImageListResponseDTO{Images: resp, Pagination: pagination})
}

func imageResponse(img *model.Image) dto.ImageResponseDTO {
	return dto.ImageResponseDTO{
		ID:          img.ID,
		Prompt:      img.Prompt,
		AspectRatio: img.AspectRatio,
		ImageURL:    img.ImageURL,
		ImageID:     img.ImageID,
		TokensUsed:  img.TokensUsed,
		CreatedAt:   img.CreatedAt,
	}
}
