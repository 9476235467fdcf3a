package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// PackageHandler serves the public token-package catalog.
type PackageHandler struct {
	packageService service.PackageService
	logger         zerolog.Logger
}

// NewPackageHandler creates a new PackageHandler.
func NewPackageHandler(packageService service.PackageService, logger zerolog.Logger) *PackageHandler {
	return &PackageHandler{packageService: packageService, logger: logger}
}

// RegisterRoutes mounts package routes. The catalog is public: pricing has to
// be visible before sign-in.
func (h *PackageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/packages", http.HandlerFunc(h.list))
}

func (h *PackageHandler) list(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	packages, err := h.packageService.ListActive(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Package listing failed")
		http.Error(w, "Failed to retrieve packages", http.StatusInternalServerError)
		return
	}

	resp := make([]dto.PackageResponseDTO, 0, len(packages))
	for _, p := range packages {
		description := ""
		if p.Description != nil {
			description = *p.Description
		}
		resp = append(resp, dto.PackageResponseDTO{
			ID:          p.ID,
			Name:        p.Name,
			Description: description,
			Tokens:      p.Tokens,
			Price:       p.Price,
			Currency:    p.Currency,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
