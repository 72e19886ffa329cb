package users

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/useradmin/internal/platform/httpx"
	"github.com/odyssey-erp/useradmin/internal/shared"
)

// Handler manages user administration endpoints. Routes expect the
// authorization middleware to have attached the current user.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/update-status", h.updateStatus)
	r.Delete("/", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context(), r.URL.Query().Get("orderBy"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := CurrentFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.logger, shared.ErrUnauthorized)
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	res, err := h.service.UpdateStatus(r.Context(), actor.ID, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("%d user(s) updated successfully", res.Requested)})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := CurrentFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.logger, shared.ErrUnauthorized)
		return
	}
	var req DeleteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	res, err := h.service.Delete(r.Context(), actor.ID, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("%d user(s) deleted successfully", res.Requested)})
}
