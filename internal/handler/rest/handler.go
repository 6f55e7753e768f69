// Package rest serves the JSON surface of the service: the static vehicle
// inventory, the LLM-backed chat assistant, and the liveness/stats probes.
// Everything else about the product is duplex; these are the only
// request/response routes.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/virtuolot/showroom-assist-service/internal/domain/docroom"
	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
	"github.com/virtuolot/showroom-assist-service/internal/domain/registry"
	"github.com/virtuolot/showroom-assist-service/internal/service"
)

// CarLister is the inventory slice of the catalog consumed here.
type CarLister interface {
	Cars() []model.Car
}

// Handler carries the REST routes' dependencies.
type Handler struct {
	logger  *slog.Logger
	catalog CarLister
	chat    service.Chatter
	store   registry.Storer
	hub     docroom.Hubber
}

func NewHandler(logger *slog.Logger, catalog CarLister, chat service.Chatter, store registry.Storer, hub docroom.Hubber) *Handler {
	return &Handler{
		logger:  logger,
		catalog: catalog,
		chat:    chat,
		store:   store,
		hub:     hub,
	}
}

// Register mounts the REST routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/cars", h.Cars)
	r.Post("/chat", h.Chat)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
}

// Cars serves the full vehicle listing.
func (h *Handler) Cars(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.catalog.Cars())
}

// Chat runs one conversational turn. Thread pinning lives in the service;
// this handler only translates transport.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	res, err := h.chat.Respond(r.Context(), req)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, res)
	case service.ChatUnavailable(err):
		h.writeError(w, http.StatusServiceUnavailable, "chat assistant is unavailable, please try again later")
	case errors.Is(err, r.Context().Err()):
		// Client went away mid-completion; nothing useful to write.
		h.logger.Debug("CHAT_REQUEST_ABANDONED", "err", err)
	default:
		h.logger.Error("CHAT_REQUEST_FAILED", "err", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.store.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptimeSeconds": st.UptimeSeconds,
		"timestamp":     time.Now().UnixMilli(),
	})
}

// statsResponse extends the registry census with the room count.
type statsResponse struct {
	model.RegistryStats
	CollabRooms int `json:"collabRooms"`
}

// Stats serves the registry census for dashboards and debugging.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, statsResponse{
		RegistryStats: h.store.Stats(),
		CollabRooms:   h.hub.Rooms(),
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorBody{Error: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("RESPONSE_ENCODE_FAILED", "err", err)
	}
}
