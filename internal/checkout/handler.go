package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/apna-store/internal/cart"
	"github.com/joao-fontenele/apna-store/internal/domain"
)

type Handler struct {
	service *Service
	carts   cart.Storage
	locks   *cart.SessionLocks
	logger  *slog.Logger
}

func NewHandler(service *Service, carts cart.Storage, locks *cart.SessionLocks, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		carts:   carts,
		locks:   locks,
		logger:  logger,
	}
}

type checkoutRequest struct {
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID := cart.SessionID(w, r)

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// held until the cart is cleared so no add slips in between
	unlock := h.locks.Lock(sessionID)
	defer unlock()

	c, err := cart.Load(r.Context(), h.carts, sessionID, h.logger)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "session_id", sessionID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), c, req.ShippingAddress)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.Is(err, ErrEmptyCart):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &verr):
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  verr.Error(),
				"fields": verr.Fields,
			})
		default:
			h.logger.Error("checkout failed", "error", err, "session_id", sessionID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
