package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

// ProductFinder resolves the product a line item is created from.
type ProductFinder interface {
	Get(id int) (domain.Product, error)
}

type Handler struct {
	storage   Storage
	products  ProductFinder
	locks     *SessionLocks
	logger    *slog.Logger
	mutations metric.Int64Counter
}

// NewHandler serves carts from storage. locks must be shared with every other
// handler that rewrites carts, such as checkout.
func NewHandler(storage Storage, products ProductFinder, locks *SessionLocks, logger *slog.Logger) (*Handler, error) {
	mutations, err := otel.Meter("apna-store/cart").Int64Counter("cart.mutations",
		metric.WithDescription("Cart mutations by operation"),
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		storage:   storage,
		products:  products,
		locks:     locks,
		logger:    logger,
		mutations: mutations,
	}, nil
}

type cartResponse struct {
	SessionID string            `json:"sessionId"`
	Items     []domain.LineItem `json:"items"`
	ItemCount int               `json:"itemCount"`
	Quote     domain.Quote      `json:"quote"`
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(w, r)
	cart, unlock, ok := h.load(w, r, sessionID)
	defer unlock()
	if !ok {
		return
	}
	h.writeCart(w, http.StatusOK, sessionID, cart)
}

type addItemRequest struct {
	ProductID int  `json:"productId"`
	Quantity  *int `json:"quantity"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(w, r)

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	product, err := h.products.Get(req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "error", err, "product_id", req.ProductID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	cart, unlock, ok := h.load(w, r, sessionID)
	defer unlock()
	if !ok {
		return
	}

	if err := cart.Add(r.Context(), product, quantity); err != nil {
		h.writeMutationError(w, err, "add", sessionID)
		return
	}

	h.record(r, "add")
	h.logger.Info("cart item added", "session_id", sessionID, "product_id", product.ID, "quantity", quantity)
	h.writeCart(w, http.StatusOK, sessionID, cart)
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(w, r)

	productID, err := strconv.Atoi(r.PathValue("productId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity == nil {
		h.writeError(w, http.StatusBadRequest, "missing quantity")
		return
	}

	cart, unlock, ok := h.load(w, r, sessionID)
	defer unlock()
	if !ok {
		return
	}

	if err := cart.UpdateQuantity(r.Context(), productID, *req.Quantity); err != nil {
		h.writeMutationError(w, err, "update", sessionID)
		return
	}

	h.record(r, "update")
	h.logger.Info("cart item updated", "session_id", sessionID, "product_id", productID, "quantity", *req.Quantity)
	h.writeCart(w, http.StatusOK, sessionID, cart)
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(w, r)

	productID, err := strconv.Atoi(r.PathValue("productId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	cart, unlock, ok := h.load(w, r, sessionID)
	defer unlock()
	if !ok {
		return
	}

	if err := cart.Remove(r.Context(), productID); err != nil {
		h.writeMutationError(w, err, "remove", sessionID)
		return
	}

	h.record(r, "remove")
	h.logger.Info("cart item removed", "session_id", sessionID, "product_id", productID)
	h.writeCart(w, http.StatusOK, sessionID, cart)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(w, r)

	cart, unlock, ok := h.load(w, r, sessionID)
	defer unlock()
	if !ok {
		return
	}

	if err := cart.Clear(r.Context()); err != nil {
		h.writeMutationError(w, err, "clear", sessionID)
		return
	}

	h.record(r, "clear")
	h.logger.Info("cart cleared", "session_id", sessionID)
	h.writeCart(w, http.StatusOK, sessionID, cart)
}

// load locks the session and rehydrates its cart. The caller must call
// unlock once the response is written, whether or not ok is true.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, sessionID string) (cart *Manager, unlock func(), ok bool) {
	unlock = h.locks.Lock(sessionID)

	cart, err := Load(r.Context(), h.storage, sessionID, h.logger)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "session_id", sessionID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, unlock, false
	}
	return cart, unlock, true
}

func (h *Handler) record(r *http.Request, op string) {
	h.mutations.Add(r.Context(), 1, metric.WithAttributes(attribute.String("operation", op)))
}

func (h *Handler) writeMutationError(w http.ResponseWriter, err error, op, sessionID string) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrLineItemNotFound):
		h.writeError(w, http.StatusNotFound, "item not in cart")
	default:
		h.logger.Error("failed to update cart", "error", err, "operation", op, "session_id", sessionID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, sessionID string, cart *Manager) {
	h.writeJSON(w, status, cartResponse{
		SessionID: sessionID,
		Items:     cart.Items(),
		ItemCount: cart.ItemCount(),
		Quote:     domain.NewQuote(cart.Total()),
	})
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
