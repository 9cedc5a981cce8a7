package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	products := h.store.Filter(filter)
	h.logger.Info("products listed", "count", len(products), "sort", filter.Sort)
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.Featured())
}

func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.Categories())
}

func (h *Handler) HandleByCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if category == "" || strings.EqualFold(category, "all") {
		h.writeJSON(w, http.StatusOK, h.store.All())
		return
	}
	h.writeJSON(w, http.StatusOK, h.store.ByCategory(category))
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")
	if strings.EqualFold(category, "all") {
		category = ""
	}

	products := h.store.Search(query, category)
	h.logger.Info("products searched", "query", query, "category", category, "count", len(products))
	h.writeJSON(w, http.StatusOK, products)
}

type facetsResponse struct {
	Categories []string `json:"categories"`
	Brands     []string `json:"brands"`
	Sizes      []string `json:"sizes"`
	Colors     []string `json:"colors"`
}

func (h *Handler) HandleFacets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, facetsResponse{
		Categories: h.store.Categories(),
		Brands:     h.store.Brands(),
		Sizes:      h.store.Sizes(),
		Colors:     h.store.Colors(),
	})
}

// ParseFilter builds a Filter from query parameters. The category "all"
// and a rating of 0 mean no filter, as the storefront UI sends them.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter

	if c := q.Get("category"); c != "" && !strings.EqualFold(c, "all") {
		f.Category = &c
	}

	minPrice, err := parseDecimal(q, "min_price")
	if err != nil {
		return Filter{}, err
	}
	maxPrice, err := parseDecimal(q, "max_price")
	if err != nil {
		return Filter{}, err
	}
	if minPrice != nil || maxPrice != nil {
		f.Price = &PriceRange{Min: minPrice, Max: maxPrice}
	}

	f.Brands = q["brand"]
	f.Sizes = q["size"]
	f.Colors = q["color"]

	if v := q.Get("rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil || rating < 0 || rating > 5 {
			return Filter{}, fmt.Errorf("invalid rating %q", v)
		}
		if rating > 0 {
			f.MinRating = &rating
		}
	}

	if v := q.Get("q"); v != "" {
		f.Query = &v
	}

	f.Sort = SortKey(q.Get("sort"))
	if !f.Sort.Valid() {
		return Filter{}, fmt.Errorf("invalid sort %q", f.Sort)
	}

	return f, nil
}

func parseDecimal(q url.Values, key string) (*decimal.Decimal, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, v)
	}
	return &d, nil
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
