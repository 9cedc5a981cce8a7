package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

type stubProducts map[int]domain.Product

func (s stubProducts) Get(id int) (domain.Product, error) {
	p, ok := s[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %w", domain.ErrNotFound)
	}
	return p, nil
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	return newTestMuxWithStorage(t, NewMemoryStorage())
}

func newTestMuxWithStorage(t *testing.T, storage Storage) *http.ServeMux {
	t.Helper()

	products := stubProducts{
		1: {ID: 1, Name: "Shirt", Price: decimal.NewFromInt(200)},
		2: {ID: 2, Name: "Shoes", Price: decimal.NewFromInt(450)},
	}
	handler, err := NewHandler(storage, products, NewSessionLocks(), discardLogger())
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", handler.HandleGet)
	mux.HandleFunc("POST /cart/items", handler.HandleAddItem)
	mux.HandleFunc("PATCH /cart/items/{productId}", handler.HandleUpdateItem)
	mux.HandleFunc("DELETE /cart/items/{productId}", handler.HandleRemoveItem)
	mux.HandleFunc("DELETE /cart", handler.HandleClear)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, session, body string) (*httptest.ResponseRecorder, cartResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp cartResponse
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return rec, resp
}

func TestHandler_SessionLifecycle(t *testing.T) {
	mux := newTestMux(t)

	rec, resp := do(t, mux, http.MethodGet, "/cart", "", "")
	session := rec.Header().Get(SessionHeader)
	if session == "" {
		t.Fatal("expected a session id to be minted")
	}
	if resp.SessionID != session || len(resp.Items) != 0 {
		t.Errorf("unexpected empty cart response: %+v", resp)
	}
	if !resp.Quote.Subtotal.IsZero() {
		t.Errorf("expected zero subtotal, got %s", resp.Quote.Subtotal)
	}

	t.Run("add defaults quantity to one", func(t *testing.T) {
		_, resp := do(t, mux, http.MethodPost, "/cart/items", session, `{"productId":1}`)
		if resp.ItemCount != 1 {
			t.Errorf("expected item count 1, got %d", resp.ItemCount)
		}
	})

	t.Run("add with quantity increments", func(t *testing.T) {
		_, resp := do(t, mux, http.MethodPost, "/cart/items", session, `{"productId":1,"quantity":2}`)
		if len(resp.Items) != 1 || resp.Items[0].Quantity != 3 {
			t.Errorf("expected one line with quantity 3, got %+v", resp.Items)
		}
		if !resp.Quote.Subtotal.Equal(decimal.NewFromInt(600)) || !resp.Quote.DeliveryFee.IsZero() {
			t.Errorf("unexpected quote: %+v", resp.Quote)
		}
	})

	t.Run("update sets quantity", func(t *testing.T) {
		_, resp := do(t, mux, http.MethodPatch, "/cart/items/1", session, `{"quantity":1}`)
		if resp.Items[0].Quantity != 1 {
			t.Errorf("expected quantity 1, got %d", resp.Items[0].Quantity)
		}
		if !resp.Quote.Total.Equal(decimal.NewFromInt(250)) {
			t.Errorf("expected total 250 with delivery fee, got %s", resp.Quote.Total)
		}
	})

	t.Run("update without quantity is rejected", func(t *testing.T) {
		rec, _ := do(t, mux, http.MethodPatch, "/cart/items/1", session, `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
		_, resp := do(t, mux, http.MethodGet, "/cart", session, "")
		if len(resp.Items) != 1 {
			t.Errorf("expected line to be kept, got %+v", resp.Items)
		}
	})

	t.Run("update of missing item is 404", func(t *testing.T) {
		rec, _ := do(t, mux, http.MethodPatch, "/cart/items/2", session, `{"quantity":1}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("remove deletes line", func(t *testing.T) {
		_, resp := do(t, mux, http.MethodDelete, "/cart/items/1", session, "")
		if len(resp.Items) != 0 {
			t.Errorf("expected empty cart, got %+v", resp.Items)
		}
	})

	t.Run("clear empties cart", func(t *testing.T) {
		do(t, mux, http.MethodPost, "/cart/items", session, `{"productId":2}`)
		_, resp := do(t, mux, http.MethodDelete, "/cart", session, "")
		if len(resp.Items) != 0 || resp.ItemCount != 0 {
			t.Errorf("expected empty cart, got %+v", resp)
		}
	})
}

func TestHandler_SessionsAreIsolated(t *testing.T) {
	mux := newTestMux(t)

	do(t, mux, http.MethodPost, "/cart/items", "alice", `{"productId":1}`)
	_, resp := do(t, mux, http.MethodGet, "/cart", "bob", "")

	if len(resp.Items) != 0 {
		t.Errorf("expected bob's cart to be empty, got %+v", resp.Items)
	}
}

func TestHandler_AddItemErrors(t *testing.T) {
	mux := newTestMux(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"unknown product", `{"productId":99}`, http.StatusNotFound},
		{"zero quantity", `{"productId":1,"quantity":0}`, http.StatusBadRequest},
		{"quantity above cap", `{"productId":1,"quantity":1000}`, http.StatusBadRequest},
		{"malformed body", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, mux, http.MethodPost, "/cart/items", "s", tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

type slowStorage struct {
	*MemoryStorage
	delay time.Duration
}

func (s *slowStorage) Load(ctx context.Context, key string) ([]byte, error) {
	time.Sleep(s.delay)
	return s.MemoryStorage.Load(ctx, key)
}

func TestHandler_ConcurrentAddsForOneSession(t *testing.T) {
	mux := newTestMuxWithStorage(t, &slowStorage{MemoryStorage: NewMemoryStorage(), delay: 5 * time.Millisecond})

	const adds = 20
	var wg sync.WaitGroup
	for range adds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"productId":1}`))
			req.Header.Set(SessionHeader, "s1")
			mux.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	_, resp := do(t, mux, http.MethodGet, "/cart", "s1", "")
	if resp.ItemCount != adds {
		t.Errorf("expected item count %d, got %d", adds, resp.ItemCount)
	}
}
