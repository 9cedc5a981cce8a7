//go:build integration

package test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/apna-store/internal/cart"
	"github.com/joao-fontenele/apna-store/internal/catalog"
	"github.com/joao-fontenele/apna-store/internal/checkout"
	"github.com/joao-fontenele/apna-store/internal/domain"
	"github.com/joao-fontenele/apna-store/internal/messaging"
	"github.com/joao-fontenele/apna-store/internal/orders"
	"github.com/joao-fontenele/apna-store/internal/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		Name:    "Asha",
		Email:   "asha@example.com",
		Phone:   "9999999999",
		Address: "1 MG Road",
		City:    "Pune",
		State:   "MH",
		Pincode: "411001",
	}
}

func TestCatalogSeedRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)

	repo := catalog.NewProductRepository(openDB(t, dsn))

	seed, err := catalog.SeedProducts()
	if err != nil {
		t.Fatalf("failed to read seed: %v", err)
	}

	// twice, to exercise the upsert path
	for range 2 {
		if err := repo.Upsert(ctx, seed); err != nil {
			t.Fatalf("failed to upsert products: %v", err)
		}
	}

	products, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("failed to list products: %v", err)
	}
	if len(products) != len(seed) {
		t.Fatalf("expected %d products, got %d", len(seed), len(products))
	}

	for i, p := range products {
		want := seed[i]
		if p.ID != want.ID || p.Name != want.Name || !p.Price.Equal(want.Price) {
			t.Errorf("product %d mismatch: got %+v", want.ID, p)
		}
		if (p.OriginalPrice == nil) != (want.OriginalPrice == nil) {
			t.Errorf("product %d original price mismatch", want.ID)
		}
		if len(p.Sizes) != len(want.Sizes) || len(p.Colors) != len(want.Colors) {
			t.Errorf("product %d array columns mismatch", want.ID)
		}
	}

	store := catalog.NewStore(products)
	if len(store.Featured()) == 0 {
		t.Error("expected featured products after round trip")
	}
}

func TestOrderRepository(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := orders.NewPostgresRepository(openDB(t, dsn), orders.WithClock(func() time.Time { return now }))

	input := domain.OrderInput{
		Items: []domain.LineItem{
			{ProductID: 5, Name: "Sneakers", Price: decimal.RequireFromString("100.50"), Quantity: 2},
			{ProductID: 1, Name: "Shirt", Price: decimal.NewFromInt(300), Quantity: 1},
		},
		Total:           decimal.RequireFromString("501"),
		ShippingAddress: testAddress(),
	}

	first, err := repo.Create(ctx, input)
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	if first.ID != 1 || first.Status != domain.OrderStatusPlaced {
		t.Fatalf("unexpected order: %+v", first)
	}
	if first.EstimatedDelivery.Sub(first.OrderDate) != domain.DeliveryWindow {
		t.Errorf("expected delivery 7 days after order date")
	}

	// same clock, so the token collides and must be bumped without skipping an id
	second, err := repo.Create(ctx, input)
	if err != nil {
		t.Fatalf("failed to create second order: %v", err)
	}
	if second.ID != 2 || second.OrderID == first.OrderID {
		t.Fatalf("expected a distinct sequential order, got %+v", second)
	}

	t.Run("get by id and token", func(t *testing.T) {
		for _, ref := range []string{"1", first.OrderID} {
			got, err := repo.Get(ctx, ref)
			if err != nil {
				t.Fatalf("failed to get %s: %v", ref, err)
			}
			if got.OrderID != first.OrderID || len(got.Items) != 2 || got.Items[0].ProductID != 5 {
				t.Errorf("unexpected order for %s: %+v", ref, got)
			}
			if !got.Total.Equal(input.Total) || got.ShippingAddress != input.ShippingAddress {
				t.Errorf("order fields not persisted: %+v", got)
			}
			if !got.OrderDate.Equal(now) {
				t.Errorf("expected order date %v, got %v", now, got.OrderDate)
			}
		}
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.Get(ctx, "RL0")
		if !errors.Is(err, orders.ErrOrderNotFound) {
			t.Errorf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		list, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}
		if len(list) != 2 || len(list[0].Items) != 2 || len(list[1].Items) != 2 {
			t.Fatalf("unexpected list: %+v", list)
		}
	})

	t.Run("update status", func(t *testing.T) {
		updated, err := repo.UpdateStatus(ctx, first.OrderID, domain.OrderStatusShipped)
		if err != nil {
			t.Fatalf("failed to update status: %v", err)
		}
		if updated.Status != domain.OrderStatusShipped {
			t.Errorf("expected shipped, got %s", updated.Status)
		}

		if _, err := repo.UpdateStatus(ctx, first.OrderID, "lost"); !errors.Is(err, orders.ErrInvalidStatus) {
			t.Errorf("expected ErrInvalidStatus, got %v", err)
		}
		if _, err := repo.UpdateStatus(ctx, "RL0", domain.OrderStatusShipped); !errors.Is(err, orders.ErrOrderNotFound) {
			t.Errorf("expected ErrOrderNotFound, got %v", err)
		}
	})
}

func TestKafkaConnection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	brokers := startKafka(ctx, t)

	if len(brokers) == 0 {
		t.Fatal("expected at least one broker")
	}

	t.Logf("kafka brokers: %v", brokers)
}

func TestCheckoutToFulfillmentFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)

	brokers := startKafka(ctx, t)

	logger := discardLogger()
	ordersRepo := orders.NewPostgresRepository(openDB(t, dsn))

	ordersHandler := orders.NewHandler(ordersRepo, logger)
	storefrontMux := http.NewServeMux()
	storefrontMux.HandleFunc("PATCH /orders/{id}/status", ordersHandler.HandleUpdateStatus)
	storefront := httptest.NewServer(storefrontMux)
	defer storefront.Close()

	producer := messaging.NewProducer(brokers, messaging.TopicOrderPlaced)
	defer func() { _ = producer.Close() }()

	service, err := checkout.NewService(ordersRepo, producer, logger)
	if err != nil {
		t.Fatalf("failed to create checkout service: %v", err)
	}

	carts := cart.NewMemoryStorage()
	c, err := cart.Load(ctx, carts, "session-1", logger)
	if err != nil {
		t.Fatalf("failed to load cart: %v", err)
	}
	if err := c.Add(ctx, domain.Product{ID: 3, Name: "Kettle", Price: decimal.NewFromInt(250)}, 2); err != nil {
		t.Fatalf("failed to add item: %v", err)
	}

	order, err := service.PlaceOrder(ctx, c, testAddress())
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !order.Total.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected total 500, got %s", order.Total)
	}

	consumer := messaging.NewConsumer(brokers, messaging.TopicOrderPlaced, "integration-test", logger,
		messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	client := worker.NewStorefrontClient(storefront.URL, &http.Client{Timeout: 10 * time.Second}, worker.DefaultBreakerSettings(), logger)
	fulfillment := worker.NewFulfillmentHandler(client, logger)

	consumeCtx, stopConsuming := context.WithCancel(ctx)
	defer stopConsuming()

	var received domain.OrderPlacedEvent
	err = consumer.ConsumeOrderPlaced(consumeCtx, func(ctx context.Context, event domain.OrderPlacedEvent) error {
		received = event
		err := fulfillment.Handle(ctx, event)
		stopConsuming()
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("consumer failed: %v", err)
	}

	if received.OrderID != order.OrderID || received.Email != "asha@example.com" {
		t.Fatalf("unexpected event: %+v", received)
	}

	final, err := ordersRepo.Get(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("failed to get order: %v", err)
	}
	if final.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected status processing, got %s", final.Status)
	}

	req := httptest.NewRequest(http.MethodGet, "/orders/"+order.OrderID, nil)
	req.SetPathValue("id", order.OrderID)
	rec := httptest.NewRecorder()
	ordersHandler.HandleGet(rec, req)

	var body map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if !strings.Contains(string(body["tracking"]), `"processing"`) {
		t.Errorf("expected tracking steps in response, got %s", body["tracking"])
	}
}
