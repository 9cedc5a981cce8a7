package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joao-fontenele/apna-store/internal/cart"
	"github.com/joao-fontenele/apna-store/internal/catalog"
	"github.com/joao-fontenele/apna-store/internal/checkout"
	"github.com/joao-fontenele/apna-store/internal/domain"
	"github.com/joao-fontenele/apna-store/internal/healthcheck"
	"github.com/joao-fontenele/apna-store/internal/messaging"
	"github.com/joao-fontenele/apna-store/internal/orders"
	"github.com/joao-fontenele/apna-store/internal/telemetry"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	port := getenv("PORT", "8080")
	grpcPort := getenv("GRPC_PORT", "50051")

	cartTTL, err := time.ParseDuration(getenv("CART_TTL", "720h"))
	if err != nil {
		logger.Error("invalid CART_TTL", "error", err)
		os.Exit(1)
	}

	grpcHealth := health.NewServer()
	checker := healthcheck.NewChecker(grpcHealth, logger)

	var db *sql.DB
	if postgresURL := os.Getenv("POSTGRES_URL"); postgresURL != "" {
		db, err = telemetry.OpenDB(postgresURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		if err := db.PingContext(ctx); err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		checker.Register("postgres", db.PingContext)
	}

	store, err := loadCatalog(ctx, db, logger)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	var carts cart.Storage = cart.NewMemoryStorage()
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer func() { _ = rdb.Close() }()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		carts = cart.NewRedisStorage(rdb, cartTTL)
		checker.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	var orderRepo orders.Repository = orders.NewMemoryStore()
	if db != nil {
		orderRepo = orders.NewPostgresRepository(db)
	}

	var publisher checkout.EventPublisher
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		producer := messaging.NewProducer(strings.Split(kafkaBrokers, ","), messaging.TopicOrderPlaced)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	sessionLocks := cart.NewSessionLocks()
	catalogHandler := catalog.NewHandler(store, logger)
	cartHandler, err := cart.NewHandler(carts, store, sessionLocks, logger)
	if err != nil {
		logger.Error("failed to create cart handler", "error", err)
		os.Exit(1)
	}
	checkoutService, err := checkout.NewService(orderRepo, publisher, logger)
	if err != nil {
		logger.Error("failed to create checkout service", "error", err)
		os.Exit(1)
	}
	checkoutHandler := checkout.NewHandler(checkoutService, carts, sessionLocks, logger)
	ordersHandler := orders.NewHandler(orderRepo, logger)

	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}
	route("GET /products", catalogHandler.HandleList)
	route("GET /products/featured", catalogHandler.HandleFeatured)
	route("GET /products/{id}", catalogHandler.HandleGet)
	route("GET /categories", catalogHandler.HandleCategories)
	route("GET /categories/{category}/products", catalogHandler.HandleByCategory)
	route("GET /search", catalogHandler.HandleSearch)
	route("GET /facets", catalogHandler.HandleFacets)

	route("GET /cart", cartHandler.HandleGet)
	route("DELETE /cart", cartHandler.HandleClear)
	route("POST /cart/items", cartHandler.HandleAddItem)
	route("PATCH /cart/items/{productId}", cartHandler.HandleUpdateItem)
	route("DELETE /cart/items/{productId}", cartHandler.HandleRemoveItem)

	route("POST /checkout", checkoutHandler.HandleCheckout)

	route("GET /orders", ordersHandler.HandleList)
	route("POST /orders", ordersHandler.HandleCreate)
	route("GET /orders/{id}", ordersHandler.HandleGet)
	route("PATCH /orders/{id}/status", ordersHandler.HandleUpdateStatus)

	mux.HandleFunc("GET /health", checker.HandleHTTP)
	mux.Handle("GET /metrics", providers.MetricsHandler)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      telemetry.Handler(mux, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, grpcHealth)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("failed to listen", "error", err, "port", grpcPort)
		os.Exit(1)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go checker.Watch(watchCtx, 15*time.Second)

	go func() {
		logger.Info("starting grpc health server", "port", grpcPort)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server error", "error", err)
		}
	}()

	go func() {
		logger.Info("starting storefront", "port", port, "products", len(store.All()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	stopWatch()
	grpcHealth.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
}

// loadCatalog reads products from Postgres when available and falls back to
// the embedded seed otherwise or when the table is empty.
func loadCatalog(ctx context.Context, db *sql.DB, logger *slog.Logger) (*catalog.Store, error) {
	var products []domain.Product
	if db != nil {
		var err error
		products, err = catalog.NewProductRepository(db).ListAll(ctx)
		if err != nil {
			return nil, err
		}
		if len(products) == 0 {
			logger.Warn("catalog table is empty, using embedded seed")
		}
	}

	if len(products) == 0 {
		seed, err := catalog.SeedProducts()
		if err != nil {
			return nil, err
		}
		products = seed
	}

	return catalog.NewStore(products), nil
}
