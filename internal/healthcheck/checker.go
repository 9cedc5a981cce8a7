package healthcheck

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

type Checker struct {
	checks  map[string]CheckFunc
	grpc    *health.Server
	timeout time.Duration
	logger  *slog.Logger
}

func NewChecker(grpcHealth *health.Server, logger *slog.Logger) *Checker {
	return &Checker{
		checks:  make(map[string]CheckFunc),
		grpc:    grpcHealth,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// Register adds a dependency check. Not safe to call once serving.
func (c *Checker) Register(name string, check CheckFunc) {
	c.checks[name] = check
}

// Run executes every check and returns the failures by name.
func (c *Checker) Run(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	failures := make(map[string]string)
	for name, check := range c.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	return failures
}

type response struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
}

func (c *Checker) HandleHTTP(w http.ResponseWriter, r *http.Request) {
	failures := c.Run(r.Context())

	status, resp := http.StatusOK, response{Status: "ok"}
	if len(failures) > 0 {
		status, resp = http.StatusServiceUnavailable, response{Status: "unavailable", Failures: failures}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		c.logger.Error("failed to encode response", "error", err)
	}
}

// Update mirrors the current check results into the gRPC health service.
func (c *Checker) Update(ctx context.Context) {
	failures := c.Run(ctx)

	status := healthpb.HealthCheckResponse_SERVING
	if len(failures) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		c.logger.Warn("health check failed", "failures", failures)
	}
	c.grpc.SetServingStatus("", status)
}

// Watch calls Update every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, interval time.Duration) {
	c.Update(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Update(ctx)
		}
	}
}
