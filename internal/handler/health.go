package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/deppfellow/employee-api/internal/database"
	"github.com/deppfellow/employee-api/internal/middleware"
	"github.com/deppfellow/employee-api/internal/server"
	"github.com/labstack/echo/v4"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthHandler serves /status for load balancers and monitors.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

type HealthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Environment string                 `json:"environment"`
	Checks      map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	State        string `json:"state,omitempty"`
	Server       string `json:"server,omitempty"`
	Database     string `json:"database,omitempty"`
	Category     string `json:"category,omitempty"`
	Error        string `json:"error,omitempty"`
}

// CheckHealth probes the database with one connection and SELECT 1. The
// probe may provision the database if nobody has yet. A slow but working
// database is degraded and still answers 200; a failing one answers 503.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	response := HealthResponse{
		Status:      StatusHealthy,
		Timestamp:   time.Now().UTC(),
		Environment: h.server.Config.Primary.Env,
		Checks:      map[string]CheckResult{},
	}

	healthChecks := h.server.Config.Observability.HealthChecks
	if healthChecks.Enabled {
		check := h.checkDatabase(c.Request().Context(), healthChecks.Timeout, healthChecks.DegradedThreshold)
		response.Checks["database"] = check
		response.Status = check.Status
	}

	switch response.Status {
	case StatusUnhealthy:
		logger.Error().Interface("checks", response.Checks).Msg("health check failed")
		h.recordHealthEvent(response.Checks["database"])
		return c.JSON(http.StatusServiceUnavailable, response)
	case StatusDegraded:
		logger.Warn().Interface("checks", response.Checks).Msg("health check degraded")
	default:
		logger.Debug().Msg("health check passed")
	}

	return c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) checkDatabase(ctx context.Context, timeout, degradedAfter time.Duration) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := h.server.DB.WithConn(ctx, func(conn *database.Conn) error {
		var one int
		return conn.QueryRowxContext(ctx, "SELECT 1").Scan(&one)
	})
	elapsed := time.Since(start)

	result := CheckResult{
		Status:       StatusHealthy,
		ResponseTime: elapsed.String(),
		State:        h.server.DB.State().String(),
		Server:       h.server.Config.Database.Host,
		Database:     h.server.Config.Database.Name,
	}

	switch {
	case err != nil:
		result.Status = StatusUnhealthy
		result.Category = database.Classify(err).String()
		result.Error = err.Error()
	case elapsed > degradedAfter:
		result.Status = StatusDegraded
	}

	return result
}

func (h *HealthHandler) recordHealthEvent(check CheckResult) {
	app := h.server.LoggerService.GetApplication()
	if app == nil {
		return
	}
	app.RecordCustomEvent("HealthCheckError", map[string]any{
		"check_type": "database",
		"category":   check.Category,
		"state":      check.State,
		"error":      check.Error,
	})
}
