package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Payphone-Digital/accounts/internal/constants"
	"github.com/Payphone-Digital/accounts/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	db    Pinger
	redis Pinger
}

type HealthCheckResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthHandler takes the database and an optional redis pinger.
func NewHealthHandler(db Pinger, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// HealthCheck reports database and cache reachability. Only the database
// decides the overall status; the profile cache degrades gracefully.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := HealthCheckResponse{
		Status:    "healthy",
		Version:   constants.AppVersion,
		Timestamp: time.Now(),
		Checks: map[string]HealthCheck{
			"database": check(ctx, "database", h.db),
			"redis":    check(ctx, "redis", h.redis),
		},
	}
	if response.Checks["database"].Status != "healthy" {
		response.Status = "unhealthy"
	}

	logger.GetLogger().Debug("Health check performed",
		zap.String("overall_status", response.Status),
	)

	if response.Status == "unhealthy" {
		body := constants.BuildErrorResponse(http.StatusServiceUnavailable, constants.MsgUnhealthy, failedChecks(response.Checks))
		body[constants.ResponseFieldData] = response
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(http.StatusOK, response, constants.MsgHealthy))
}

func failedChecks(checks map[string]HealthCheck) []string {
	var failed []string
	for name, result := range checks {
		if result.Status == "unhealthy" {
			failed = append(failed, name+": "+result.Message)
		}
	}
	sort.Strings(failed)
	return failed
}

func check(ctx context.Context, name string, p Pinger) HealthCheck {
	if p == nil {
		return HealthCheck{Status: "disabled"}
	}
	if err := p.Ping(ctx); err != nil {
		logger.GetLogger().Warn("Health check ping failed", zap.String("dependency", name), zap.Error(err))
		return HealthCheck{Status: "unhealthy", Message: err.Error()}
	}
	return HealthCheck{Status: "healthy"}
}
