package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"casino-engine/engine"
	"casino-engine/internal/middleware"
	"casino-engine/internal/store"
	"casino-engine/internal/validation"
	"casino-engine/models"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Handler serves the REST API. Provisioning goes straight to the store;
// everything that touches a round goes through the engine.
type Handler struct {
	store     store.Store
	engine    *engine.TableManager
	publisher engine.Publisher
	bets      *middleware.BetLimiter
	checks    map[string]HealthCheck
	logger    *log.Logger
}

type Option func(*Handler)

func WithBetLimiter(l *middleware.BetLimiter) Option {
	return func(h *Handler) { h.bets = l }
}

func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) { h.checks[name] = check }
}

func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

func New(st store.Store, manager *engine.TableManager, publisher engine.Publisher, opts ...Option) *Handler {
	h := &Handler{
		store:     st,
		engine:    manager,
		publisher: publisher,
		checks:    make(map[string]HealthCheck),
		logger:    log.Default().WithPrefix("http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/tables", h.ListTables)
		api.POST("/tables", h.CreateTable)
		api.GET("/tables/:id", h.GetTable)
		api.PATCH("/tables/:id", h.UpdateTable)
		api.DELETE("/tables/:id", h.DeleteTable)
		api.POST("/tables/:id/join", h.JoinTable)
		api.POST("/tables/:id/leave", h.LeaveTable)
		api.POST("/tables/:id/bet", h.PlaceBet)
		api.POST("/tables/:id/execute", h.ExecuteRound)
		api.GET("/tables/:id/rounds", h.ListRounds)
		api.GET("/tables/:id/rounds/last", h.LastRound)

		api.GET("/players", h.ListPlayers)
		api.POST("/players", h.CreatePlayer)
		api.GET("/players/:id", h.GetPlayer)
		api.DELETE("/players/:id", h.DeletePlayer)
		api.GET("/players/:id/ledger", h.Ledger)

		api.POST("/admin/add-chips", h.AddChips)
		api.GET("/admin/casino", h.CasinoStats)
	}
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var rejection *engine.Rejection
	if errors.As(err, &rejection) {
		switch rejection.Reason {
		case engine.ReasonTableNotFound, engine.ReasonPlayerNotFound:
			return http.StatusNotFound
		case engine.ReasonPlayerAtOtherTable, engine.ReasonTableNotAccepting:
			return http.StatusConflict
		default:
			return http.StatusBadRequest
		}
	}

	switch {
	case errors.Is(err, models.ErrTableNotFound),
		errors.Is(err, models.ErrPlayerNotFound),
		errors.Is(err, store.ErrNoRounds):
		return http.StatusNotFound
	case errors.Is(err, models.ErrPlayerAtOtherTable):
		return http.StatusConflict
	case errors.Is(err, models.ErrPlayerNotSeated),
		errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, validation.ErrInvalidRange),
		errors.Is(err, validation.ErrInvalidEnum),
		errors.Is(err, validation.ErrStringTooLong),
		errors.Is(err, validation.ErrStringTooShort),
		errors.Is(err, validation.ErrInvalidName),
		errors.Is(err, validation.ErrContainsXSSPattern):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var rejection *engine.Rejection
	if errors.As(err, &rejection) {
		body["reason"] = rejection.Reason
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "err", err)
		body["error"] = "internal server error"
	}
	c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func queryLimit(c *gin.Context, fallback, max int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}

// Health reports each registered dependency. Any failure makes the whole
// check fail with 503.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
