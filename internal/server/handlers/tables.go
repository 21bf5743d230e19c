package handlers

import (
	"errors"
	"net/http"

	"casino-engine/engine"
	"casino-engine/internal/store"
	"casino-engine/internal/validation"
	"casino-engine/models"

	"github.com/gin-gonic/gin"
)

type createTableRequest struct {
	Name   string `json:"name"`
	Game   string `json:"game"`
	MinBet int    `json:"minBet"`
	MaxBet int    `json:"maxBet"`
}

type updateTableRequest struct {
	Name   *string `json:"name"`
	MinBet *int    `json:"minBet"`
	MaxBet *int    `json:"maxBet"`
}

type seatRequest struct {
	PlayerID string `json:"playerId"`
}

type betRequest struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
	Type     string `json:"type"`
	Value    *int   `json:"value"`
}

// tableResponse is a stored table plus the engine's live view of its round.
type tableResponse struct {
	*models.Table
	Round engine.TableSnapshot `json:"round"`
}

func (h *Handler) ListTables(c *gin.Context) {
	tables, err := h.store.ListTables(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

func (h *Handler) CreateTable(c *gin.Context) {
	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	name, err := validation.ValidateTableName(req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := validation.ValidateGame(req.Game); err != nil {
		h.respondError(c, err)
		return
	}
	if err := validation.ValidateBetLimits(req.MinBet, req.MaxBet); err != nil {
		h.respondError(c, err)
		return
	}

	table, err := h.store.CreateTable(c.Request.Context(), store.TableParams{
		Name:   name,
		Game:   models.GameVariant(req.Game),
		MinBet: req.MinBet,
		MaxBet: req.MaxBet,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("table created", "table", table.ID, "game", table.Game, "min", table.MinBet, "max", table.MaxBet)
	c.JSON(http.StatusCreated, table)
}

func (h *Handler) GetTable(c *gin.Context) {
	id := c.Param("id")
	table, err := h.store.GetTable(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tableResponse{Table: table, Round: h.engine.Snapshot(id)})
}

// UpdateTable patches the name and limits. State is owned by the engine and
// cannot be set here.
func (h *Handler) UpdateTable(c *gin.Context) {
	var req updateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	update := store.TableUpdate{MinBet: req.MinBet, MaxBet: req.MaxBet}
	if req.Name != nil {
		name, err := validation.ValidateTableName(*req.Name)
		if err != nil {
			h.respondError(c, err)
			return
		}
		update.Name = &name
	}

	table, err := h.store.UpdateTable(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *Handler) DeleteTable(c *gin.Context) {
	if err := h.engine.DeleteTable(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) bindSeat(c *gin.Context) (string, bool) {
	var req seatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return "", false
	}
	if err := validation.ValidateID(req.PlayerID, "playerId"); err != nil {
		badRequest(c, err.Error())
		return "", false
	}
	return req.PlayerID, true
}

func (h *Handler) JoinTable(c *gin.Context) {
	playerID, ok := h.bindSeat(c)
	if !ok {
		return
	}
	table, err := h.engine.JoinTable(c.Request.Context(), c.Param("id"), playerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *Handler) LeaveTable(c *gin.Context) {
	playerID, ok := h.bindSeat(c)
	if !ok {
		return
	}
	table, err := h.engine.LeaveTable(c.Request.Context(), c.Param("id"), playerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *Handler) PlaceBet(c *gin.Context) {
	var req betRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.PlayerID == "" || req.Amount == 0 || req.Type == "" {
		badRequest(c, "playerId, amount, and type are required")
		return
	}
	if err := validation.ValidateBetAmount(req.Amount); err != nil {
		h.respondError(c, err)
		return
	}
	if h.bets != nil && !h.bets.AllowBet(req.PlayerID) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many bets, please slow down"})
		return
	}

	receipt, err := h.engine.PlaceBet(c.Request.Context(), engine.BetRequest{
		PlayerID: req.PlayerID,
		TableID:  c.Param("id"),
		Amount:   req.Amount,
		Type:     models.BetType(req.Type),
		Value:    req.Value,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"bet":              receipt.Bet,
		"remainingBalance": receipt.RemainingBalance,
		"state":            receipt.State,
	})
}

// ExecuteRound closes betting early. Calling it on a table that is not
// betting changes nothing.
func (h *Handler) ExecuteRound(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.GetTable(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.engine.ExecuteRound(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.engine.Snapshot(id))
}

func (h *Handler) ListRounds(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.GetTable(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	rounds, err := h.store.ListRounds(c.Request.Context(), id, queryLimit(c, 20, 100))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rounds)
}

func (h *Handler) LastRound(c *gin.Context) {
	round, err := h.store.LastRound(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNoRounds) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed rounds"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}
