package handlers

import (
	"net/http"
	"time"

	"casino-engine/internal/validation"
	"casino-engine/models"

	"github.com/gin-gonic/gin"
)

type createPlayerRequest struct {
	Name    string `json:"name"`
	Balance *int   `json:"balance"`
}

type addChipsRequest struct {
	PlayerID string `json:"playerId"`
	Amount   *int   `json:"amount"`
}

func (h *Handler) ListPlayers(c *gin.Context) {
	players, err := h.store.ListPlayers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, players)
}

func (h *Handler) CreatePlayer(c *gin.Context) {
	var req createPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	name, err := validation.ValidatePlayerName(req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	balance := models.DefaultStartingBalance
	if req.Balance != nil {
		balance = *req.Balance
	}
	if err := validation.ValidateStartingBalance(balance); err != nil {
		h.respondError(c, err)
		return
	}

	player, err := h.store.CreatePlayer(c.Request.Context(), name, balance)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, player)
}

func (h *Handler) GetPlayer(c *gin.Context) {
	player, err := h.store.GetPlayer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, player)
}

func (h *Handler) DeletePlayer(c *gin.Context) {
	if err := h.store.DeletePlayer(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Ledger(c *gin.Context) {
	entries, err := h.store.Ledger(c.Request.Context(), c.Param("id"), queryLimit(c, 50, 500))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// AddChips credits or debits a player through the same relative adjustment
// the engine uses for payouts, so it never overwrites a concurrent payout.
func (h *Handler) AddChips(c *gin.Context) {
	var req addChipsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.PlayerID == "" || req.Amount == nil {
		badRequest(c, "playerId and amount are required")
		return
	}
	if err := validation.ValidateChipAdjustment(*req.Amount); err != nil {
		h.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	player, err := h.store.AdjustPlayerBalance(ctx, req.PlayerID, *req.Amount, models.ReasonAdminAdjustment, "admin")
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("chips adjusted", "player", player.ID, "amount", *req.Amount, "balance", player.Balance)
	if h.publisher != nil {
		channel := models.GlobalChannel
		if player.CurrentTable != "" {
			channel = models.TableChannel(player.CurrentTable)
		}
		event := models.Event{
			Event:   models.EventPlayerBalanceUpdated,
			TableID: player.CurrentTable,
			Data: models.PlayerBalanceUpdatedEvent{
				PlayerID: player.ID,
				Balance:  player.Balance,
				Payout:   *req.Amount,
			},
			Timestamp: time.Now().UTC(),
		}
		if err := h.publisher.Publish(ctx, channel, event); err != nil {
			h.logger.Warn("failed to publish balance update", "player", player.ID, "err", err)
		}
	}

	c.JSON(http.StatusOK, player)
}

func (h *Handler) CasinoStats(c *gin.Context) {
	agg, err := h.store.GetCasinoAggregate(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}
