package models

import (
	"fmt"
	"time"
)

type GameVariant string
type TableState string

const (
	GameRoulette       GameVariant = "roulette"
	GameBaccarat       GameVariant = "baccarat"
	GameBlackjack      GameVariant = "blackjack"
	GameThreeCardPoker GameVariant = "three-card-poker"
)

// GameVariants lists every playable game in display order.
var GameVariants = []GameVariant{GameRoulette, GameBaccarat, GameThreeCardPoker, GameBlackjack}

func (g GameVariant) Valid() bool {
	switch g {
	case GameRoulette, GameBaccarat, GameBlackjack, GameThreeCardPoker:
		return true
	}
	return false
}

const (
	StateWaiting  TableState = "waiting"
	StateBetting  TableState = "betting"
	StatePlaying  TableState = "playing"
	StateFinished TableState = "finished"
)

// AcceptsBets reports whether a bet may be placed while the table is in s.
func (s TableState) AcceptsBets() bool {
	return s == StateWaiting || s == StateBetting
}

const (
	DefaultMinBet = 10
	DefaultMaxBet = 1000
)

type Table struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Game      GameVariant `json:"game"`
	Players   []string    `json:"players"`
	MinBet    int         `json:"minBet"`
	MaxBet    int         `json:"maxBet"`
	State     TableState  `json:"state"`
	CreatedAt time.Time   `json:"createdAt"`
}

// HasPlayer reports whether playerID is seated at the table.
func (t *Table) HasPlayer(playerID string) bool {
	for _, id := range t.Players {
		if id == playerID {
			return true
		}
	}
	return false
}

// ValidateBetLimits checks the bounds invariant 0 < minBet <= maxBet.
func ValidateBetLimits(minBet, maxBet int) error {
	if minBet <= 0 || maxBet <= 0 {
		return fmt.Errorf("bet limits must be positive (min %d, max %d)", minBet, maxBet)
	}
	if minBet > maxBet {
		return fmt.Errorf("minimum bet %d exceeds maximum bet %d", minBet, maxBet)
	}
	return nil
}

// TableChannel is the publish channel scoped to one table.
func TableChannel(tableID string) string {
	return "table-" + tableID
}

// GlobalChannel receives events that are not scoped to a table.
const GlobalChannel = "global"
