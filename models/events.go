package models

import "time"

type EventType string

const (
	EventPlayerJoined         EventType = "player-joined"
	EventPlayerLeft           EventType = "player-left"
	EventBetPlaced            EventType = "bet-placed"
	EventCountdownUpdate      EventType = "countdown-update"
	EventGameStateChanged     EventType = "game-state-changed"
	EventGameResult           EventType = "game-result"
	EventPlayerBalanceUpdated EventType = "player-balance-updated"

	EventBaccaratResult       EventType = "baccarat-result"
	EventBlackjackDeal        EventType = "blackjack-deal"
	EventBlackjackDealerFinal EventType = "blackjack-dealer-final"
	EventThreeCardPokerDeal   EventType = "three-card-poker-deal"

	EventTableDeleted EventType = "table-deleted"
)

type Event struct {
	Event     EventType `json:"event"`
	TableID   string    `json:"tableId,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CountdownUpdateEvent struct {
	RemainingSeconds int `json:"remainingSeconds"`
	TotalSeconds     int `json:"totalSeconds"`
}

type GameStateChangedEvent struct {
	State TableState `json:"state"`
}

type GameResultEvent struct {
	Game    GameVariant `json:"game"`
	Result  any         `json:"result"`
	Payouts []Payout    `json:"payouts"`
}

type PlayerBalanceUpdatedEvent struct {
	PlayerID string `json:"playerId"`
	Balance  int    `json:"balance"`
	Payout   int    `json:"payout"`
}

type BetPlacedEvent struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Bet        Bet    `json:"bet"`
}

type PlayerSeatEvent struct {
	PlayerID string `json:"playerId"`
	TableID  string `json:"tableId"`
}

type TableDeletedEvent struct {
	TableID string `json:"tableId"`
}

type BlackjackDealEvent struct {
	DealerCards []Card          `json:"dealerCards"`
	PlayerHands []BlackjackHand `json:"playerHands"`
}

type BlackjackDealerFinalEvent struct {
	DealerCards []Card `json:"dealerCards"`
}

type ThreeCardPokerDealEvent struct {
	DealerCards []Card               `json:"dealerCards"`
	PlayerHands []ThreeCardPokerHand `json:"playerHands"`
}
