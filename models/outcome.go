package models

// Payout is one player's credit for a round: winnings plus any returned stake.
type Payout struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
}

// RoundOutcome is produced by a game resolver. Reveals are intermediate
// events published, in order, before the final game-result.
type RoundOutcome struct {
	Game    GameVariant    `json:"game"`
	Result  any            `json:"result"`
	Payouts map[string]int `json:"-"`
	Reveals []Event        `json:"-"`
}

// TotalPayout sums every player's payout.
func (o *RoundOutcome) TotalPayout() int {
	total := 0
	for _, amount := range o.Payouts {
		total += amount
	}
	return total
}

// RouletteColor is the pocket colour of a roulette number.
type RouletteColor string

const (
	ColorGreen RouletteColor = "green"
	ColorRed   RouletteColor = "red"
	ColorBlack RouletteColor = "black"
)

type RouletteResult struct {
	WinningNumber int           `json:"winningNumber"`
	Color         RouletteColor `json:"color"`
}

type BaccaratWinner string

const (
	BaccaratPlayerWins BaccaratWinner = "player"
	BaccaratBankerWins BaccaratWinner = "banker"
	BaccaratTie        BaccaratWinner = "tie"
)

type BaccaratResult struct {
	PlayerCards []Card         `json:"playerCards"`
	BankerCards []Card         `json:"bankerCards"`
	PlayerScore int            `json:"playerScore"`
	BankerScore int            `json:"bankerScore"`
	Winner      BaccaratWinner `json:"winner"`
}

type BlackjackHand struct {
	PlayerID string `json:"playerId"`
	Cards    []Card `json:"cards"`
	Total    int    `json:"total"`
	Stake    int    `json:"stake"`
	Outcome  string `json:"outcome"`
}

type BlackjackResult struct {
	DealerCards []Card          `json:"dealerCards"`
	DealerTotal int             `json:"dealerTotal"`
	PlayerHands []BlackjackHand `json:"playerHands"`
}

type ThreeCardPokerHand struct {
	PlayerID string `json:"playerId"`
	Cards    []Card `json:"cards"`
	Rank     string `json:"rank"`
	Ante     int    `json:"ante"`
	PairPlus int    `json:"pairPlus"`
	Payout   int    `json:"payout"`
}

type ThreeCardPokerResult struct {
	DealerCards     []Card               `json:"dealerCards"`
	DealerRank      string               `json:"dealerRank"`
	DealerQualifies bool                 `json:"dealerQualifies"`
	PlayerHands     []ThreeCardPokerHand `json:"playerHands"`
}
