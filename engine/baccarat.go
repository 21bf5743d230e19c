package engine

import (
	"math/rand"

	"casino-engine/models"
)

// PlayBaccarat deals a coup from deck: two cards each, naturals stand,
// then the player and banker third-card rules.
func PlayBaccarat(deck *models.Deck) (models.BaccaratResult, error) {
	player, err := deck.DealMultiple(2)
	if err != nil {
		return models.BaccaratResult{}, err
	}
	banker, err := deck.DealMultiple(2)
	if err != nil {
		return models.BaccaratResult{}, err
	}

	if !IsBaccaratNatural(player) && !IsBaccaratNatural(banker) {
		var playerThird *models.Card
		if PlayerShouldDraw(BaccaratValue(player)) {
			card, err := deck.Deal()
			if err != nil {
				return models.BaccaratResult{}, err
			}
			player = append(player, card)
			playerThird = &card
		}

		bankerDraws := false
		if playerThird == nil {
			bankerDraws = BaccaratValue(banker) <= 5
		} else {
			bankerDraws = BankerShouldDraw(BaccaratValue(banker), BaccaratCardValue(*playerThird))
		}
		if bankerDraws {
			card, err := deck.Deal()
			if err != nil {
				return models.BaccaratResult{}, err
			}
			banker = append(banker, card)
		}
	}

	result := models.BaccaratResult{
		PlayerCards: player,
		BankerCards: banker,
		PlayerScore: BaccaratValue(player),
		BankerScore: BaccaratValue(banker),
	}
	switch {
	case result.PlayerScore > result.BankerScore:
		result.Winner = models.BaccaratPlayerWins
	case result.BankerScore > result.PlayerScore:
		result.Winner = models.BaccaratBankerWins
	default:
		result.Winner = models.BaccaratTie
	}
	return result, nil
}

func ResolveBaccarat(bets []models.Bet, rng *rand.Rand) (*models.RoundOutcome, error) {
	if err := betsForGame(models.GameBaccarat, bets); err != nil {
		return nil, err
	}
	result, err := PlayBaccarat(models.NewDeck(rng))
	if err != nil {
		return nil, err
	}

	payouts := payoutTally{}
	for _, b := range bets {
		if win := BaccaratWinnings(b, result.Winner); win > 0 {
			payouts.add(b.PlayerID, win+b.Amount)
		}
	}

	return &models.RoundOutcome{
		Game:    models.GameBaccarat,
		Result:  result,
		Payouts: payouts,
		Reveals: []models.Event{{Event: models.EventBaccaratResult, Data: result}},
	}, nil
}
