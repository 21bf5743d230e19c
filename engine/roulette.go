package engine

import (
	"math/rand"

	"casino-engine/models"
)

// RoulettePockets is the number of pockets on a single-zero wheel.
const RoulettePockets = 37

func SpinWheel(rng *rand.Rand) int {
	return rng.Intn(RoulettePockets)
}

func ResolveRoulette(bets []models.Bet, rng *rand.Rand) (*models.RoundOutcome, error) {
	if err := betsForGame(models.GameRoulette, bets); err != nil {
		return nil, err
	}
	return settleRoulette(bets, SpinWheel(rng)), nil
}

func settleRoulette(bets []models.Bet, winningNumber int) *models.RoundOutcome {
	payouts := payoutTally{}
	for _, b := range bets {
		if win := RouletteWinnings(b, winningNumber); win > 0 {
			payouts.add(b.PlayerID, win+b.Amount)
		}
	}
	return &models.RoundOutcome{
		Game: models.GameRoulette,
		Result: models.RouletteResult{
			WinningNumber: winningNumber,
			Color:         RouletteColorOf(winningNumber),
		},
		Payouts: payouts,
	}
}
