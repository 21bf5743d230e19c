package engine

import (
	"fmt"
	"math/rand"
	"sort"

	"casino-engine/models"
)

// Resolver plays one round of a game against the round's bets. It must not
// keep state between calls; rng is owned by the caller for the call only.
type Resolver interface {
	Resolve(bets []models.Bet, rng *rand.Rand) (*models.RoundOutcome, error)
}

type ResolverFunc func(bets []models.Bet, rng *rand.Rand) (*models.RoundOutcome, error)

func (f ResolverFunc) Resolve(bets []models.Bet, rng *rand.Rand) (*models.RoundOutcome, error) {
	return f(bets, rng)
}

// DefaultResolvers returns the resolver for every game variant.
func DefaultResolvers() map[models.GameVariant]Resolver {
	return map[models.GameVariant]Resolver{
		models.GameRoulette:       ResolverFunc(ResolveRoulette),
		models.GameBaccarat:       ResolverFunc(ResolveBaccarat),
		models.GameBlackjack:      ResolverFunc(ResolveBlackjack),
		models.GameThreeCardPoker: ResolverFunc(ResolveThreeCardPoker),
	}
}

// payoutTally accumulates per-player payouts, dropping zero entries.
type payoutTally map[string]int

func (p payoutTally) add(playerID string, amount int) {
	if amount > 0 {
		p[playerID] += amount
	}
}

// stakesByPlayer groups bets per player, preserving first-bet order.
func stakesByPlayer(bets []models.Bet, filter func(models.Bet) bool) ([]string, map[string]int) {
	var order []string
	stakes := make(map[string]int)
	for _, b := range bets {
		if filter != nil && !filter(b) {
			continue
		}
		if _, seen := stakes[b.PlayerID]; !seen {
			order = append(order, b.PlayerID)
		}
		stakes[b.PlayerID] += b.Amount
	}
	return order, stakes
}

// PayoutList flattens a payout map into a slice sorted by player id.
func PayoutList(payouts map[string]int) []models.Payout {
	list := make([]models.Payout, 0, len(payouts))
	for id, amount := range payouts {
		list = append(list, models.Payout{PlayerID: id, Amount: amount})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PlayerID < list[j].PlayerID })
	return list
}

func betsForGame(game models.GameVariant, bets []models.Bet) error {
	for _, b := range bets {
		if _, err := models.NewBet(game, b.PlayerID, b.TableID, b.Amount, b.Type, b.Value); err != nil {
			return fmt.Errorf("bet from %s: %w", b.PlayerID, err)
		}
	}
	return nil
}
