package engine

import (
	"math/rand"

	"casino-engine/models"
)

// ResolveThreeCardPoker deals a hand to every player holding an ante or
// pair plus bet and settles both against the dealer.
func ResolveThreeCardPoker(bets []models.Bet, rng *rand.Rand) (*models.RoundOutcome, error) {
	if err := betsForGame(models.GameThreeCardPoker, bets); err != nil {
		return nil, err
	}
	deck := models.NewShoe(rng)

	dealerCards, err := deck.DealMultiple(3)
	if err != nil {
		return nil, err
	}
	dealer, err := EvaluateThreeCardHand(dealerCards)
	if err != nil {
		return nil, err
	}

	order, _ := stakesByPlayer(bets, nil)
	_, antes := stakesByPlayer(bets, func(b models.Bet) bool { return b.Type == models.BetAnte })
	_, pairPlus := stakesByPlayer(bets, func(b models.Bet) bool { return b.Type == models.BetPairPlus })

	hands := make([]models.ThreeCardPokerHand, 0, len(order))
	payouts := payoutTally{}
	for _, playerID := range order {
		cards, err := deck.DealMultiple(3)
		if err != nil {
			return nil, err
		}
		hand, err := EvaluateThreeCardHand(cards)
		if err != nil {
			return nil, err
		}
		settlement := ThreeCardPokerPayout(hand, dealer, antes[playerID], pairPlus[playerID])
		payouts.add(playerID, settlement.Total)
		hands = append(hands, models.ThreeCardPokerHand{
			PlayerID: playerID,
			Cards:    cards,
			Rank:     hand.Rank.String(),
			Ante:     antes[playerID],
			PairPlus: pairPlus[playerID],
			Payout:   settlement.Total,
		})
	}

	deal := models.ThreeCardPokerDealEvent{DealerCards: dealerCards}
	for _, h := range hands {
		deal.PlayerHands = append(deal.PlayerHands, models.ThreeCardPokerHand{
			PlayerID: h.PlayerID,
			Cards:    h.Cards,
			Rank:     h.Rank,
		})
	}

	return &models.RoundOutcome{
		Game: models.GameThreeCardPoker,
		Result: models.ThreeCardPokerResult{
			DealerCards:     dealerCards,
			DealerRank:      dealer.Rank.String(),
			DealerQualifies: DealerQualifies(dealer),
			PlayerHands:     hands,
		},
		Payouts: payouts,
		Reveals: []models.Event{{Event: models.EventThreeCardPokerDeal, Data: deal}},
	}, nil
}
