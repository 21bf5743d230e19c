package engine

import (
	"math/rand"

	"casino-engine/models"
)

// ResolveBlackjack deals every betting player one hand against the dealer.
// Players stand on their first two cards; the dealer draws to 17.
func ResolveBlackjack(bets []models.Bet, rng *rand.Rand) (*models.RoundOutcome, error) {
	if err := betsForGame(models.GameBlackjack, bets); err != nil {
		return nil, err
	}
	deck := models.NewShoe(rng)

	dealer, err := deck.DealMultiple(2)
	if err != nil {
		return nil, err
	}

	order, stakes := stakesByPlayer(bets, nil)
	hands := make([]models.BlackjackHand, 0, len(order))
	for _, playerID := range order {
		cards, err := deck.DealMultiple(2)
		if err != nil {
			return nil, err
		}
		hands = append(hands, models.BlackjackHand{
			PlayerID: playerID,
			Cards:    cards,
			Total:    BlackjackValue(cards),
			Stake:    stakes[playerID],
		})
	}

	deal := models.Event{
		Event: models.EventBlackjackDeal,
		Data: models.BlackjackDealEvent{
			DealerCards: []models.Card{dealer[0]},
			PlayerHands: append([]models.BlackjackHand(nil), hands...),
		},
	}

	for DealerShouldHit(dealer) {
		card, err := deck.Deal()
		if err != nil {
			return nil, err
		}
		dealer = append(dealer, card)
	}

	payouts := payoutTally{}
	for i := range hands {
		verdict := BlackjackPayout(hands[i].Stake, hands[i].Cards, dealer)
		hands[i].Outcome = verdict.Reason
		payouts.add(hands[i].PlayerID, verdict.Payout)
	}

	return &models.RoundOutcome{
		Game: models.GameBlackjack,
		Result: models.BlackjackResult{
			DealerCards: dealer,
			DealerTotal: BlackjackValue(dealer),
			PlayerHands: hands,
		},
		Payouts: payouts,
		Reveals: []models.Event{
			deal,
			{Event: models.EventBlackjackDealerFinal, Data: models.BlackjackDealerFinalEvent{DealerCards: dealer}},
		},
	}, nil
}
