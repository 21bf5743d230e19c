package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"casino-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoulette_SeededSpins(t *testing.T) {
	bets := []models.Bet{
		mustBet(t, models.GameRoulette, "p1", 10, models.BetRed, nil),
		mustBet(t, models.GameRoulette, "p1", 10, models.BetNumber, intPtr(7)),
		mustBet(t, models.GameRoulette, "p2", 20, models.BetDozen, intPtr(2)),
	}

	for seed := int64(0); seed < 200; seed++ {
		outcome, err := ResolveRoulette(bets, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		result := outcome.Result.(models.RouletteResult)
		require.GreaterOrEqual(t, result.WinningNumber, 0)
		require.Less(t, result.WinningNumber, RoulettePockets)
		assert.Equal(t, RouletteColorOf(result.WinningNumber), result.Color)

		expected := map[string]int{}
		for _, b := range bets {
			if w := RouletteWinnings(b, result.WinningNumber); w > 0 {
				expected[b.PlayerID] += w + b.Amount
			}
		}
		assert.Equal(t, expected, map[string]int(outcome.Payouts), "spin %d", result.WinningNumber)
	}
}

func TestResolveRoulette_RejectsForeignBets(t *testing.T) {
	bet := mustBet(t, models.GameBaccarat, "p1", 10, models.BetBanker, nil)
	_, err := ResolveRoulette([]models.Bet{bet}, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, models.ErrInvalidBetType)
}

func TestPlayBaccarat_DrawRules(t *testing.T) {
	for seed := int64(0); seed < 500; seed++ {
		result, err := PlayBaccarat(models.NewDeck(rand.New(rand.NewSource(seed))))
		require.NoError(t, err)

		require.GreaterOrEqual(t, len(result.PlayerCards), 2)
		require.LessOrEqual(t, len(result.PlayerCards), 3)
		require.GreaterOrEqual(t, len(result.BankerCards), 2)
		require.LessOrEqual(t, len(result.BankerCards), 3)

		p2 := BaccaratValue(result.PlayerCards[:2])
		b2 := BaccaratValue(result.BankerCards[:2])
		natural := p2 >= 8 || b2 >= 8
		if natural {
			assert.Len(t, result.PlayerCards, 2, "seed %d: no draw on a natural", seed)
			assert.Len(t, result.BankerCards, 2, "seed %d: no draw on a natural", seed)
		} else {
			assert.Equal(t, p2 <= 5, len(result.PlayerCards) == 3, "seed %d: player draw rule", seed)
			if len(result.PlayerCards) == 3 {
				third := BaccaratCardValue(result.PlayerCards[2])
				assert.Equal(t, BankerShouldDraw(b2, third), len(result.BankerCards) == 3, "seed %d: banker draw table", seed)
			} else {
				assert.Equal(t, b2 <= 5, len(result.BankerCards) == 3, "seed %d: banker stands on 6-7", seed)
			}
		}

		assert.Equal(t, BaccaratValue(result.PlayerCards), result.PlayerScore)
		assert.Equal(t, BaccaratValue(result.BankerCards), result.BankerScore)
		switch {
		case result.PlayerScore > result.BankerScore:
			assert.Equal(t, models.BaccaratPlayerWins, result.Winner)
		case result.BankerScore > result.PlayerScore:
			assert.Equal(t, models.BaccaratBankerWins, result.Winner)
		default:
			assert.Equal(t, models.BaccaratTie, result.Winner)
		}
	}
}

func TestResolveBaccarat_Payouts(t *testing.T) {
	bets := []models.Bet{
		mustBet(t, models.GameBaccarat, "p1", 100, models.BetPlayer, nil),
		mustBet(t, models.GameBaccarat, "p2", 100, models.BetBanker, nil),
		mustBet(t, models.GameBaccarat, "p3", 100, models.BetTie, nil),
	}
	for seed := int64(0); seed < 100; seed++ {
		outcome, err := ResolveBaccarat(bets, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		result := outcome.Result.(models.BaccaratResult)

		switch result.Winner {
		case models.BaccaratPlayerWins:
			assert.Equal(t, map[string]int{"p1": 200}, map[string]int(outcome.Payouts))
		case models.BaccaratBankerWins:
			assert.Equal(t, map[string]int{"p2": 195}, map[string]int(outcome.Payouts))
		case models.BaccaratTie:
			assert.Equal(t, map[string]int{"p3": 900}, map[string]int(outcome.Payouts))
		}
		require.Len(t, outcome.Reveals, 1)
		assert.Equal(t, models.EventBaccaratResult, outcome.Reveals[0].Event)
	}
}

func TestResolveBlackjack(t *testing.T) {
	bets := []models.Bet{
		mustBet(t, models.GameBlackjack, "p1", 50, models.BetMain, nil),
		mustBet(t, models.GameBlackjack, "p2", 100, models.BetMain, nil),
		mustBet(t, models.GameBlackjack, "p1", 50, models.BetMain, nil),
	}
	for seed := int64(0); seed < 200; seed++ {
		outcome, err := ResolveBlackjack(bets, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		result := outcome.Result.(models.BlackjackResult)

		assert.GreaterOrEqual(t, result.DealerTotal, 17, "dealer draws to 17")
		require.Len(t, result.PlayerHands, 2, "one hand per player")
		assert.Equal(t, "p1", result.PlayerHands[0].PlayerID)
		assert.Equal(t, 100, result.PlayerHands[0].Stake, "stakes are summed per player")

		for _, hand := range result.PlayerHands {
			want := BlackjackPayout(hand.Stake, hand.Cards, result.DealerCards)
			assert.Equal(t, want.Payout, outcome.Payouts[hand.PlayerID])
			assert.Equal(t, want.Reason, hand.Outcome)
		}

		require.Len(t, outcome.Reveals, 2)
		deal := outcome.Reveals[0].Data.(models.BlackjackDealEvent)
		assert.Len(t, deal.DealerCards, 1, "hole card stays hidden on the deal")
		assert.Equal(t, models.EventBlackjackDealerFinal, outcome.Reveals[1].Event)
	}
}

func TestResolveThreeCardPoker(t *testing.T) {
	bets := []models.Bet{
		mustBet(t, models.GameThreeCardPoker, "p1", 10, models.BetAnte, nil),
		mustBet(t, models.GameThreeCardPoker, "p1", 5, models.BetPairPlus, nil),
		mustBet(t, models.GameThreeCardPoker, "p2", 10, models.BetPairPlus, nil),
	}
	for seed := int64(0); seed < 200; seed++ {
		outcome, err := ResolveThreeCardPoker(bets, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		result := outcome.Result.(models.ThreeCardPokerResult)

		require.Len(t, result.PlayerHands, 2, "pair-plus-only players are dealt in")
		dealer, err := EvaluateThreeCardHand(result.DealerCards)
		require.NoError(t, err)
		assert.Equal(t, DealerQualifies(dealer), result.DealerQualifies)

		for _, hand := range result.PlayerHands {
			player, err := EvaluateThreeCardHand(hand.Cards)
			require.NoError(t, err)
			want := ThreeCardPokerPayout(player, dealer, hand.Ante, hand.PairPlus)
			assert.Equal(t, want.Total, hand.Payout)
			assert.Equal(t, want.Total, outcome.Payouts[hand.PlayerID])
		}
		assert.Equal(t, 10, result.PlayerHands[0].Ante)
		assert.Equal(t, 5, result.PlayerHands[0].PairPlus)
		assert.Equal(t, 0, result.PlayerHands[1].Ante)
	}
}

func TestResolvers_CrowdedTables(t *testing.T) {
	var blackjack, threeCard []models.Bet
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("p%02d", i)
		blackjack = append(blackjack, mustBet(t, models.GameBlackjack, id, 10, models.BetMain, nil))
		threeCard = append(threeCard, mustBet(t, models.GameThreeCardPoker, id, 10, models.BetAnte, nil))
	}

	for seed := int64(0); seed < 20; seed++ {
		outcome, err := ResolveBlackjack(blackjack, rand.New(rand.NewSource(seed)))
		require.NoError(t, err, "more hands than one deck holds")
		assert.Len(t, outcome.Result.(models.BlackjackResult).PlayerHands, 40)

		outcome, err = ResolveThreeCardPoker(threeCard, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		hands := outcome.Result.(models.ThreeCardPokerResult).PlayerHands
		require.Len(t, hands, 40)
		for _, h := range hands {
			require.Len(t, h.Cards, 3)
			assert.NotEqual(t, h.Cards[0], h.Cards[1])
			assert.NotEqual(t, h.Cards[1], h.Cards[2])
			assert.NotEqual(t, h.Cards[0], h.Cards[2])
		}
	}
}

func TestDefaultResolvers_CoverEveryGame(t *testing.T) {
	resolvers := DefaultResolvers()
	for _, game := range models.GameVariants {
		assert.Contains(t, resolvers, game)
	}
}

func TestPayoutList_Sorted(t *testing.T) {
	list := PayoutList(map[string]int{"c": 3, "a": 1, "b": 2})
	assert.Equal(t, []models.Payout{
		{PlayerID: "a", Amount: 1},
		{PlayerID: "b", Amount: 2},
		{PlayerID: "c", Amount: 3},
	}, list)
}
