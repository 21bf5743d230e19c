package engine

import "casino-engine/models"

// Basis points system (10000 = 1.00x). Fractional payouts round down.
const BasisPointsTotal = 10000

const (
	bankerWinBasisPoints  = 9500  // 0.95:1, 5% commission
	blackjackNaturalBasis = 25000 // 2.5x stake returned in total
)

// ApplyBasisPoints multiplies amount by bp/10000 using integer math.
func ApplyBasisPoints(amount, bp int) int {
	return (amount * bp) / BasisPointsTotal
}

var rouletteRed = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true, 16: true, 18: true,
	19: true, 21: true, 23: true, 25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// RouletteColorOf returns the pocket colour for n in 0..36.
func RouletteColorOf(n int) models.RouletteColor {
	switch {
	case n == 0:
		return models.ColorGreen
	case rouletteRed[n]:
		return models.ColorRed
	}
	return models.ColorBlack
}

// RouletteWinnings returns what a roulette bet wins on n, excluding the
// returned stake. Zero only pays straight bets on 0.
func RouletteWinnings(bet models.Bet, n int) int {
	if n == 0 {
		if bet.Type == models.BetNumber && bet.ValueOr(-1) == 0 {
			return bet.Amount * 35
		}
		return 0
	}

	win := false
	multiplier := 1
	switch bet.Type {
	case models.BetNumber:
		win, multiplier = bet.ValueOr(-1) == n, 35
	case models.BetRed:
		win = RouletteColorOf(n) == models.ColorRed
	case models.BetBlack:
		win = RouletteColorOf(n) == models.ColorBlack
	case models.BetOdd:
		win = n%2 == 1
	case models.BetEven:
		win = n%2 == 0
	case models.BetLow:
		win = n >= 1 && n <= 18
	case models.BetHigh:
		win = n >= 19 && n <= 36
	case models.BetDozen:
		win, multiplier = bet.ValueOr(0) == (n+11)/12, 2
	case models.BetColumn:
		column := n % 3
		if column == 0 {
			column = 3
		}
		win, multiplier = bet.ValueOr(0) == column, 2
	}
	if !win {
		return 0
	}
	return bet.Amount * multiplier
}

// BaccaratWinnings returns what a baccarat bet wins, excluding the returned
// stake. Player and banker bets lose on a tie.
func BaccaratWinnings(bet models.Bet, winner models.BaccaratWinner) int {
	switch {
	case bet.Type == models.BetPlayer && winner == models.BaccaratPlayerWins:
		return bet.Amount
	case bet.Type == models.BetBanker && winner == models.BaccaratBankerWins:
		return ApplyBasisPoints(bet.Amount, bankerWinBasisPoints)
	case bet.Type == models.BetTie && winner == models.BaccaratTie:
		return bet.Amount * 8
	}
	return 0
}

// PlayerShouldDraw applies the baccarat player rule: draw on 0-5.
func PlayerShouldDraw(playerTotal int) bool {
	return playerTotal <= 5
}

// BankerShouldDraw applies the banker rule once the player has drawn a third
// card worth playerThird.
func BankerShouldDraw(bankerTotal, playerThird int) bool {
	switch bankerTotal {
	case 0, 1, 2:
		return true
	case 3:
		return playerThird != 8
	case 4:
		return playerThird >= 2 && playerThird <= 7
	case 5:
		return playerThird >= 4 && playerThird <= 7
	case 6:
		return playerThird == 6 || playerThird == 7
	}
	return false
}

// BlackjackSettlement is the verdict for one player hand against the dealer.
type BlackjackSettlement struct {
	Payout int
	Reason string
}

// BlackjackPayout returns the total credited for stake, including the stake
// itself when it is returned.
func BlackjackPayout(stake int, player, dealer []models.Card) BlackjackSettlement {
	playerValue := BlackjackValue(player)
	dealerValue := BlackjackValue(dealer)
	playerNatural := IsBlackjackNatural(player)
	dealerNatural := IsBlackjackNatural(dealer)

	switch {
	case playerValue > 21:
		return BlackjackSettlement{0, "player busted"}
	case playerNatural && !dealerNatural:
		return BlackjackSettlement{ApplyBasisPoints(stake, blackjackNaturalBasis), "blackjack"}
	case dealerNatural && !playerNatural:
		return BlackjackSettlement{0, "dealer blackjack"}
	case playerNatural && dealerNatural:
		return BlackjackSettlement{stake, "push"}
	case dealerValue > 21:
		return BlackjackSettlement{stake * 2, "dealer busted"}
	case playerValue > dealerValue:
		return BlackjackSettlement{stake * 2, "player wins"}
	case playerValue < dealerValue:
		return BlackjackSettlement{0, "dealer wins"}
	}
	return BlackjackSettlement{stake, "push"}
}

var pairPlusMultiplier = map[ThreeCardRank]int{
	ThreeCardPair:          1,
	ThreeCardFlush:         3,
	ThreeCardStraight:      6,
	ThreeCardThreeOfAKind:  30,
	ThreeCardStraightFlush: 40,
}

var anteBonusMultiplier = map[ThreeCardRank]int{
	ThreeCardStraight:      1,
	ThreeCardThreeOfAKind:  4,
	ThreeCardStraightFlush: 5,
}

// PairPlusWinnings returns the pair plus winnings for rank, excluding stake.
func PairPlusWinnings(stake int, rank ThreeCardRank) int {
	return stake * pairPlusMultiplier[rank]
}

type ThreeCardPokerSettlement struct {
	AntePlay int
	PairPlus int
	Total    int
}

// ThreeCardPokerPayout settles one player's ante and pair plus stakes. The
// play bet equals the ante and is never collected separately, so a winning
// ante returns 2x ante plus the premium-hand bonus. A push against a
// qualifying dealer returns the ante.
func ThreeCardPokerPayout(player, dealer ThreeCardHand, ante, pairPlus int) ThreeCardPokerSettlement {
	var s ThreeCardPokerSettlement

	if pairPlus > 0 {
		if win := PairPlusWinnings(pairPlus, player.Rank); win > 0 {
			s.PairPlus = win + pairPlus
		}
	}

	if ante > 0 {
		switch {
		case !DealerQualifies(dealer):
			s.AntePlay = ante * 2
		case CompareThreeCardHands(player, dealer) > 0:
			s.AntePlay = ante*2 + ante*anteBonusMultiplier[player.Rank]
		case CompareThreeCardHands(player, dealer) == 0:
			s.AntePlay = ante
		}
	}

	s.Total = s.AntePlay + s.PairPlus
	return s
}
