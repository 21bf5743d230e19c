package engine

import (
	"context"
	"fmt"

	"casino-engine/models"
)

// settle credits every payout and then moves the casino aggregate once for
// the whole round. A failed credit is logged and the remaining players are
// still paid; the aggregate always uses the computed totals.
func (m *TableManager) settle(ctx context.Context, tableID, ref string, bets []models.Bet, outcome *models.RoundOutcome) error {
	for _, p := range PayoutList(outcome.Payouts) {
		player, err := m.store.AdjustPlayerBalance(ctx, p.PlayerID, p.Amount, models.ReasonRoundPayout, ref)
		if err != nil {
			m.logger.Error("failed to credit payout", "table", tableID, "player", p.PlayerID, "amount", p.Amount, "err", err)
			continue
		}
		m.publish(ctx, tableID, models.EventPlayerBalanceUpdated, models.PlayerBalanceUpdatedEvent{
			PlayerID: p.PlayerID,
			Balance:  player.Balance,
			Payout:   p.Amount,
		})
	}

	totalBets := models.TotalStake(bets)
	totalPayouts := outcome.TotalPayout()
	if _, err := m.store.AdjustCasinoAggregate(ctx, totalBets-totalPayouts, totalBets, totalPayouts); err != nil {
		return fmt.Errorf("failed to update casino aggregate: %w", err)
	}
	return nil
}

// refund returns each player's stake from bets that will never be resolved.
func (m *TableManager) refund(ctx context.Context, tableID string, bets []models.Bet, ref string) {
	_, stakes := stakesByPlayer(bets, nil)
	for _, p := range PayoutList(stakes) {
		player, err := m.store.AdjustPlayerBalance(ctx, p.PlayerID, p.Amount, models.ReasonStakeRefund, ref)
		if err != nil {
			m.logger.Error("failed to refund stake", "table", tableID, "player", p.PlayerID, "amount", p.Amount, "err", err)
			continue
		}
		m.publish(ctx, tableID, models.EventPlayerBalanceUpdated, models.PlayerBalanceUpdatedEvent{
			PlayerID: p.PlayerID,
			Balance:  player.Balance,
			Payout:   p.Amount,
		})
	}
}
