package recovery

import (
	"context"
	"fmt"

	"casino-engine/models"

	"github.com/charmbracelet/log"
)

// TableStore is the slice of the store the recovery sweep needs.
type TableStore interface {
	ListTables(ctx context.Context) ([]models.Table, error)
	SetTableState(ctx context.Context, tableID string, state models.TableState) error
}

// TableRecovery returns tables left mid-round by a previous process to
// waiting. Pending bets are never persisted, so a table stuck in betting,
// playing or finished has nothing left to resolve.
type TableRecovery struct {
	store  TableStore
	logger *log.Logger
}

// Stats describes one recovery sweep.
type Stats struct {
	Scanned   int      `json:"scanned"`
	Recovered []string `json:"recovered"`
	Failed    []string `json:"failed"`
}

func NewTableRecovery(store TableStore, logger *log.Logger) *TableRecovery {
	if logger == nil {
		logger = log.Default().WithPrefix("recovery")
	}
	return &TableRecovery{store: store, logger: logger}
}

// RecoverStrandedTables must run before the engine takes traffic.
func (tr *TableRecovery) RecoverStrandedTables(ctx context.Context) (*Stats, error) {
	tr.logger.Info("starting table recovery")

	tables, err := tr.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	stats := &Stats{Scanned: len(tables)}
	for _, table := range tables {
		if table.State == models.StateWaiting {
			continue
		}

		tr.logger.Info("recovering table", "table", table.ID, "state", table.State, "game", table.Game)
		if err := tr.store.SetTableState(ctx, table.ID, models.StateWaiting); err != nil {
			tr.logger.Error("failed to recover table", "table", table.ID, "err", err)
			stats.Failed = append(stats.Failed, table.ID)
			continue
		}
		stats.Recovered = append(stats.Recovered, table.ID)
	}

	if len(stats.Recovered) == 0 && len(stats.Failed) == 0 {
		tr.logger.Info("no stranded tables to recover", "tables", stats.Scanned)
	} else {
		tr.logger.Info("table recovery complete", "recovered", len(stats.Recovered), "failed", len(stats.Failed))
	}
	return stats, nil
}
