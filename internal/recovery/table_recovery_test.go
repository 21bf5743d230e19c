package recovery

import (
	"context"
	"errors"
	"io"
	"testing"

	"casino-engine/internal/store"
	"casino-engine/models"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func TestRecoverStrandedTables(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	states := []models.TableState{models.StateWaiting, models.StateBetting, models.StatePlaying, models.StateFinished}
	ids := make([]string, len(states))
	for i, state := range states {
		table, err := st.CreateTable(ctx, store.TableParams{Name: string(state), Game: models.GameRoulette})
		require.NoError(t, err)
		require.NoError(t, st.SetTableState(ctx, table.ID, state))
		ids[i] = table.ID
	}

	stats, err := NewTableRecovery(st, quietLogger()).RecoverStrandedTables(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Scanned)
	assert.ElementsMatch(t, ids[1:], stats.Recovered)
	assert.Empty(t, stats.Failed)

	for _, id := range ids {
		table, err := st.GetTable(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StateWaiting, table.State)
	}
}

func TestRecoverStrandedTables_Empty(t *testing.T) {
	stats, err := NewTableRecovery(store.NewMemoryStore(), quietLogger()).RecoverStrandedTables(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Scanned)
	assert.Empty(t, stats.Recovered)
}

type brokenStore struct {
	tables   []models.Table
	listErr  error
	failOnID string
}

func (b *brokenStore) ListTables(context.Context) ([]models.Table, error) {
	return b.tables, b.listErr
}

func (b *brokenStore) SetTableState(_ context.Context, tableID string, _ models.TableState) error {
	if tableID == b.failOnID {
		return errors.New("write failed")
	}
	return nil
}

func TestRecoverStrandedTables_Failures(t *testing.T) {
	ctx := context.Background()

	_, err := NewTableRecovery(&brokenStore{listErr: errors.New("db down")}, quietLogger()).RecoverStrandedTables(ctx)
	assert.Error(t, err)

	st := &brokenStore{
		tables: []models.Table{
			{ID: "a", State: models.StatePlaying},
			{ID: "b", State: models.StateFinished},
		},
		failOnID: "a",
	}
	stats, err := NewTableRecovery(st, quietLogger()).RecoverStrandedTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, stats.Recovered)
	assert.Equal(t, []string{"a"}, stats.Failed)
}
