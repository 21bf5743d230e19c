package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"casino-engine/models"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory behind one mutex. It backs
// local runs and tests.
type MemoryStore struct {
	mu sync.RWMutex

	players map[string]*models.Player
	tables  map[string]*models.Table
	casino  models.CasinoAggregate
	rounds  map[string][]models.RoundRecord
	ledger  map[string][]LedgerEntry

	nextRoundID int64
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players: make(map[string]*models.Player),
		tables:  make(map[string]*models.Table),
		rounds:  make(map[string][]models.RoundRecord),
		ledger:  make(map[string][]LedgerEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func copyPlayer(p *models.Player) *models.Player {
	c := *p
	return &c
}

func copyTable(t *models.Table) *models.Table {
	c := *t
	c.Players = append([]string(nil), t.Players...)
	return &c
}

func (s *MemoryStore) GetPlayer(_ context.Context, playerID string) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil, models.ErrPlayerNotFound
	}
	return copyPlayer(p), nil
}

func (s *MemoryStore) ListPlayers(_ context.Context) ([]models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]models.Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].CreatedAt.Equal(players[j].CreatedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].CreatedAt.Before(players[j].CreatedAt)
	})
	return players, nil
}

func (s *MemoryStore) CreatePlayer(_ context.Context, name string, balance int) (*models.Player, error) {
	if err := validatePlayer(name, balance); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Player{
		ID:        uuid.New().String(),
		Name:      name,
		Balance:   balance,
		CreatedAt: s.now(),
	}
	s.players[p.ID] = p
	if balance > 0 {
		s.appendLedgerLocked(p.ID, balance, balance, models.ReasonInitialDeposit, "")
	}
	return copyPlayer(p), nil
}

// CreatePlayerWithID inserts a player under a caller-chosen id.
func (s *MemoryStore) CreatePlayerWithID(id, name string, balance int) *models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Player{ID: id, Name: name, Balance: balance, CreatedAt: s.now()}
	s.players[id] = p
	return copyPlayer(p)
}

func (s *MemoryStore) DeletePlayer(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return models.ErrPlayerNotFound
	}
	if t, ok := s.tables[p.CurrentTable]; ok {
		t.Players = removeID(t.Players, playerID)
	}
	delete(s.players, playerID)
	delete(s.ledger, playerID)
	return nil
}

func (s *MemoryStore) AdjustPlayerBalance(_ context.Context, playerID string, delta int, reason models.BalanceReason, refID string) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil, models.ErrPlayerNotFound
	}
	if p.Balance+delta < 0 {
		return nil, models.ErrInsufficientBalance
	}
	p.Balance += delta
	if delta != 0 {
		s.appendLedgerLocked(playerID, delta, p.Balance, reason, refID)
	}
	return copyPlayer(p), nil
}

func (s *MemoryStore) appendLedgerLocked(playerID string, amount, after int, reason models.BalanceReason, ref string) {
	s.ledger[playerID] = append(s.ledger[playerID], LedgerEntry{
		PlayerID:     playerID,
		Amount:       amount,
		BalanceAfter: after,
		Reason:       reason,
		Reference:    ref,
		CreatedAt:    s.now(),
	})
}

// Ledger returns the newest entries first.
func (s *MemoryStore) Ledger(_ context.Context, playerID string, limit int) ([]LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.players[playerID]; !ok {
		return nil, models.ErrPlayerNotFound
	}
	entries := s.ledger[playerID]
	out := make([]LedgerEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, entries[i])
	}
	return out, nil
}

func (s *MemoryStore) GetTable(_ context.Context, tableID string) (*models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[tableID]
	if !ok {
		return nil, models.ErrTableNotFound
	}
	return copyTable(t), nil
}

func (s *MemoryStore) ListTables(_ context.Context) ([]models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tables := make([]models.Table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, *copyTable(t))
	}
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].CreatedAt.Equal(tables[j].CreatedAt) {
			return tables[i].ID < tables[j].ID
		}
		return tables[i].CreatedAt.Before(tables[j].CreatedAt)
	})
	return tables, nil
}

func (s *MemoryStore) CreateTable(_ context.Context, params TableParams) (*models.Table, error) {
	params, err := applyTableDefaults(params)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &models.Table{
		ID:        uuid.New().String(),
		Name:      params.Name,
		Game:      params.Game,
		Players:   []string{},
		MinBet:    params.MinBet,
		MaxBet:    params.MaxBet,
		State:     models.StateWaiting,
		CreatedAt: s.now(),
	}
	s.tables[t.ID] = t
	return copyTable(t), nil
}

func (s *MemoryStore) UpdateTable(_ context.Context, tableID string, update TableUpdate) (*models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableID]
	if !ok {
		return nil, models.ErrTableNotFound
	}
	if err := applyTableUpdate(t, update); err != nil {
		return nil, err
	}
	return copyTable(t), nil
}

func (s *MemoryStore) SetTableState(_ context.Context, tableID string, state models.TableState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableID]
	if !ok {
		return models.ErrTableNotFound
	}
	t.State = state
	return nil
}

func (s *MemoryStore) AddPlayerToTable(_ context.Context, tableID, playerID string) (*models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableID]
	if !ok {
		return nil, models.ErrTableNotFound
	}
	p, ok := s.players[playerID]
	if !ok {
		return nil, models.ErrPlayerNotFound
	}
	switch p.CurrentTable {
	case tableID:
	case "":
		p.CurrentTable = tableID
		t.Players = append(t.Players, playerID)
	default:
		return nil, models.ErrPlayerAtOtherTable
	}
	return copyTable(t), nil
}

func (s *MemoryStore) RemovePlayerFromTable(_ context.Context, tableID, playerID string) (*models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableID]
	if !ok {
		return nil, models.ErrTableNotFound
	}
	p, ok := s.players[playerID]
	if !ok {
		return nil, models.ErrPlayerNotFound
	}
	if p.CurrentTable != tableID {
		return nil, models.ErrPlayerNotSeated
	}
	p.CurrentTable = ""
	t.Players = removeID(t.Players, playerID)
	return copyTable(t), nil
}

func (s *MemoryStore) DeleteTable(_ context.Context, tableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableID]
	if !ok {
		return models.ErrTableNotFound
	}
	for _, id := range t.Players {
		if p, ok := s.players[id]; ok && p.CurrentTable == tableID {
			p.CurrentTable = ""
		}
	}
	delete(s.tables, tableID)
	delete(s.rounds, tableID)
	return nil
}

func (s *MemoryStore) GetCasinoAggregate(_ context.Context) (*models.CasinoAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.casino
	return &c, nil
}

func (s *MemoryStore) AdjustCasinoAggregate(_ context.Context, deltaHouse, deltaBets, deltaPayouts int) (*models.CasinoAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.casino.HouseBalance += deltaHouse
	s.casino.TotalBets += deltaBets
	s.casino.TotalPayouts += deltaPayouts
	s.casino.UpdatedAt = s.now()
	c := s.casino
	return &c, nil
}

func (s *MemoryStore) SaveRoundResult(_ context.Context, record models.RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[record.TableID]; !ok {
		return models.ErrTableNotFound
	}
	s.nextRoundID++
	record.ID = s.nextRoundID
	record.Payouts = append([]models.Payout(nil), record.Payouts...)
	s.rounds[record.TableID] = append(s.rounds[record.TableID], record)
	return nil
}

// ListRounds returns the newest rounds first.
func (s *MemoryStore) ListRounds(_ context.Context, tableID string, limit int) ([]models.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rounds := s.rounds[tableID]
	out := make([]models.RoundRecord, 0, len(rounds))
	for i := len(rounds) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, rounds[i])
	}
	return out, nil
}

func (s *MemoryStore) LastRound(_ context.Context, tableID string) (*models.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rounds := s.rounds[tableID]
	if len(rounds) == 0 {
		return nil, ErrNoRounds
	}
	r := rounds[len(rounds)-1]
	return &r, nil
}

func (s *MemoryStore) Close() error { return nil }

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
