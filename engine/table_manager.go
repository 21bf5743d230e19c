package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"casino-engine/models"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// RoundConfig holds the lifecycle timings.
type RoundConfig struct {
	CountdownSeconds int
	TickInterval     time.Duration
	ResetDelay       time.Duration
	StoreTimeout     time.Duration
}

func DefaultRoundConfig() RoundConfig {
	return RoundConfig{
		CountdownSeconds: 60,
		TickInterval:     time.Second,
		ResetDelay:       20 * time.Second,
		StoreTimeout:     5 * time.Second,
	}
}

// BetRequest is a bet submission as it reaches the engine.
type BetRequest struct {
	PlayerID string         `json:"playerId"`
	TableID  string         `json:"tableId"`
	Amount   int            `json:"amount"`
	Type     models.BetType `json:"type"`
	Value    *int           `json:"value,omitempty"`
}

type BetReceipt struct {
	Bet              models.Bet        `json:"bet"`
	RemainingBalance int               `json:"remainingBalance"`
	State            models.TableState `json:"state"`
}

// TableSnapshot is the engine's in-memory view of one table.
type TableSnapshot struct {
	TableID          string            `json:"tableId"`
	State            models.TableState `json:"state"`
	PendingBets      int               `json:"pendingBets"`
	PendingStake     int               `json:"pendingStake"`
	RemainingSeconds int               `json:"remainingSeconds"`
	CountdownActive  bool              `json:"countdownActive"`
	ResetPending     bool              `json:"resetPending"`
}

var errCountdownStopped = errors.New("countdown stopped")

// roundSlot is the per-table round state. Every field is guarded by mu, and
// every transition for the table happens while mu is held.
type roundSlot struct {
	mu sync.Mutex

	tableID         string
	state           models.TableState
	bets            []models.Bet
	remaining       int
	round           uint64
	cancelCountdown context.CancelFunc
	resetTimer      *quartz.Timer
	evicted         bool
}

// TableManager runs the round lifecycle for every table:
// waiting -> betting -> playing -> finished -> waiting.
type TableManager struct {
	store     Store
	publisher Publisher
	events    *dispatcher
	queueSize int
	resolvers map[models.GameVariant]Resolver
	clock     quartz.Clock
	config    RoundConfig
	logger    *log.Logger

	rng   *rand.Rand
	rngMu sync.Mutex

	slots map[string]*roundSlot
	mu    sync.RWMutex
}

type Option func(*TableManager)

func WithClock(clock quartz.Clock) Option {
	return func(m *TableManager) { m.clock = clock }
}

func WithRNG(rng *rand.Rand) Option {
	return func(m *TableManager) { m.rng = rng }
}

// WithSeed makes shuffles and spins reproducible.
func WithSeed(seed int64) Option {
	return func(m *TableManager) { m.rng = rand.New(rand.NewSource(seed)) }
}

func WithConfig(config RoundConfig) Option {
	return func(m *TableManager) { m.config = config }
}

func WithLogger(logger *log.Logger) Option {
	return func(m *TableManager) { m.logger = logger }
}

// WithEventQueue sets how many events may wait for delivery.
func WithEventQueue(size int) Option {
	return func(m *TableManager) { m.queueSize = size }
}

// WithResolver overrides the resolver for one game.
func WithResolver(game models.GameVariant, r Resolver) Option {
	return func(m *TableManager) { m.resolvers[game] = r }
}

func NewTableManager(store Store, publisher Publisher, opts ...Option) *TableManager {
	m := &TableManager{
		store:     store,
		publisher: publisher,
		resolvers: DefaultResolvers(),
		clock:     quartz.NewReal(),
		config:    DefaultRoundConfig(),
		logger:    log.Default().WithPrefix("engine"),
		slots:     make(map[string]*roundSlot),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if m.config.TickInterval <= 0 {
		m.config.TickInterval = time.Second
	}
	if m.config.StoreTimeout <= 0 {
		m.config.StoreTimeout = 5 * time.Second
	}
	if m.publisher != nil {
		m.events = newDispatcher(m.publisher, m.queueSize, m.config.StoreTimeout, m.logger)
	}
	return m
}

// slot returns the round slot for tableID, creating it in waiting state.
func (m *TableManager) slot(tableID string) *roundSlot {
	m.mu.RLock()
	s, ok := m.slots[tableID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[tableID]; ok {
		return s
	}
	s = &roundSlot{tableID: tableID, state: models.StateWaiting}
	m.slots[tableID] = s
	return s
}

func (m *TableManager) existingSlot(tableID string) *roundSlot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slots[tableID]
}

// forgetLocked removes s from the registry if it is still the registered slot.
// The caller holds s.mu.
func (m *TableManager) forgetLocked(s *roundSlot) {
	m.mu.Lock()
	if m.slots[s.tableID] == s {
		delete(m.slots, s.tableID)
	}
	m.mu.Unlock()
}

// evictLocked stops every timer of s and returns the bets it was holding.
// Callbacks already in flight observe evicted and return without effect.
func (m *TableManager) evictLocked(s *roundSlot) []models.Bet {
	s.evicted = true
	m.stopCountdownLocked(s)
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	pending := s.bets
	s.bets = nil
	return pending
}

func (m *TableManager) callbackContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.config.StoreTimeout)
}

func roundRef(tableID string, round uint64) string {
	return fmt.Sprintf("%s#%d", tableID, round)
}

// PlaceBet validates and records a bet. The first bet on a waiting table
// opens betting and starts the countdown.
func (m *TableManager) PlaceBet(ctx context.Context, req BetRequest) (*BetReceipt, error) {
	// The balance read here is advisory; the debit below is the check that
	// holds.
	player, err := m.store.GetPlayer(ctx, req.PlayerID)
	if err != nil {
		if errors.Is(err, models.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to load player: %w", err)
	}

	s := m.slot(req.TableID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted {
		return nil, ErrTableNotFound
	}

	table, err := m.store.GetTable(ctx, req.TableID)
	if err != nil {
		if errors.Is(err, models.ErrTableNotFound) {
			m.evictLocked(s)
			m.forgetLocked(s)
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to load table: %w", err)
	}

	if !table.HasPlayer(player.ID) {
		return nil, ErrPlayerNotAtTable
	}
	if !s.state.AcceptsBets() {
		return nil, reject(ReasonTableNotAccepting, "table is %s", s.state)
	}

	bet, err := models.NewBet(table.Game, player.ID, table.ID, req.Amount, req.Type, req.Value)
	if err != nil {
		return nil, reject(ReasonInvalidBet, "%v", err)
	}
	if err := ValidateBetAmount(bet.Amount, table.MinBet, table.MaxBet); err != nil {
		return nil, err
	}
	if player.Balance < bet.Amount {
		return nil, ErrInsufficientBalance
	}

	updated, err := m.store.AdjustPlayerBalance(ctx, player.ID, -bet.Amount, models.ReasonBetStake, roundRef(table.ID, s.round+1))
	if err != nil {
		if errors.Is(err, models.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to debit stake: %w", err)
	}

	bet.PlacedAt = m.clock.Now()
	s.bets = append(s.bets, bet)

	m.publish(ctx, table.ID, models.EventBetPlaced, models.BetPlacedEvent{
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Bet:        bet,
	})

	if s.state == models.StateWaiting {
		m.setStateLocked(ctx, s, models.StateBetting)
		m.startCountdownLocked(s)
	}

	m.logger.Debug("bet placed", "table", table.ID, "player", player.ID, "type", bet.Type, "amount", bet.Amount)

	return &BetReceipt{
		Bet:              bet,
		RemainingBalance: updated.Balance,
		State:            s.state,
	}, nil
}

// startCountdownLocked starts the betting countdown unless one is running.
func (m *TableManager) startCountdownLocked(s *roundSlot) {
	if s.cancelCountdown != nil {
		return
	}

	total := m.config.CountdownSeconds
	s.remaining = total
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelCountdown = cancel
	round := s.round

	m.logger.Info("starting betting countdown", "table", s.tableID, "seconds", total)
	m.publish(ctx, s.tableID, models.EventCountdownUpdate, models.CountdownUpdateEvent{
		RemainingSeconds: total,
		TotalSeconds:     total,
	})

	m.clock.TickerFunc(ctx, m.config.TickInterval, func() error {
		return m.tick(s, round)
	}, "countdown", s.tableID)
}

func (m *TableManager) stopCountdownLocked(s *roundSlot) {
	if s.cancelCountdown != nil {
		s.cancelCountdown()
		s.cancelCountdown = nil
	}
}

// tick runs once per TickInterval while betting. Returning an error stops
// the ticker.
func (m *TableManager) tick(s *roundSlot, round uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted || s.round != round || s.cancelCountdown == nil {
		return errCountdownStopped
	}

	ctx, cancel := m.callbackContext()
	defer cancel()

	s.remaining--
	if s.remaining < 0 {
		s.remaining = 0
	}
	m.publish(ctx, s.tableID, models.EventCountdownUpdate, models.CountdownUpdateEvent{
		RemainingSeconds: s.remaining,
		TotalSeconds:     m.config.CountdownSeconds,
	})
	if s.remaining > 0 {
		return nil
	}

	m.stopCountdownLocked(s)
	m.executeRoundLocked(ctx, s)
	return errCountdownStopped
}

// ExecuteRound closes betting and plays the round immediately. It is a no-op
// unless the table is betting, so calling it again after a round has been
// played changes nothing.
func (m *TableManager) ExecuteRound(ctx context.Context, tableID string) error {
	s := m.existingSlot(tableID)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted || s.state != models.StateBetting {
		return nil
	}
	m.stopCountdownLocked(s)
	m.executeRoundLocked(ctx, s)
	return nil
}

// executeRoundLocked takes the round's bets, resolves them, settles, and
// schedules the reset. Any failure returns the table to waiting.
func (m *TableManager) executeRoundLocked(ctx context.Context, s *roundSlot) {
	bets := s.bets
	s.bets = nil
	s.round++
	round := s.round
	ref := roundRef(s.tableID, round)

	if len(bets) == 0 {
		m.logger.Info("no bets placed, returning to waiting", "table", s.tableID)
		m.setStateLocked(ctx, s, models.StateWaiting)
		return
	}

	table, err := m.store.GetTable(ctx, s.tableID)
	if err != nil {
		m.logger.Error("failed to load table for round", "table", s.tableID, "round", round, "err", err)
		m.refund(ctx, s.tableID, bets, ref)
		m.setStateLocked(ctx, s, models.StateWaiting)
		return
	}

	m.setStateLocked(ctx, s, models.StatePlaying)

	outcome, err := m.resolve(table.Game, bets)
	if err != nil {
		m.logger.Error("round resolution failed", "table", s.tableID, "game", table.Game, "round", round, "err", err)
		m.refund(ctx, s.tableID, bets, ref)
		m.setStateLocked(ctx, s, models.StateWaiting)
		return
	}

	for _, reveal := range outcome.Reveals {
		reveal.TableID = s.tableID
		reveal.Timestamp = m.clock.Now()
		m.publishTo(ctx, models.TableChannel(s.tableID), reveal)
	}

	payouts := PayoutList(outcome.Payouts)
	m.publish(ctx, s.tableID, models.EventGameResult, models.GameResultEvent{
		Game:    outcome.Game,
		Result:  outcome.Result,
		Payouts: payouts,
	})

	m.setStateLocked(ctx, s, models.StateFinished)

	if err := m.settle(ctx, s.tableID, ref, bets, outcome); err != nil {
		m.logger.Error("round settlement failed", "table", s.tableID, "round", round, "err", err)
		m.setStateLocked(ctx, s, models.StateWaiting)
		return
	}

	record := models.RoundRecord{
		TableID:      s.tableID,
		Game:         outcome.Game,
		Result:       outcome.Result,
		Payouts:      payouts,
		TotalBets:    models.TotalStake(bets),
		TotalPayouts: outcome.TotalPayout(),
		CompletedAt:  m.clock.Now(),
	}
	if err := m.store.SaveRoundResult(ctx, record); err != nil {
		m.logger.Warn("failed to save round result", "table", s.tableID, "round", round, "err", err)
	}

	m.logger.Info("round complete", "table", s.tableID, "game", outcome.Game, "round", round,
		"bets", record.TotalBets, "payouts", record.TotalPayouts)

	m.scheduleResetLocked(s, round)
}

func (m *TableManager) resolve(game models.GameVariant, bets []models.Bet) (outcome *models.RoundOutcome, err error) {
	resolver, ok := m.resolvers[game]
	if !ok {
		return nil, fmt.Errorf("no resolver for game %q", game)
	}

	defer func() {
		if r := recover(); r != nil {
			outcome, err = nil, fmt.Errorf("resolver panic: %v", r)
		}
	}()

	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	outcome, err = resolver.Resolve(bets, m.rng)
	if err == nil && outcome == nil {
		err = fmt.Errorf("resolver for %q returned no outcome", game)
	}
	return outcome, err
}

func (m *TableManager) scheduleResetLocked(s *roundSlot, round uint64) {
	if s.resetTimer != nil {
		s.resetTimer.Stop()
	}
	s.resetTimer = m.clock.AfterFunc(m.config.ResetDelay, func() {
		m.reset(s, round)
	}, "reset", s.tableID)
}

func (m *TableManager) reset(s *roundSlot, round uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted || s.round != round || s.state != models.StateFinished {
		return
	}
	s.resetTimer = nil

	ctx, cancel := m.callbackContext()
	defer cancel()
	m.setStateLocked(ctx, s, models.StateWaiting)
	m.logger.Info("table reset to waiting", "table", s.tableID)
}

// setStateLocked records a transition in memory, persists it and announces
// it. A failed write is logged; the in-memory state stays authoritative.
func (m *TableManager) setStateLocked(ctx context.Context, s *roundSlot, state models.TableState) {
	s.state = state
	if err := m.store.SetTableState(ctx, s.tableID, state); err != nil {
		m.logger.Warn("failed to persist table state", "table", s.tableID, "state", state, "err", err)
	}
	m.publish(ctx, s.tableID, models.EventGameStateChanged, models.GameStateChangedEvent{State: state})
}

// JoinTable seats a player. A player sits at no more than one table.
func (m *TableManager) JoinTable(ctx context.Context, tableID, playerID string) (*models.Table, error) {
	s := m.slot(tableID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted {
		return nil, ErrTableNotFound
	}

	table, err := m.store.AddPlayerToTable(ctx, tableID, playerID)
	switch {
	case errors.Is(err, models.ErrTableNotFound):
		m.evictLocked(s)
		m.forgetLocked(s)
		return nil, ErrTableNotFound
	case errors.Is(err, models.ErrPlayerNotFound):
		return nil, ErrPlayerNotFound
	case errors.Is(err, models.ErrPlayerAtOtherTable):
		return nil, ErrPlayerAtOtherTable
	case err != nil:
		return nil, fmt.Errorf("failed to join table: %w", err)
	}

	m.publish(ctx, tableID, models.EventPlayerJoined, models.PlayerSeatEvent{PlayerID: playerID, TableID: tableID})
	return table, nil
}

// LeaveTable unseats a player. Bets already placed this round stay in play.
func (m *TableManager) LeaveTable(ctx context.Context, tableID, playerID string) (*models.Table, error) {
	s := m.slot(tableID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted {
		return nil, ErrTableNotFound
	}

	table, err := m.store.RemovePlayerFromTable(ctx, tableID, playerID)
	switch {
	case errors.Is(err, models.ErrTableNotFound):
		m.evictLocked(s)
		m.forgetLocked(s)
		return nil, ErrTableNotFound
	case errors.Is(err, models.ErrPlayerNotFound):
		return nil, ErrPlayerNotFound
	case errors.Is(err, models.ErrPlayerNotSeated):
		return nil, ErrPlayerNotAtTable
	case err != nil:
		return nil, fmt.Errorf("failed to leave table: %w", err)
	}

	m.publish(ctx, tableID, models.EventPlayerLeft, models.PlayerSeatEvent{PlayerID: playerID, TableID: tableID})
	return table, nil
}

// DeleteTable evicts the table's round state, cancelling its countdown and
// reset timer and refunding pending stakes, before the table record is
// removed from the store.
func (m *TableManager) DeleteTable(ctx context.Context, tableID string) error {
	s := m.slot(tableID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted {
		return ErrTableNotFound
	}

	pending := m.evictLocked(s)
	if len(pending) > 0 {
		m.logger.Info("refunding bets on deleted table", "table", tableID, "bets", len(pending))
		m.refund(ctx, tableID, pending, roundRef(tableID, s.round+1))
	}

	err := m.store.DeleteTable(ctx, tableID)
	m.forgetLocked(s)
	if err != nil {
		if errors.Is(err, models.ErrTableNotFound) {
			return ErrTableNotFound
		}
		if serr := m.store.SetTableState(ctx, tableID, models.StateWaiting); serr != nil {
			m.logger.Warn("failed to reset table after failed delete", "table", tableID, "err", serr)
		}
		return fmt.Errorf("failed to delete table: %w", err)
	}

	m.publishTo(ctx, models.GlobalChannel, models.Event{
		Event:     models.EventTableDeleted,
		Data:      models.TableDeletedEvent{TableID: tableID},
		Timestamp: m.clock.Now(),
	})
	m.logger.Info("table deleted", "table", tableID)
	return nil
}

// Snapshot returns the in-memory round state of a table. Tables the engine
// has not touched report waiting.
func (m *TableManager) Snapshot(tableID string) TableSnapshot {
	s := m.existingSlot(tableID)
	if s == nil {
		return TableSnapshot{TableID: tableID, State: models.StateWaiting}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return TableSnapshot{
		TableID:          tableID,
		State:            s.state,
		PendingBets:      len(s.bets),
		PendingStake:     models.TotalStake(s.bets),
		RemainingSeconds: s.remaining,
		CountdownActive:  s.cancelCountdown != nil,
		ResetPending:     s.resetTimer != nil,
	}
}

// Close stops every timer. Pending bets are kept in memory only and are lost.
func (m *TableManager) Close() {
	m.mu.Lock()
	slots := make([]*roundSlot, 0, len(m.slots))
	for _, s := range m.slots {
		slots = append(slots, s)
	}
	m.slots = make(map[string]*roundSlot)
	m.mu.Unlock()

	for _, s := range slots {
		s.mu.Lock()
		if pending := m.evictLocked(s); len(pending) > 0 {
			m.logger.Warn("discarding pending bets on shutdown", "table", s.tableID, "bets", len(pending))
		}
		s.mu.Unlock()
	}
	if m.events != nil {
		m.events.close()
	}
}

func (m *TableManager) publish(ctx context.Context, tableID string, eventType models.EventType, data any) {
	m.publishTo(ctx, models.TableChannel(tableID), models.Event{
		Event:     eventType,
		TableID:   tableID,
		Data:      data,
		Timestamp: m.clock.Now(),
	})
}

// publishTo queues the event and returns at once. Delivery happens off the
// table lock, in queue order.
func (m *TableManager) publishTo(_ context.Context, channel string, event models.Event) {
	if m.events == nil {
		return
	}
	m.events.enqueue(channel, event)
}

// Flush waits until every event published so far has been delivered.
func (m *TableManager) Flush() {
	if m.events != nil {
		m.events.flush()
	}
}
