package engine

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"casino-engine/internal/store"
	"casino-engine/models"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	event   models.Event
}

type recorder struct {
	mu     sync.Mutex
	events []published
	err    error
	// flush drains the manager's event queue before a read.
	flush func()
}

func (r *recorder) Publish(_ context.Context, channel string, event models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{channel, event})
	return r.err
}

func (r *recorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *recorder) all() []published {
	if r.flush != nil {
		r.flush()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]published(nil), r.events...)
}

func (r *recorder) ofType(eventType models.EventType) []models.Event {
	var out []models.Event
	for _, p := range r.all() {
		if p.event.Event == eventType {
			out = append(out, p.event)
		}
	}
	return out
}

func (r *recorder) states() []models.TableState {
	var out []models.TableState
	for _, e := range r.ofType(models.EventGameStateChanged) {
		out = append(out, e.Data.(models.GameStateChangedEvent).State)
	}
	return out
}

func (r *recorder) countdown() []int {
	var out []int
	for _, e := range r.ofType(models.EventCountdownUpdate) {
		out = append(out, e.Data.(models.CountdownUpdateEvent).RemainingSeconds)
	}
	return out
}

// flakyStore fails selected operations of an otherwise working store.
type flakyStore struct {
	*store.MemoryStore
	failCreditFor string
	failAggregate bool
}

func (s *flakyStore) AdjustPlayerBalance(ctx context.Context, playerID string, delta int, reason models.BalanceReason, refID string) (*models.Player, error) {
	if delta > 0 && playerID == s.failCreditFor {
		return nil, errors.New("ledger unavailable")
	}
	return s.MemoryStore.AdjustPlayerBalance(ctx, playerID, delta, reason, refID)
}

func (s *flakyStore) AdjustCasinoAggregate(ctx context.Context, deltaHouse, deltaBets, deltaPayouts int) (*models.CasinoAggregate, error) {
	if s.failAggregate {
		return nil, errors.New("aggregate unavailable")
	}
	return s.MemoryStore.AdjustCasinoAggregate(ctx, deltaHouse, deltaBets, deltaPayouts)
}

var testRoundConfig = RoundConfig{
	CountdownSeconds: 3,
	TickInterval:     time.Second,
	ResetDelay:       5 * time.Second,
	StoreTimeout:     time.Second,
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	clock *quartz.Mock
	store *store.MemoryStore
	pub   *recorder
	mgr   *TableManager
	table *models.Table
}

func newFixture(t *testing.T, game models.GameVariant, opts ...Option) *fixture {
	return newFixtureWithStore(t, game, nil, opts...)
}

func newFixtureWithStore(t *testing.T, game models.GameVariant, wrap func(*store.MemoryStore) Store, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := quartz.NewMock(t)
	mem := store.NewMemoryStore()
	pub := &recorder{}

	var st Store = mem
	if wrap != nil {
		st = wrap(mem)
	}

	all := append([]Option{
		WithClock(clock),
		WithSeed(1),
		WithConfig(testRoundConfig),
		WithLogger(log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})),
	}, opts...)
	mgr := NewTableManager(st, pub, all...)
	pub.flush = mgr.Flush
	t.Cleanup(mgr.Close)

	table, err := mem.CreateTable(ctx, store.TableParams{Name: "test", Game: game})
	require.NoError(t, err)

	return &fixture{t: t, ctx: ctx, clock: clock, store: mem, pub: pub, mgr: mgr, table: table}
}

func (f *fixture) seat(name string, balance int) string {
	f.t.Helper()
	p, err := f.store.CreatePlayer(f.ctx, name, balance)
	require.NoError(f.t, err)
	_, err = f.mgr.JoinTable(f.ctx, f.table.ID, p.ID)
	require.NoError(f.t, err)
	return p.ID
}

func (f *fixture) bet(playerID string, amount int, betType models.BetType, value *int) *BetReceipt {
	f.t.Helper()
	receipt, err := f.mgr.PlaceBet(f.ctx, BetRequest{
		PlayerID: playerID,
		TableID:  f.table.ID,
		Amount:   amount,
		Type:     betType,
		Value:    value,
	})
	require.NoError(f.t, err)
	return receipt
}

func (f *fixture) balance(playerID string) int {
	f.t.Helper()
	p, err := f.store.GetPlayer(f.ctx, playerID)
	require.NoError(f.t, err)
	return p.Balance
}

// advance moves the mock clock by d, stopping at every scheduled event on
// the way so each one fires in order.
func (f *fixture) advance(d time.Duration) {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for d > 0 {
		next, ok := f.clock.Peek()
		if !ok || next > d {
			f.clock.Advance(d).MustWait(ctx)
			return
		}
		f.clock.Advance(next).MustWait(ctx)
		d -= next
	}
}

func (f *fixture) waitState(state models.TableState) {
	f.t.Helper()
	require.Eventually(f.t, func() bool {
		return f.mgr.Snapshot(f.table.ID).State == state
	}, time.Second, 5*time.Millisecond, "table never reached %s", state)
}

func TestPlaceBet_FirstBetOpensBetting(t *testing.T) {
	f := newFixture(t, models.GameRoulette)
	p1 := f.seat("alice", 1000)
	p2 := f.seat("bob", 1000)

	receipt := f.bet(p1, 10, models.BetRed, nil)
	assert.Equal(t, 990, receipt.RemainingBalance)
	assert.Equal(t, models.StateBetting, receipt.State)
	f.bet(p2, 20, models.BetNumber, intPtr(17))
	f.bet(p1, 10, models.BetDozen, intPtr(2))

	snap := f.mgr.Snapshot(f.table.ID)
	assert.Equal(t, models.StateBetting, snap.State)
	assert.Equal(t, 3, snap.PendingBets)
	assert.Equal(t, 40, snap.PendingStake)
	assert.True(t, snap.CountdownActive)

	assert.Equal(t, []models.TableState{models.StateBetting}, f.pub.states())
	assert.Equal(t, []int{3}, f.pub.countdown(), "only one countdown starts")
	assert.Len(t, f.pub.ofType(models.EventBetPlaced), 3)

	stored, err := f.store.GetTable(f.ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateBetting, stored.State, "state is written through")
	assert.Equal(t, 980, f.balance(p2))
}

func TestCountdown_PlaysRoundAndResets(t *testing.T) {
	f := newFixture(t, models.GameRoulette)
	p1 := f.seat("alice", 1000)
	f.bet(p1, 100, models.BetRed, nil)

	f.advance(2 * time.Second)
	assert.Equal(t, []int{3, 2, 1}, f.pub.countdown())
	assert.Equal(t, models.StateBetting, f.mgr.Snapshot(f.table.ID).State)

	f.advance(time.Second)
	assert.Equal(t, []int{3, 2, 1, 0}, f.pub.countdown())
	f.waitState(models.StateFinished)
	assert.Equal(t, []models.TableState{
		models.StateBetting, models.StatePlaying, models.StateFinished,
	}, f.pub.states())

	results := f.pub.ofType(models.EventGameResult)
	require.Len(t, results, 1)
	result := results[0].Data.(models.GameResultEvent)
	assert.Equal(t, models.GameRoulette, result.Game)

	last, err := f.store.LastRound(f.ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, last.TotalBets)

	snap := f.mgr.Snapshot(f.table.ID)
	assert.True(t, snap.ResetPending)
	assert.False(t, snap.CountdownActive)
	assert.Zero(t, snap.PendingBets)

	f.advance(testRoundConfig.ResetDelay)
	f.waitState(models.StateWaiting)
	assert.Equal(t, models.StateWaiting, f.pub.states()[len(f.pub.states())-1])

	// No further countdown ticks once the round has run.
	f.advance(10 * time.Second)
	assert.Equal(t, []int{3, 2, 1, 0}, f.pub.countdown())

	// The table takes a fresh round.
	f.bet(p1, 10, models.BetBlack, nil)
	assert.Equal(t, models.StateBetting, f.mgr.Snapshot(f.table.ID).State)
}

func TestExecuteRound_EventOrder(t *testing.T) {
	f := newFixture(t, models.GameBlackjack)
	p1 := f.seat("alice", 1000)
	f.bet(p1, 100, models.BetMain, nil)

	require.NoError(t, f.mgr.ExecuteRound(f.ctx, f.table.ID))

	var order []models.EventType
	for _, p := range f.pub.all() {
		assert.Equal(t, models.TableChannel(f.table.ID), p.channel)
		if p.event.Event == models.EventGameStateChanged {
			order = append(order, models.EventType("state:"+string(p.event.Data.(models.GameStateChangedEvent).State)))
			continue
		}
		order = append(order, p.event.Event)
	}

	want := []models.EventType{
		models.EventPlayerJoined,
		models.EventBetPlaced,
		"state:betting",
		models.EventCountdownUpdate,
		"state:playing",
		models.EventBlackjackDeal,
		models.EventBlackjackDealerFinal,
		models.EventGameResult,
		"state:finished",
	}
	require.GreaterOrEqual(t, len(order), len(want))
	assert.Equal(t, want, order[:len(want)])
	for _, e := range order[len(want):] {
		assert.Equal(t, models.EventPlayerBalanceUpdated, e)
	}
}

func TestExecuteRound_Idempotent(t *testing.T) {
	f := newFixture(t, models.GameBaccarat)
	p1 := f.seat("alice", 1000)
	f.bet(p1, 100, models.BetBanker, nil)

	require.NoError(t, f.mgr.ExecuteRound(f.ctx, f.table.ID))
	balanceAfter := f.balance(p1)
	require.NoError(t, f.mgr.ExecuteRound(f.ctx, f.table.ID))
	require.NoError(t, f.mgr.ExecuteRound(f.ctx, "no-such-table"))

	assert.Len(t, f.pub.ofType(models.EventGameResult), 1)
	assert.Equal(t, balanceAfter, f.balance(p1), "a second execution pays nothing")

	agg, err := f.store.GetCasinoAggregate(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, agg.TotalBets)

	// The countdown was cancelled by the manual execution.
	f.advance(testRoundConfig.ResetDelay)
	assert.Len(t, f.pub.ofType(models.EventGameResult), 1)
}

func TestExecuteRound_NoBetsReturnsToWaiting(t *testing.T) {
	f := newFixture(t, models.GameRoulette)

	s := f.mgr.slot(f.table.ID)
	s.mu.Lock()
	s.state = models.StateBetting
	s.mu.Unlock()

	require.NoError(t, f.mgr.ExecuteRound(f.ctx, f.table.ID))

	assert.Equal(t, models.StateWaiting, f.mgr.Snapshot(f.table.ID).State)
	assert.Equal(t, []models.TableState{models.StateWaiting}, f.pub.states(), "playing and finished are skipped")
	assert.Empty(t, f.pub.ofType(models.EventGameResult))
}

func TestPlaceBet_Rejections(t *testing.T) {
	f := newFixture(t, models.GameRoulette)
	seated := f.seat("alice", 50)
	stranger, err := f.store.CreatePlayer(f.ctx, "bob", 1000)
	require.NoError(t, err)

	tests := []struct {
		name string
		req  BetRequest
		want error
	}{
		{"unknown table", BetRequest{PlayerID: seated, TableID: "nope", Amount: 10, Type: models.BetRed}, ErrTableNotFound},
		{"unknown player", BetRequest{PlayerID: "ghost", TableID: f.table.ID, Amount: 10, Type: models.BetRed}, ErrPlayerNotFound},
		{"not seated", BetRequest{PlayerID: stranger.ID, TableID: f.table.ID, Amount: 10, Type: models.BetRed}, ErrPlayerNotAtTable},
		{"wrong game bet", BetRequest{PlayerID: seated, TableID: f.table.ID, Amount: 10, Type: models.BetBanker}, ErrInvalidBet},
		{"bad value", BetRequest{PlayerID: seated, TableID: f.table.ID, Amount: 10, Type: models.BetNumber, Value: intPtr(40)}, ErrInvalidBet},
		{"below minimum", BetRequest{PlayerID: seated, TableID: f.table.ID, Amount: 5, Type: models.BetRed}, ErrBetOutOfRange},
		{"above maximum", BetRequest{PlayerID: seated, TableID: f.table.ID, Amount: 5000, Type: models.BetRed}, ErrBetOutOfRange},
		{"insufficient balance", BetRequest{PlayerID: seated, TableID: f.table.ID, Amount: 60, Type: models.BetRed}, ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.mgr.PlaceBet(f.ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var rejection *Rejection
			assert.ErrorAs(t, err, &rejection)
		})
	}

	assert.Equal(t, 50, f.balance(seated), "rejections never touch balances")
	assert.Equal(t, models.StateWaiting, f.mgr.Snapshot(f.table.ID).State)
	assert.Empty(t, f.pub.ofType(models.EventBetPlaced))
}

func TestPlaceBet_RejectedWhileFinished(t *testing.T) {
	f := newFixture(t, models.GameRoulette)
	p1 := f.seat("alice", 1000)
	f.bet(p1, 10, models.BetRed, nil)
	require.NoError(t, f.mgr.ExecuteRound(f.ctx, f.table.ID))
	balance := f.balance(p1)

	_, err := f.mgr.PlaceBet(f.ctx, BetRequest{PlayerID: p1, TableID: f.table.ID, Amount: 10, Type: models.BetRed})
	assert.ErrorIs(t, err, ErrTableNotAccepting)
	assert.Equal(t, balance, f.balance(p1))
}

func TestResolverFailure_RefundsAndReturnsToWaiting(t *testing.T) {
	failing := map[string]Resolver{
		"error": ResolverFunc(func([]models.Bet, *rand.Rand) (*models.RoundOutcome, error) {
			return nil, errors.New("deck jammed")
		}),
		"panic": ResolverFunc(func([]models.Bet, *rand.Rand) (*models.RoundOutcome, error) {
			panic("shoe on fire")
		}),
	}

	for name, resolver := range failing {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, models.GameRoulette, WithResolver(models.GameRoulette, resolver))
			p1 := f.seat("alice", 1000)
			f.bet(p1, 100, models.BetRed, nil)

			f.advance(3 * time.Second)
			f.waitState(models.StateWaiting)

			assert.Equal(t, 1000, f.balance(p1), "stake is refunded")
			assert.Empty(t, f.pub.ofType(models.EventGameResult))
			assert.Equal(t, []models.TableState{
				models.StateBetting, models.StatePlaying, models.StateWaiting,
			}, f.pub.states())

			agg, err := f.store.GetCasinoAggregate(f.ctx)
			require.NoError(t, err)
			assert.Zero(t, agg.TotalBets)
			assert.False(t, f.mgr.Snapshot(f.table.ID).ResetPending)
		})
	}
}

func TestDeleteTable_DuringCountdown(t *testing.T) {
	f := newFixture(t, models.GameRoulette)
	p1 := f.seat("alice", 1000)
	f.bet(p1, 100, models.BetRed, nil)
	f.advance(time.Second)

	require.NoError(t, f.mgr.DeleteTable(f.ctx, f.table.ID))

	assert.Equal(t, 1000, f.balance(p1), "discarded stakes are refunded")
	_, err := f.store.GetTable(f.ctx, f.table.ID)
	assert.ErrorIs(t, err, models.ErrTableNotFound)

	var deleted []published
	for _, p := range f.pub.all() {
		if p.event.Event == models.EventTableDeleted {
			deleted = append(deleted, p)
		}
	}
	require.Len(t, deleted, 1)
	assert.Equal(t, models.GlobalChannel, deleted[0].channel)
	assert.Equal(t, f.table.ID, deleted[0].event.Data.(models.TableDeletedEvent).TableID)

	before := len(f.pub.all())
	f.advance(10 * time.Second)
	assert.Len(t, f.pub.all(), before, "no timer fires for a deleted table")
	assert.Empty(t, f.pub.ofType(models.EventGameResult))

	assert.ErrorIs(t, f.mgr.DeleteTable(f.ctx, f.table.ID), ErrTableNotFound)
	_, err = f.mgr.PlaceBet(f.ctx, BetRequest{PlayerID: p1, TableID: f.table.ID, Amount: 10, Type: models.BetRed})
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestDeleteTable_WhileResetPending(t *testing.T) {
	f := newFixture(t, models.GameRoulette)
	p1 := f.seat("alice", 1000)
	f.bet(p1, 100, models.BetRed, nil)
	require.NoError(t, f.mgr.ExecuteRound(f.ctx, f.table.ID))
	require.True(t, f.mgr.Snapshot(f.table.ID).ResetPending)

	require.NoError(t, f.mgr.DeleteTable(f.ctx, f.table.ID))
	statesBefore := len(f.pub.states())

	f.advance(testRoundConfig.ResetDelay * 2)
	assert.Len(t, f.pub.states(), statesBefore, "reset timer was stopped")
}

func TestSettlement_ConservesChips(t *testing.T) {
	f := newFixture(t, models.GameBaccarat)
	players := []string{f.seat("a", 5000), f.seat("b", 5000), f.seat("c", 5000)}
	betTypes := []models.BetType{models.BetPlayer, models.BetBanker, models.BetTie}
	rng := rand.New(rand.NewSource(99))

	for round := 0; round < 30; round++ {
		for i, p := range players {
			f.bet(p, 10+rng.Intn(90), betTypes[(i+round)%3], nil)
		}
		require.NoError(t, f.mgr.ExecuteRound(f.ctx, f.table.ID))
		f.advance(testRoundConfig.ResetDelay)
		f.waitState(models.StateWaiting)
	}

	agg, err := f.store.GetCasinoAggregate(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, agg.TotalBets-agg.TotalPayouts, agg.HouseBalance)

	total := agg.HouseBalance
	for _, p := range players {
		total += f.balance(p)
	}
	assert.Equal(t, 15000, total, "player balances plus house are conserved")

	rounds, err := f.store.ListRounds(f.ctx, f.table.ID, 0)
	require.NoError(t, err)
	assert.Len(t, rounds, 30)
}

func TestSettlement_FailedCreditSkipsPlayer(t *testing.T) {
	var flaky *flakyStore
	f := newFixtureWithStore(t, models.GameRoulette, func(m *store.MemoryStore) Store {
		flaky = &flakyStore{MemoryStore: m}
		return flaky
	})
	p1 := f.seat("alice", 1000)
	p2 := f.seat("bob", 1000)
	flaky.failCreditFor = p1

	// Red and black together cover every pocket but zero; zero is a loss for both.
	f.bet(p1, 100, models.BetRed, nil)
	f.bet(p1, 100, models.BetBlack, nil)
	f.bet(p2, 100, models.BetRed, nil)
	f.bet(p2, 100, models.BetBlack, nil)
	require.NoError(t, f.mgr.ExecuteRound(f.ctx, f.table.ID))

	result := f.pub.ofType(models.EventGameResult)[0].Data.(models.GameResultEvent)
	agg, err := f.store.GetCasinoAggregate(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 400, agg.TotalBets)

	if result.Result.(models.RouletteResult).WinningNumber == 0 {
		assert.Zero(t, agg.TotalPayouts)
		return
	}
	assert.Equal(t, 800, f.balance(p1), "failed credit leaves the debit in place")
	assert.Equal(t, 1000, f.balance(p2), "other players are still paid")
	assert.Equal(t, 400, agg.TotalPayouts, "aggregate uses the computed payouts")
	assert.Equal(t, models.StateFinished, f.mgr.Snapshot(f.table.ID).State)

	for _, e := range f.pub.ofType(models.EventPlayerBalanceUpdated) {
		assert.Equal(t, p2, e.Data.(models.PlayerBalanceUpdatedEvent).PlayerID)
	}
}

func TestSettlement_AggregateFailureReturnsToWaiting(t *testing.T) {
	f := newFixtureWithStore(t, models.GameRoulette, func(m *store.MemoryStore) Store {
		return &flakyStore{MemoryStore: m, failAggregate: true}
	})
	p1 := f.seat("alice", 1000)
	f.bet(p1, 100, models.BetRed, nil)

	require.NoError(t, f.mgr.ExecuteRound(f.ctx, f.table.ID))

	snap := f.mgr.Snapshot(f.table.ID)
	assert.Equal(t, models.StateWaiting, snap.State)
	assert.False(t, snap.ResetPending)
	states := f.pub.states()
	assert.Equal(t, models.StateWaiting, states[len(states)-1])
}

func TestJoinAndLeaveTable(t *testing.T) {
	f := newFixture(t, models.GameThreeCardPoker)
	other, err := f.store.CreateTable(f.ctx, store.TableParams{Name: "other", Game: models.GameRoulette})
	require.NoError(t, err)

	p1 := f.seat("alice", 100)
	_, err = f.mgr.JoinTable(f.ctx, other.ID, p1)
	assert.ErrorIs(t, err, ErrPlayerAtOtherTable)

	_, err = f.mgr.JoinTable(f.ctx, "missing", p1)
	assert.ErrorIs(t, err, ErrTableNotFound)
	_, err = f.mgr.JoinTable(f.ctx, f.table.ID, "ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	table, err := f.mgr.LeaveTable(f.ctx, f.table.ID, p1)
	require.NoError(t, err)
	assert.Empty(t, table.Players)
	_, err = f.mgr.LeaveTable(f.ctx, f.table.ID, p1)
	assert.ErrorIs(t, err, ErrPlayerNotAtTable)

	_, err = f.mgr.JoinTable(f.ctx, other.ID, p1)
	require.NoError(t, err)

	assert.Len(t, f.pub.ofType(models.EventPlayerJoined), 2)
	assert.Len(t, f.pub.ofType(models.EventPlayerLeft), 1)
}

func TestPlaceBet_ConcurrentBetsStartOneCountdown(t *testing.T) {
	f := newFixture(t, models.GameRoulette)
	const n = 40
	players := make([]string, n)
	for i := range players {
		players[i] = f.seat("p", 1000)
	}

	var wg sync.WaitGroup
	for _, p := range players {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()
			_, err := f.mgr.PlaceBet(f.ctx, BetRequest{PlayerID: playerID, TableID: f.table.ID, Amount: 10, Type: models.BetOdd})
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	snap := f.mgr.Snapshot(f.table.ID)
	assert.Equal(t, n, snap.PendingBets)
	assert.Equal(t, []int{3}, f.pub.countdown())
	assert.Equal(t, []models.TableState{models.StateBetting}, f.pub.states())
}

func TestPublisherErrorsAreSwallowed(t *testing.T) {
	f := newFixture(t, models.GameRoulette)
	f.pub.fail(errors.New("broker down"))
	p1 := f.seat("alice", 1000)

	f.bet(p1, 10, models.BetRed, nil)
	require.NoError(t, f.mgr.ExecuteRound(f.ctx, f.table.ID))
	assert.Equal(t, models.StateFinished, f.mgr.Snapshot(f.table.ID).State)
}

func TestClose_StopsTimers(t *testing.T) {
	f := newFixture(t, models.GameRoulette)
	p1 := f.seat("alice", 1000)
	f.bet(p1, 10, models.BetRed, nil)

	f.mgr.Close()
	f.advance(5 * time.Second)
	assert.Equal(t, []int{3}, f.pub.countdown())
	assert.Empty(t, f.pub.ofType(models.EventGameResult))
}
