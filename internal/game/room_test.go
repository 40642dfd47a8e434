package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/twentyone/internal/deck"
)

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Publish(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = nil
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Event.EventType()
	}
	return out
}

func eventsOf[T Event](r *recorder) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []T
	for _, n := range r.notes {
		if e, ok := n.Event.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

// quickConfig has no countdown, no turn timeout and no dealer pacing
func quickConfig() RoomConfig {
	cfg := DefaultRoomConfig()
	cfg.CountdownSeconds = 0
	cfg.PlayerTimeout.Enabled = false
	cfg.DealerDelay = 0
	return cfg
}

func newTestRoom(t *testing.T, cfg RoomConfig, cards string) (*Room, *recorder, *quartz.Mock) {
	t.Helper()
	require.NoError(t, cfg.Validate())

	rec := &recorder{}
	clock := quartz.NewMock(t)
	room := NewRoom("R_00001", cfg,
		WithClock(clock),
		WithPublisher(rec),
		WithShuffler(deck.Stacked(deck.MustParseCards(cards)...)),
	)
	return room, rec, clock
}

func join(t *testing.T, room *Room, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := room.Join(id, "", JoinDirect)
		require.NoError(t, err)
	}
}

func TestJoin(t *testing.T) {
	t.Parallel()

	cfg := quickConfig()
	cfg.MaxPlayers = 2
	room, rec, _ := newTestRoom(t, cfg, "")

	p, err := room.Join("abcdef123", "", JoinAuto)
	require.NoError(t, err)
	assert.Equal(t, "Player_abcde", p.Name)

	_, err = room.Join("abcdef123", "Again", JoinAuto)
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	_, err = room.Join("p2", "   ", JoinAuto)
	assert.ErrorIs(t, err, ErrInvalidName)

	p, err = room.Join("p2", "  Bob ", JoinAuto)
	require.NoError(t, err)
	assert.Equal(t, "Bob", p.Name)

	_, err = room.Join("p3", "Carol", JoinAuto)
	assert.ErrorIs(t, err, ErrRoomFull)

	joined := eventsOf[JoinedEvent](rec)
	require.Len(t, joined, 2)
	assert.Equal(t, "abcdef123", joined[0].PlayerID)
	assert.Len(t, joined[1].Snapshot.Players, 2)

	others := eventsOf[PlayerJoinedEvent](rec)
	require.Len(t, others, 1, "first joiner has nobody to tell")
	assert.Equal(t, "Bob", others[0].Player.Name)
}

func TestJoinRejectedDuringHand(t *testing.T) {
	t.Parallel()

	room, _, _ := newTestRoom(t, quickConfig(), "")
	join(t, room, "p1")
	require.NoError(t, room.Start("p1"))

	_, err := room.Join("p2", "", JoinDirect)
	assert.ErrorIs(t, err, ErrGameInProgress)
}

func TestReadyToStart(t *testing.T) {
	t.Parallel()

	cfg := quickConfig()
	cfg.MinPlayers = 2
	room, rec, _ := newTestRoom(t, cfg, "")

	join(t, room, "p1")
	assert.Empty(t, eventsOf[ReadyToStartEvent](rec))

	join(t, room, "p2")
	ready := eventsOf[ReadyToStartEvent](rec)
	require.Len(t, ready, 1)
	assert.Equal(t, 2, ready[0].TotalPlayers)

	err := room.Start("p3")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestStartRequiresMinPlayers(t *testing.T) {
	t.Parallel()

	cfg := quickConfig()
	cfg.MinPlayers = 2
	room, _, _ := newTestRoom(t, cfg, "")
	join(t, room, "p1")

	err := room.Start("p1")
	assert.ErrorIs(t, err, ErrInsufficientPlayers)
	assert.Equal(t, StateWaiting, room.Snapshot().State)
}

func TestPlayerBeatsDealerSeventeen(t *testing.T) {
	t.Parallel()

	// p1: 10s 9s, dealer: 10h 7h
	room, rec, _ := newTestRoom(t, quickConfig(), "10s 10h 9s 7h")
	_, err := room.Join("p1", "Alice", JoinAuto)
	require.NoError(t, err)

	require.NoError(t, room.Start("p1"))

	snap := room.Snapshot()
	require.Equal(t, StatePlaying, snap.State)
	assert.Equal(t, 0, snap.CurrentPlayerIndex)
	assert.True(t, snap.Players[0].IsActive)
	assert.Equal(t, 19, snap.Players[0].Score)
	assert.Equal(t, 17, snap.Dealer.Score)
	assert.False(t, snap.Dealer.Revealed)
	assert.False(t, snap.Dealer.IsActive)

	require.NoError(t, room.Stand("p1"))

	assert.Empty(t, eventsOf[DealerHitEvent](rec), "dealer stands on 17")
	stands := eventsOf[DealerStandEvent](rec)
	require.Len(t, stands, 1)
	assert.True(t, stands[0].Snapshot.Dealer.HasStood)
	assert.False(t, snap.Dealer.HasStood, "dealer has not stood while players act")

	over := eventsOf[GameOverEvent](rec)
	require.Len(t, over, 1)
	require.Len(t, over[0].Results, 1)
	res := over[0].Results[0]
	assert.Equal(t, PlayerWins, res.Outcome)
	assert.Equal(t, "Player Wins", res.Outcome.String())
	assert.Equal(t, "Alice: Player Wins (19 vs 17)", res.Line())
	assert.Equal(t, StateEnded, over[0].Snapshot.State)
	assert.True(t, over[0].Snapshot.Dealer.Revealed)

	snap = room.Snapshot()
	assert.Equal(t, StateWaiting, snap.State)
	assert.Equal(t, -1, snap.CurrentPlayerIndex)
	assert.Equal(t, 1, snap.HandsPlayed)
	assert.False(t, snap.Players[0].IsReady)
}

func TestBustAdvancesTurn(t *testing.T) {
	t.Parallel()

	// p1: 10h 5h then 8c, p2: 9c 9d, dealer: 10s 7s
	room, rec, _ := newTestRoom(t, quickConfig(), "10h 9c 10s 5h 9d 7s 8c")
	join(t, room, "p1", "p2")
	require.NoError(t, room.Start("p1"))
	rec.reset()

	require.NoError(t, room.Hit("p1"))

	snap := room.Snapshot()
	p1 := snap.Players[0]
	assert.Equal(t, 23, p1.Score)
	assert.True(t, p1.IsBust)
	assert.True(t, p1.HasStood)
	assert.False(t, p1.IsActive)
	assert.Equal(t, 1, snap.CurrentPlayerIndex)
	assert.True(t, snap.Players[1].IsActive)

	assert.Equal(t, []EventType{
		EventTypePlayerBust,
		EventTypePlayerTurn,
	}, rec.types(), "the busting card is announced once")

	busts := eventsOf[PlayerBustEvent](rec)
	require.Len(t, busts, 1)
	assert.Equal(t, deck.MustParseCards("8c")[0], busts[0].Card)
	assert.Equal(t, 23, busts[0].Score)
	assert.Empty(t, eventsOf[PlayerHitEvent](rec))

	err := room.Hit("p1")
	assert.ErrorIs(t, err, ErrAlreadyActed)
}

func TestAllFinishedGoesToDealerOnce(t *testing.T) {
	t.Parallel()

	room, rec, _ := newTestRoom(t, quickConfig(), "10h 9c 10s 8h 9d 7s")
	join(t, room, "p1", "p2")
	require.NoError(t, room.Start("p1"))

	require.NoError(t, room.Stand("p1"))
	require.NoError(t, room.Stand("p2"))

	assert.Len(t, eventsOf[DealerTurnEvent](rec), 1)
	over := eventsOf[GameOverEvent](rec)
	require.Len(t, over, 1)
	assert.Equal(t, "p1", over[0].Results[0].PlayerID)
	assert.Equal(t, PlayerWins, over[0].Results[0].Outcome, "18 vs 17")
	assert.Equal(t, PlayerWins, over[0].Results[1].Outcome, "18 vs 17")
}

func TestDealerDrawsOnSixteen(t *testing.T) {
	t.Parallel()

	// p1: 10h 9h, dealer: 10s 6s then 2c
	room, rec, _ := newTestRoom(t, quickConfig(), "10h 10s 9h 6s 2c")
	join(t, room, "p1")
	require.NoError(t, room.Start("p1"))
	require.NoError(t, room.Stand("p1"))

	hits := eventsOf[DealerHitEvent](rec)
	require.Len(t, hits, 1)
	assert.Equal(t, deck.MustParseCards("2c")[0], hits[0].Card)
	assert.Equal(t, 18, hits[0].Score)

	over := eventsOf[GameOverEvent](rec)
	require.Len(t, over, 1)
	assert.Len(t, over[0].Snapshot.Dealer.Hand, 3)
	assert.Equal(t, "p1: Player Wins (19 vs 18)", over[0].Results[0].Line())
}

func TestDealerBust(t *testing.T) {
	t.Parallel()

	room, rec, _ := newTestRoom(t, quickConfig(), "10h 10s 2h 6s Kc")
	join(t, room, "p1")
	require.NoError(t, room.Start("p1"))
	require.NoError(t, room.Stand("p1"))

	require.Len(t, eventsOf[DealerBustEvent](rec), 1)
	assert.Empty(t, eventsOf[DealerStandEvent](rec))
	over := eventsOf[GameOverEvent](rec)
	require.Len(t, over, 1)
	assert.Equal(t, "p1: Dealer Bust! Player Wins", over[0].Results[0].Line())
}

func TestRejectedActionsDoNotMutate(t *testing.T) {
	t.Parallel()

	room, rec, _ := newTestRoom(t, quickConfig(), "")
	join(t, room, "p1", "p2")

	err := room.Hit("p1")
	assert.ErrorIs(t, err, ErrNotPlaying)

	require.NoError(t, room.Start("p1"))
	rec.reset()

	before := room.Snapshot()
	tests := []struct {
		name   string
		action func() error
		want   error
	}{
		{"hit out of turn", func() error { return room.Hit("p2") }, ErrNotYourTurn},
		{"stand out of turn", func() error { return room.Stand("p2") }, ErrNotYourTurn},
		{"unknown player", func() error { return room.Hit("ghost") }, ErrPlayerNotFound},
		{"start mid hand", func() error { return room.Start("p2") }, ErrGameInProgress},
		{"ready mid hand", func() error { return room.SetReady("p2") }, ErrGameInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action()
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
			assert.Equal(t, before, room.Snapshot())
		})
	}
	assert.Empty(t, rec.types())
}

func TestDealRemovesTwoCardsPerSeat(t *testing.T) {
	t.Parallel()

	for players := 1; players <= MaxSeats; players++ {
		cfg := quickConfig()
		room := NewRoom("R_00002", cfg)
		for i := range players {
			_, err := room.Join(string(rune('a'+i)), "", JoinAuto)
			require.NoError(t, err)
		}
		require.NoError(t, room.Start("a"))

		snap := room.Snapshot()
		assert.Equal(t, deck.Size-2*(players+1), snap.DeckRemaining, "%d players", players)
		for _, p := range snap.Players {
			assert.Len(t, p.Hand, 2)
		}
		assert.Len(t, snap.Dealer.Hand, 2)
	}
}

func TestCountdown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := quickConfig()
	cfg.CountdownSeconds = 10
	room, rec, clock := newTestRoom(t, cfg, "")
	join(t, room, "p1")

	require.NoError(t, room.SetReady("p1"))
	require.Equal(t, StateCountdown, room.Snapshot().State)

	started := eventsOf[CountdownStartedEvent](rec)
	require.Len(t, started, 1)
	assert.Equal(t, 10, started[0].Seconds)

	for range 9 {
		clock.Advance(time.Second).MustWait(ctx)
	}
	assert.Equal(t, StateCountdown, room.Snapshot().State)
	assert.Equal(t, 1, room.Snapshot().CountdownRemaining)

	var seconds []int
	for _, e := range eventsOf[CountdownUpdateEvent](rec) {
		seconds = append(seconds, e.Seconds)
	}
	assert.Equal(t, []int{5, 4, 3, 2, 1}, seconds)

	clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, StatePlaying, room.Snapshot().State)
	assert.Len(t, eventsOf[GameStartedEvent](rec), 1)
	updates := eventsOf[CountdownUpdateEvent](rec)
	assert.Equal(t, 0, updates[len(updates)-1].Seconds)
}

func TestStartCutsCountdownShort(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := quickConfig()
	cfg.CountdownSeconds = 30
	room, rec, clock := newTestRoom(t, cfg, "")
	join(t, room, "p1")
	require.NoError(t, room.SetReady("p1"))

	clock.Advance(time.Second).MustWait(ctx)
	require.NoError(t, room.Start("p1"))
	assert.Equal(t, StatePlaying, room.Snapshot().State)

	// the stopped countdown must not tick or deal again
	clock.Advance(5 * time.Second).MustWait(ctx)
	assert.Len(t, eventsOf[GameStartedEvent](rec), 1)
	assert.Equal(t, StatePlaying, room.Snapshot().State)
}

func TestAutoStartWhenFull(t *testing.T) {
	t.Parallel()

	cfg := quickConfig()
	cfg.MaxPlayers = 2
	cfg.AutoStart = true
	cfg.CountdownSeconds = 5
	room, rec, _ := newTestRoom(t, cfg, "")

	join(t, room, "p1")
	assert.Equal(t, StateWaiting, room.Snapshot().State)

	join(t, room, "p2")
	assert.Equal(t, StateCountdown, room.Snapshot().State)
	assert.Len(t, eventsOf[CountdownStartedEvent](rec), 1)
}

func TestWaitingRoomsAreIsolated(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := quartz.NewMock(t)
	cfg := quickConfig()
	idle := NewRoom("R_00001", cfg, WithClock(clock))
	busy := NewRoom("R_00002", cfg, WithClock(clock))

	_, err := idle.Join("a", "", JoinAuto)
	require.NoError(t, err)
	_, err = busy.Join("b", "", JoinAuto)
	require.NoError(t, err)

	require.NoError(t, busy.Start("b"))
	clock.Advance(10 * time.Minute).MustWait(ctx)

	assert.Equal(t, StateWaiting, idle.Snapshot().State)
	assert.Equal(t, StatePlaying, busy.Snapshot().State)
	assert.Empty(t, idle.Snapshot().Players[0].Hand)
}

func TestTurnTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := quickConfig()
	cfg.PlayerTimeout = PlayerTimeout{Enabled: true, DurationSeconds: 30}
	room, rec, clock := newTestRoom(t, cfg, "")
	join(t, room, "p1", "p2")
	require.NoError(t, room.Start("p1"))

	armed := eventsOf[TurnTimerStartedEvent](rec)
	require.Len(t, armed, 1)
	assert.Equal(t, "p1", armed[0].PlayerID)
	assert.Equal(t, 30, armed[0].Seconds)

	clock.Advance(30 * time.Second).MustWait(ctx)

	timeouts := eventsOf[PlayerTimeoutEvent](rec)
	require.Len(t, timeouts, 1)
	assert.Equal(t, "p1", timeouts[0].PlayerID)
	assert.Empty(t, eventsOf[PlayerStandEvent](rec), "timeout is reported distinctly")

	snap := room.Snapshot()
	assert.True(t, snap.Players[0].HasStood)
	assert.Equal(t, 1, snap.CurrentPlayerIndex)

	assert.ErrorIs(t, room.Hit("p1"), ErrAlreadyActed)
}

func TestActionCancelsTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := quickConfig()
	cfg.PlayerTimeout = PlayerTimeout{Enabled: true, DurationSeconds: 30}
	room, rec, clock := newTestRoom(t, cfg, "")
	join(t, room, "p1", "p2")
	require.NoError(t, room.Start("p1"))

	clock.Advance(20 * time.Second).MustWait(ctx)
	require.NoError(t, room.Stand("p1"))

	// p1's original deadline passes without effect
	clock.Advance(10 * time.Second).MustWait(ctx)
	assert.Empty(t, eventsOf[PlayerTimeoutEvent](rec))
	assert.Equal(t, 1, room.Snapshot().CurrentPlayerIndex)

	// p2 got a fresh 30 seconds from the stand
	clock.Advance(20 * time.Second).MustWait(ctx)
	timeouts := eventsOf[PlayerTimeoutEvent](rec)
	require.Len(t, timeouts, 1)
	assert.Equal(t, "p2", timeouts[0].PlayerID)
	assert.Equal(t, StateWaiting, room.Snapshot().State, "hand resolved after last timeout")
}

func TestDealerDelay(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// p1: 10h 9h, dealer: 10s 4s then 2c 3d
	cfg := quickConfig()
	cfg.DealerDelay = time.Second
	room, rec, clock := newTestRoom(t, cfg, "10h 10s 9h 4s 2c 3d")
	join(t, room, "p1")
	require.NoError(t, room.Start("p1"))
	require.NoError(t, room.Stand("p1"))

	snap := room.Snapshot()
	assert.Equal(t, StateDealerTurn, snap.State)
	assert.True(t, snap.Dealer.Revealed)
	assert.Empty(t, eventsOf[DealerHitEvent](rec))

	clock.Advance(time.Second).MustWait(ctx)
	require.Len(t, eventsOf[DealerHitEvent](rec), 1)
	assert.Equal(t, StateDealerTurn, room.Snapshot().State)
	assert.Equal(t, 16, room.Snapshot().Dealer.Score)

	clock.Advance(time.Second).MustWait(ctx)
	require.Len(t, eventsOf[DealerHitEvent](rec), 2)
	over := eventsOf[GameOverEvent](rec)
	require.Len(t, over, 1)
	assert.Equal(t, "p1: Tie (19)", over[0].Results[0].Line())
	assert.Equal(t, StateWaiting, room.Snapshot().State)
}

func TestCloseStopsDealerPacing(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := quickConfig()
	cfg.DealerDelay = time.Second
	room, rec, clock := newTestRoom(t, cfg, "10h 10s 9h 4s 2c 3d")
	join(t, room, "p1")
	require.NoError(t, room.Start("p1"))
	require.NoError(t, room.Stand("p1"))

	room.Close()
	clock.Advance(time.Second).MustWait(ctx)

	assert.Empty(t, eventsOf[DealerHitEvent](rec))
	assert.True(t, room.Closed())
	assert.ErrorIs(t, room.Hit("p1"), ErrRoomNotFound)
}
