package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/protocol"
)

const readTimeout = 2 * time.Second

type testServer struct {
	srv   *Server
	http  *httptest.Server
	clock *quartz.Mock
}

// newTestServer runs a server whose rooms deal without countdowns, turn
// timers or dealer pacing, from a deck stacked with the given cards.
func newTestServer(t *testing.T, stack string) *testServer {
	t.Helper()

	cfg := DefaultServerConfig()
	cfg.RoomDefaults = &RoomDefaults{
		CountdownSeconds: protocol.IntPtr(0),
		DealerDelayMs:    protocol.IntPtr(0),
		PlayerTimeout:    &PlayerTimeoutSetting{Enabled: protocol.BoolPtr(false)},
	}
	cards := deck.MustParseCards(stack)
	clock := quartz.NewMock(t)

	srv := NewServer(cfg, testLogger(),
		WithClock(clock),
		WithShuffler(func() deck.Shuffler { return deck.Stacked(cards...) }),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Gateway().Close()
		ts.Close()
	})
	return &testServer{srv: srv, http: ts, clock: clock}
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (s *testServer) dial(t *testing.T) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(msg protocol.Message) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *testClient) sendRaw(data string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

func (c *testClient) read() protocol.Message {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(readTimeout)))
	var msg protocol.Message
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	return msg
}

// expect skips messages until one with the given action arrives
func (c *testClient) expect(action string) protocol.Message {
	c.t.Helper()
	for {
		msg := c.read()
		if msg.Action == action {
			return msg
		}
		if msg.Action == protocol.ActionError && action != protocol.ActionError {
			c.t.Fatalf("waiting for %s, got error %s: %s", action, msg.Code, msg.Message)
		}
	}
}

func TestGatewaySinglePlayerHand(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "10s 10h 9s 7h")
	alice := ts.dial(t)

	alice.send(protocol.Message{Action: protocol.ActionJoinGame, PlayerID: "alice", PlayerName: "Alice"})
	joined := alice.expect(protocol.ActionJoinedGame)
	assert.Equal(t, "alice", joined.PlayerID)
	assert.Equal(t, "Alice", joined.PlayerName)
	assert.True(t, strings.HasPrefix(joined.RoomID, "R_"))
	require.NotNil(t, joined.RoomConfig)
	assert.Equal(t, 6, *joined.RoomConfig.MaxPlayers)

	alice.send(protocol.Message{Action: protocol.ActionStartGame})
	started := alice.expect(protocol.ActionGameStarted)
	require.Len(t, started.Players, 1)
	assert.Equal(t, 19, started.Players[0].Score)
	require.NotNil(t, started.Dealer)
	require.Len(t, started.Dealer.Hand, 2)
	assert.Equal(t, protocol.HiddenCard, started.Dealer.Hand[1])
	assert.Equal(t, 10, started.Dealer.Score)

	turn := alice.expect(protocol.ActionPlayerTurn)
	assert.Equal(t, "alice", turn.PlayerID)
	require.NotNil(t, turn.CurrentPlayerIndex)
	assert.Equal(t, 0, *turn.CurrentPlayerIndex)

	alice.send(protocol.Message{Action: protocol.ActionPlayerStand})
	stand := alice.expect(protocol.ActionPlayerStand)
	require.NotNil(t, stand.Score)
	assert.Equal(t, 19, *stand.Score)

	dealerStand := alice.expect(protocol.ActionDealerStand)
	require.NotNil(t, dealerStand.DealerScore)
	assert.Equal(t, 17, *dealerStand.DealerScore)
	assert.Equal(t, protocol.Card{Suit: "Hearts", Value: "7"}, dealerStand.Dealer.Hand[1])

	over := alice.expect(protocol.ActionGameOver)
	assert.Equal(t, "Alice: Player Wins (19 vs 17)", over.Result)
	require.Len(t, over.Results, 1)
	assert.Equal(t, "Player Wins", over.Results[0].Outcome)

	update := alice.expect(protocol.ActionUpdateGameState)
	assert.Equal(t, "waiting", update.GamePhase)
}

func TestGatewayRejectsOutOfTurn(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")
	alice := ts.dial(t)
	bob := ts.dial(t)

	alice.send(protocol.Message{Action: protocol.ActionCreateRoom, PlayerID: "alice", RoomID: "table"})
	created := alice.expect(protocol.ActionRoomCreated)
	assert.Equal(t, "table", created.RoomID)

	bob.send(protocol.Message{Action: protocol.ActionJoinRoom, PlayerID: "bob", RoomID: "table"})
	joined := bob.expect(protocol.ActionRoomJoined)
	assert.Len(t, joined.Players, 2)
	alice.expect(protocol.ActionPlayerJoined)

	alice.send(protocol.Message{Action: protocol.ActionStartGame})
	bob.expect(protocol.ActionPlayerTurn)

	bob.send(protocol.Message{Action: protocol.ActionPlayerHit})
	rejected := bob.expect(protocol.ActionError)
	assert.Equal(t, protocol.CodeNotYourTurn, rejected.Code)

	bob.send(protocol.Message{Action: protocol.ActionJoinGame})
	rejected = bob.expect(protocol.ActionError)
	assert.Equal(t, protocol.CodeAlreadyJoined, rejected.Code)
}

func TestGatewayRoomErrors(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")
	alice := ts.dial(t)
	bob := ts.dial(t)

	alice.send(protocol.Message{
		Action:     protocol.ActionCreateRoom,
		PlayerID:   "alice",
		RoomID:     "solo",
		RoomConfig: &protocol.RoomConfig{MaxPlayers: protocol.IntPtr(1)},
	})
	created := alice.expect(protocol.ActionRoomCreated)
	require.NotNil(t, created.RoomConfig)
	assert.Equal(t, 1, *created.RoomConfig.MaxPlayers)

	tests := []struct {
		name string
		msg  protocol.Message
		code string
	}{
		{"full room", protocol.Message{Action: protocol.ActionJoinRoom, RoomID: "solo"}, protocol.CodeRoomFull},
		{"duplicate room id", protocol.Message{Action: protocol.ActionCreateRoom, RoomID: "solo"}, protocol.CodeRoomExists},
		{"unknown room", protocol.Message{Action: protocol.ActionJoinRoom, RoomID: "nope"}, protocol.CodeRoomNotFound},
		{"bad config", protocol.Message{Action: protocol.ActionCreateRoom, RoomConfig: &protocol.RoomConfig{MaxPlayers: protocol.IntPtr(7)}}, protocol.CodeInvalidConfig},
		{"bad name", protocol.Message{Action: protocol.ActionCreateRoom, PlayerName: strings.Repeat("x", 40)}, protocol.CodeInvalidName},
		{"leave without room", protocol.Message{Action: protocol.ActionLeaveRoom}, protocol.CodeNotInRoom},
	}

	for _, tt := range tests {
		bob.send(tt.msg)
		reply := bob.expect(protocol.ActionError)
		if reply.Code != tt.code {
			t.Errorf("%s: code = %s, want %s (%s)", tt.name, reply.Code, tt.code, reply.Message)
		}
	}

	assert.Equal(t, 1, ts.srv.Gateway().Registry().Len(), "failed creates leave no rooms behind")
}

func TestGatewayMalformedMessageKeepsConnection(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")
	c := ts.dial(t)

	c.sendRaw("{not json")
	reply := c.expect(protocol.ActionError)
	assert.Equal(t, protocol.CodeMalformedMessage, reply.Code)

	c.sendRaw(`{"action":"dance"}`)
	reply = c.expect(protocol.ActionError)
	assert.Equal(t, protocol.CodeMalformedMessage, reply.Code)

	c.send(protocol.Message{Action: protocol.ActionPlayerHit})
	reply = c.expect(protocol.ActionError)
	assert.Equal(t, protocol.CodeNotInRoom, reply.Code)

	c.send(protocol.Message{Action: protocol.ActionJoinGame})
	joined := c.expect(protocol.ActionJoinedGame)
	assert.NotEmpty(t, joined.RoomID)
	assert.True(t, strings.HasPrefix(joined.PlayerName, "Player_"))
}

func TestGatewayNameCooldown(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")
	ctx := context.Background()
	c := ts.dial(t)

	c.send(protocol.Message{Action: protocol.ActionUpdatePlayerName, PlayerID: "p1", Name: "Bob"})
	confirmed := c.expect(protocol.ActionNameUpdateConfirmed)
	assert.Equal(t, "Bob", confirmed.Name)
	assert.Equal(t, 5, confirmed.CooldownMinutes)

	ts.clock.Advance(time.Minute).MustWait(ctx)

	c.send(protocol.Message{Action: protocol.ActionUpdatePlayerName, Name: "Carl"})
	failed := c.expect(protocol.ActionNameUpdateFailed)
	assert.Equal(t, protocol.CodeNameCooldownActive, failed.Code)
	assert.Equal(t, int64(4*time.Minute/time.Millisecond), failed.CooldownRemaining)

	ts.clock.Advance(4 * time.Minute).MustWait(ctx)

	c.send(protocol.Message{Action: protocol.ActionUpdatePlayerName, Name: "Carl"})
	confirmed = c.expect(protocol.ActionNameUpdateConfirmed)
	assert.Equal(t, "Bob", confirmed.OldName)
	assert.Equal(t, "Carl", confirmed.NewName)

	// The confirmed name is used when the player later takes a seat
	c.send(protocol.Message{Action: protocol.ActionJoinGame})
	joined := c.expect(protocol.ActionJoinedGame)
	assert.Equal(t, "Carl", joined.PlayerName)
}

func TestGatewayRenameBroadcastsToRoom(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")
	alice := ts.dial(t)
	bob := ts.dial(t)

	alice.send(protocol.Message{Action: protocol.ActionCreateRoom, PlayerID: "alice", RoomID: "names"})
	alice.expect(protocol.ActionRoomCreated)
	bob.send(protocol.Message{Action: protocol.ActionJoinRoom, PlayerID: "bob", RoomID: "names"})
	bob.expect(protocol.ActionRoomJoined)

	bob.send(protocol.Message{Action: protocol.ActionUpdatePlayerName, Name: "Robert"})
	bob.expect(protocol.ActionNameUpdateConfirmed)

	renamed := alice.expect(protocol.ActionPlayerNameUpdated)
	assert.Equal(t, "bob", renamed.PlayerID)
	assert.Equal(t, "Robert", renamed.NewName)
	assert.Equal(t, "Player_bob", renamed.OldName)
}

func TestGatewayDisconnectLeavesRoom(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")
	alice := ts.dial(t)
	bob := ts.dial(t)

	alice.send(protocol.Message{Action: protocol.ActionCreateRoom, PlayerID: "alice", RoomID: "drop"})
	alice.expect(protocol.ActionRoomCreated)
	bob.send(protocol.Message{Action: protocol.ActionJoinRoom, PlayerID: "bob", PlayerName: "Bob", RoomID: "drop"})
	bob.expect(protocol.ActionRoomJoined)
	alice.expect(protocol.ActionPlayerJoined)

	require.NoError(t, bob.conn.Close())

	gone := alice.expect(protocol.ActionPlayerDisconnected)
	assert.Equal(t, "bob", gone.PlayerID)
	assert.Equal(t, "Bob", gone.PlayerName)
	assert.Len(t, gone.Players, 1)

	alice.send(protocol.Message{Action: protocol.ActionLeaveRoom})
	left := alice.expect(protocol.ActionRoomLeft)
	assert.Equal(t, "drop", left.RoomID)

	registry := ts.srv.Gateway().Registry()
	assert.Eventually(t, func() bool { return registry.Len() == 0 }, readTimeout, 10*time.Millisecond)
}

func TestHealthAndRooms(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()
	require.NoError(t, WaitForHealthy(ctx, ts.http.URL))

	c := ts.dial(t)
	c.send(protocol.Message{
		Action:     protocol.ActionCreateRoom,
		RoomID:     "lobby",
		RoomConfig: &protocol.RoomConfig{MaxPlayers: protocol.IntPtr(3), AutoStart: protocol.BoolPtr(true)},
	})
	c.expect(protocol.ActionRoomCreated)

	resp, err := http.Get(ts.http.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var rooms []protocol.RoomSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "lobby", rooms[0].ID)
	assert.Equal(t, "waiting", rooms[0].State)
	assert.Equal(t, 1, rooms[0].Players)
	assert.Equal(t, 3, rooms[0].MaxPlayers)
	assert.True(t, rooms[0].AutoStart)

	post, err := http.Post(ts.http.URL+"/rooms", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	t.Parallel()

	cfg := DefaultServerConfig()
	cfg.Server.AllowedOrigins = []string{"https://table.example"}
	srv := NewServer(cfg, testLogger())
	t.Cleanup(srv.Gateway().Close)

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://table.example", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := srv.checkOrigin(req); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
