package game

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/evaluator"
	"github.com/lox/twentyone/internal/randutil"
)

const countdownTick = time.Second

// Room is one Blackjack table. All mutation happens under mu, including
// timer callbacks, so a player action and a timer firing never interleave.
type Room struct {
	id        string
	config    RoomConfig
	clock     quartz.Clock
	logger    *log.Logger
	publisher Publisher
	createdAt time.Time

	mu                 sync.Mutex
	state              State
	players            []*Player
	dealer             *Dealer
	deck               *deck.Deck
	current            int
	countdownRemaining int
	handsPlayed        int
	closed             bool

	// Each timer has a generation. Stopping or re-arming bumps it, so a
	// callback that was already queued when it lost the race does nothing.
	countdownTimer *quartz.Timer
	countdownGen   uint64
	turnTimer      *quartz.Timer
	turnGen        uint64
	dealerTimer    *quartz.Timer
	dealerGen      uint64
}

// Option configures a Room
type Option func(*roomOptions)

type roomOptions struct {
	clock     quartz.Clock
	logger    *log.Logger
	publisher Publisher
	shuffler  deck.Shuffler
}

// WithClock sets the clock driving countdown, turn and dealer timers
func WithClock(clock quartz.Clock) Option {
	return func(o *roomOptions) { o.clock = clock }
}

// WithLogger sets the logger; the room adds its own prefix and id
func WithLogger(logger *log.Logger) Option {
	return func(o *roomOptions) { o.logger = logger }
}

// WithPublisher sets where room events are delivered
func WithPublisher(p Publisher) Option {
	return func(o *roomOptions) { o.publisher = p }
}

// WithShuffler sets how each fresh deck is ordered
func WithShuffler(s deck.Shuffler) Option {
	return func(o *roomOptions) { o.shuffler = s }
}

// NewRoom creates an empty room in the waiting state. The config is
// expected to have passed Validate.
func NewRoom(id string, config RoomConfig, opts ...Option) *Room {
	o := roomOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = quartz.NewReal()
	}
	if o.logger == nil {
		o.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.publisher == nil {
		o.publisher = nopPublisher{}
	}
	if o.shuffler == nil {
		o.shuffler = deck.NewRandomShuffler(randutil.Seeded())
	}

	return &Room{
		id:        id,
		config:    config,
		clock:     o.clock,
		logger:    o.logger.WithPrefix("room").With("room", id),
		publisher: o.publisher,
		createdAt: o.clock.Now(),
		state:     StateWaiting,
		dealer:    newDealer(),
		deck:      deck.NewDeck(o.shuffler),
		current:   -1,
	}
}

// ID returns the room identifier
func (r *Room) ID() string {
	return r.id
}

// Config returns the room's fixed configuration
func (r *Room) Config() RoomConfig {
	return r.config
}

// Join seats a player at the end of the turn order. An empty name is
// replaced by DefaultName.
func (r *Room) Join(playerID, name string, kind JoinKind) (PlayerView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return PlayerView{}, ErrRoomNotFound
	}
	if r.find(playerID) >= 0 {
		return PlayerView{}, ErrAlreadyJoined
	}
	if !r.state.Joinable() {
		return PlayerView{}, ErrGameInProgress
	}
	if len(r.players) >= r.config.MaxPlayers {
		return PlayerView{}, ErrRoomFull
	}

	if name == "" {
		name = DefaultName(playerID)
	} else {
		var err error
		if name, err = ValidateName(name); err != nil {
			return PlayerView{}, err
		}
	}

	p := newPlayer(playerID, name)
	r.players = append(r.players, p)
	r.logger.Info("Player joined", "player", playerID, "name", name, "players", len(r.players))

	snap := r.snapshot()
	r.emit([]string{playerID}, JoinedEvent{Kind: kind, PlayerID: playerID, Snapshot: snap})
	r.emit(r.idsExcept(playerID), PlayerJoinedEvent{Player: viewPlayer(p), Snapshot: snap})

	if r.state == StateWaiting && len(r.players) == r.config.MinPlayers {
		r.emit(r.ids(), ReadyToStartEvent{TotalPlayers: len(r.players), MinPlayers: r.config.MinPlayers})
	}
	if r.state == StateWaiting && r.config.AutoStart && len(r.players) == r.config.MaxPlayers {
		r.startCountdown()
	}

	return viewPlayer(p), nil
}

// Leave removes a player. A departing active player forfeits the turn,
// and the room closes itself when nobody is left.
func (r *Room) Leave(playerID string, disconnected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	idx := r.find(playerID)
	if idx < 0 {
		return ErrPlayerNotFound
	}

	p := r.players[idx]
	wasActive := r.state == StatePlaying && idx == r.current
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	r.logger.Info("Player left", "player", playerID, "disconnected", disconnected, "players", len(r.players))

	if !disconnected {
		r.emit([]string{playerID}, LeftEvent{PlayerID: playerID})
	}

	if len(r.players) == 0 {
		r.closeLocked()
		return nil
	}

	cancelled := false
	handoff := false
	switch r.state {
	case StateCountdown:
		if len(r.players) < r.config.MinPlayers {
			r.stopCountdown()
			r.state = StateWaiting
			r.countdownRemaining = 0
			cancelled = true
			r.logger.Info("Countdown cancelled", "players", len(r.players))
		}
	case StatePlaying:
		if wasActive {
			// The seat passes before the broadcast so the snapshot names
			// the new active player, or the dealer when nobody is left.
			r.stopTurnTimer()
			r.current = r.nextPlayer(idx)
			if r.current >= 0 {
				r.players[r.current].IsActive = true
			} else {
				r.state = StateDealerTurn
			}
			handoff = true
		} else if idx < r.current {
			r.current--
		}
	}

	r.emit(r.ids(), PlayerLeftEvent{
		PlayerID:     playerID,
		Name:         p.Name,
		Disconnected: disconnected,
		Snapshot:     r.snapshot(),
	})
	if cancelled {
		r.emit(r.ids(), CountdownCancelledEvent{Snapshot: r.snapshot()})
	}
	if handoff {
		if r.current >= 0 {
			r.startTurn()
		} else {
			r.beginDealerTurn()
		}
	}
	return nil
}

// SetReady marks a player ready. Once every seated player is ready and the
// minimum is met the countdown starts.
func (r *Room) SetReady(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.player(playerID)
	if err != nil {
		return err
	}
	if !r.state.Joinable() {
		return ErrGameInProgress
	}

	p.IsReady = true
	r.emit(r.ids(), PlayerReadyEvent{PlayerID: p.ID, Name: p.Name, IsReady: true, Snapshot: r.snapshot()})

	if r.state == StateWaiting && len(r.players) >= r.config.MinPlayers && r.allReady() {
		r.startCountdown()
	}
	return nil
}

// Start deals immediately, cutting short any running countdown
func (r *Room) Start(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.player(playerID); err != nil {
		return err
	}
	if !r.state.Joinable() {
		return ErrGameInProgress
	}
	if len(r.players) < r.config.MinPlayers {
		return ErrInsufficientPlayers
	}

	r.logger.Info("Game started by player", "player", playerID)
	r.deal()
	return nil
}

// Hit deals one card to the active player
func (r *Room) Hit(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.actor(playerID)
	if err != nil {
		return err
	}

	r.stopTurnTimer()
	card := r.deck.Deal()
	p.AddCard(card)
	r.logger.Debug("Player hit", "player", playerID, "card", card, "score", p.Score)

	// A busting card is announced once, on the bust event.
	if p.IsBust {
		p.HasStood = true
		r.emit(r.ids(), PlayerBustEvent{PlayerID: playerID, Card: card, Score: p.Score, Snapshot: r.snapshot()})
		r.advanceTurn()
		return nil
	}

	r.emit(r.ids(), PlayerHitEvent{PlayerID: playerID, Card: card, Score: p.Score, Snapshot: r.snapshot()})
	r.armTurnTimer()
	return nil
}

// Stand ends the active player's turn
func (r *Room) Stand(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.actor(playerID)
	if err != nil {
		return err
	}

	r.stopTurnTimer()
	p.HasStood = true
	r.logger.Debug("Player stood", "player", playerID, "score", p.Score)
	r.emit(r.ids(), PlayerStandEvent{PlayerID: playerID, Score: p.Score, Snapshot: r.snapshot()})
	r.advanceTurn()
	return nil
}

// Rename changes a seated player's display name and returns the old one
func (r *Room) Rename(playerID, name string) (string, error) {
	name, err := ValidateName(name)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.player(playerID)
	if err != nil {
		return "", err
	}

	old := p.Name
	p.Name = name
	r.emit(r.ids(), PlayerRenamedEvent{PlayerID: playerID, OldName: old, NewName: name, Snapshot: r.snapshot()})
	return old, nil
}

// Snapshot returns a consistent copy of the room
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Summary returns listing information for the room
func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summary{
		ID:         r.id,
		State:      r.state,
		Players:    len(r.players),
		MaxPlayers: r.config.MaxPlayers,
		MinPlayers: r.config.MinPlayers,
		AutoStart:  r.config.AutoStart,
		CreatedAt:  r.createdAt,
	}
}

// HasPlayer reports whether playerID is seated
func (r *Room) HasPlayer(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(playerID) >= 0
}

// Open reports whether the room is waiting and has a free seat
func (r *Room) Open() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && r.state == StateWaiting && len(r.players) < r.config.MaxPlayers
}

// Closed reports whether the room has shut down
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close stops all timers. Further operations fail with ErrRoomNotFound.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Room) closeLocked() {
	if r.closed {
		return
	}
	r.stopCountdown()
	r.stopTurnTimer()
	r.stopDealerTimer()
	r.closed = true
	r.current = -1
	r.logger.Info("Room closed", "hands", r.handsPlayed)
}

// actor returns the player if they may act right now
func (r *Room) actor(playerID string) (*Player, error) {
	p, err := r.player(playerID)
	if err != nil {
		return nil, err
	}
	if r.state != StatePlaying {
		return nil, ErrNotPlaying
	}
	if p.Finished() {
		return nil, ErrAlreadyActed
	}
	if r.current < 0 || r.players[r.current] != p {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

func (r *Room) player(playerID string) (*Player, error) {
	if r.closed {
		return nil, ErrRoomNotFound
	}
	idx := r.find(playerID)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	return r.players[idx], nil
}

func (r *Room) find(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) allReady() bool {
	for _, p := range r.players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

func (r *Room) startCountdown() {
	if r.config.CountdownSeconds <= 0 {
		r.deal()
		return
	}

	r.state = StateCountdown
	r.countdownRemaining = r.config.CountdownSeconds
	r.logger.Info("Countdown started", "seconds", r.countdownRemaining)
	r.emit(r.ids(), CountdownStartedEvent{Seconds: r.countdownRemaining})
	r.armCountdown()
}

func (r *Room) armCountdown() {
	r.countdownGen++
	gen := r.countdownGen
	r.countdownTimer = r.clock.AfterFunc(countdownTick, func() {
		r.onCountdownTick(gen)
	})
}

func (r *Room) onCountdownTick(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || gen != r.countdownGen || r.state != StateCountdown {
		return
	}

	r.countdownRemaining--
	if r.countdownRemaining%5 == 0 || r.countdownRemaining <= 5 {
		r.emit(r.ids(), CountdownUpdateEvent{Seconds: r.countdownRemaining})
	}
	if r.countdownRemaining <= 0 {
		r.deal()
		return
	}
	r.armCountdown()
}

func (r *Room) stopCountdown() {
	r.countdownGen++
	if r.countdownTimer != nil {
		r.countdownTimer.Stop()
		r.countdownTimer = nil
	}
}

// deal starts a hand: fresh deck, two cards each in seat order with the
// dealer last in each round, first player active.
func (r *Room) deal() {
	r.stopCountdown()
	r.countdownRemaining = 0

	r.deck.Shuffle()
	r.dealer = newDealer()
	for _, p := range r.players {
		p.resetForHand()
	}
	for range 2 {
		for _, p := range r.players {
			p.AddCard(r.deck.Deal())
		}
		r.dealer.AddCard(r.deck.Deal())
	}

	r.state = StatePlaying
	r.current = r.nextPlayer(0)
	r.logger.Info("Hand dealt", "players", len(r.players), "hand", r.handsPlayed+1)

	if r.current < 0 {
		r.emit(r.ids(), GameStartedEvent{Snapshot: r.snapshot()})
		r.beginDealerTurn()
		return
	}

	r.players[r.current].IsActive = true
	r.emit(r.ids(), GameStartedEvent{Snapshot: r.snapshot()})
	r.startTurn()
}

// nextPlayer returns the first seat at or after from that still has to act
func (r *Room) nextPlayer(from int) int {
	for i := max(from, 0); i < len(r.players); i++ {
		if !r.players[i].Finished() {
			return i
		}
	}
	return -1
}

// advanceTurn moves to the next player still in the hand, or to the dealer
func (r *Room) advanceTurn() {
	r.stopTurnTimer()
	if r.current >= 0 && r.current < len(r.players) {
		r.players[r.current].IsActive = false
	}

	next := r.nextPlayer(r.current + 1)
	if next < 0 {
		r.current = -1
		r.beginDealerTurn()
		return
	}

	r.current = next
	r.players[next].IsActive = true
	r.startTurn()
}

func (r *Room) startTurn() {
	p := r.players[r.current]
	r.emit(r.ids(), PlayerTurnEvent{PlayerID: p.ID, Name: p.Name, Index: r.current, Snapshot: r.snapshot()})
	r.armTurnTimer()
}

func (r *Room) armTurnTimer() {
	r.stopTurnTimer()
	if !r.config.PlayerTimeout.Enabled || r.current < 0 {
		return
	}

	gen := r.turnGen
	p := r.players[r.current]
	r.turnTimer = r.clock.AfterFunc(r.config.PlayerTimeout.Duration(), func() {
		r.onTurnTimeout(gen)
	})
	r.emit(r.ids(), TurnTimerStartedEvent{PlayerID: p.ID, Seconds: r.config.PlayerTimeout.DurationSeconds})
}

func (r *Room) stopTurnTimer() {
	r.turnGen++
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
}

func (r *Room) onTurnTimeout(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || gen != r.turnGen || r.state != StatePlaying || r.current < 0 {
		return
	}

	p := r.players[r.current]
	p.HasStood = true
	r.turnTimer = nil
	r.logger.Info("Player timed out", "player", p.ID)
	r.emit(r.ids(), PlayerTimeoutEvent{PlayerID: p.ID, Name: p.Name, Snapshot: r.snapshot()})
	r.advanceTurn()
}

func (r *Room) beginDealerTurn() {
	r.state = StateDealerTurn
	r.emit(r.ids(), DealerTurnEvent{Snapshot: r.snapshot()})
	r.playDealer()
}

// playDealer draws until the dealer reaches 17. With a dealer delay each
// draw waits on the clock; the callback re-enters here.
func (r *Room) playDealer() {
	for evaluator.DealerShouldHit(r.dealer.Hand) {
		if r.config.DealerDelay > 0 {
			r.armDealerTimer()
			return
		}
		r.dealerDraw()
	}
	r.finishDealer()
}

func (r *Room) armDealerTimer() {
	r.stopDealerTimer()
	gen := r.dealerGen
	r.dealerTimer = r.clock.AfterFunc(r.config.DealerDelay, func() {
		r.onDealerTimer(gen)
	})
}

func (r *Room) stopDealerTimer() {
	r.dealerGen++
	if r.dealerTimer != nil {
		r.dealerTimer.Stop()
		r.dealerTimer = nil
	}
}

func (r *Room) onDealerTimer(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || gen != r.dealerGen || r.state != StateDealerTurn {
		return
	}
	r.dealerTimer = nil
	r.dealerDraw()
	r.playDealer()
}

func (r *Room) dealerDraw() {
	card := r.deck.Deal()
	r.dealer.AddCard(card)
	r.emit(r.ids(), DealerHitEvent{Card: card, Score: r.dealer.Score, Snapshot: r.snapshot()})
}

func (r *Room) finishDealer() {
	if r.dealer.IsBust {
		r.emit(r.ids(), DealerBustEvent{Score: r.dealer.Score, Snapshot: r.snapshot()})
	} else {
		r.dealer.HasStood = true
		r.emit(r.ids(), DealerStandEvent{Score: r.dealer.Score, Snapshot: r.snapshot()})
	}
	r.endHand()
}

// endHand settles every seat, then resets to waiting with the roster kept
func (r *Room) endHand() {
	r.state = StateEnded
	r.handsPlayed++

	results := make([]Result, 0, len(r.players))
	for _, p := range r.players {
		results = append(results, Settle(p, r.dealer))
	}
	r.logger.Info("Hand complete", "hand", r.handsPlayed, "dealer", r.dealer.Score, "results", len(results))
	r.emit(r.ids(), GameOverEvent{Results: results, Snapshot: r.snapshot()})

	r.state = StateWaiting
	r.current = -1
	for _, p := range r.players {
		p.IsActive = false
		p.IsReady = false
	}
	r.emit(r.ids(), StateUpdatedEvent{Snapshot: r.snapshot()})

	if r.config.AutoStart && len(r.players) == r.config.MaxPlayers {
		r.startCountdown()
	}
}

func (r *Room) snapshot() Snapshot {
	players := make([]PlayerView, len(r.players))
	for i, p := range r.players {
		players[i] = viewPlayer(p)
	}
	return Snapshot{
		RoomID:             r.id,
		State:              r.state,
		Players:            players,
		Dealer:             viewDealer(r.dealer, r.state),
		CurrentPlayerIndex: r.current,
		CountdownRemaining: r.countdownRemaining,
		DeckRemaining:      r.deck.Remaining(),
		HandsPlayed:        r.handsPlayed,
		Config:             r.config,
	}
}

func (r *Room) ids() []string {
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
	}
	return ids
}

func (r *Room) idsExcept(playerID string) []string {
	ids := make([]string, 0, len(r.players))
	for _, p := range r.players {
		if p.ID != playerID {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (r *Room) emit(to []string, e Event) {
	if len(to) == 0 {
		return
	}
	r.publisher.Publish(Notification{RoomID: r.id, To: to, Event: e})
}

func (r *Room) String() string {
	return fmt.Sprintf("Room(%s, %s, %d players)", r.id, r.state, len(r.players))
}
