// Package game implements the Blackjack room engine.
//
// The main type is Room, which owns one table's roster, dealer, deck and
// turn pointer, and moves through the states waiting, countdown, playing,
// dealer_turn and ended before resetting to waiting for the next hand.
//
// # Basic Usage
//
//	room := game.NewRoom("R_00001", game.DefaultRoomConfig(),
//	    game.WithPublisher(pub),
//	    game.WithLogger(logger),
//	)
//	room.Join("p1", "Alice", game.JoinAuto)
//	room.Start("p1")
//	room.Hit("p1")
//	room.Stand("p1")
//
// Every state change is published as a Notification naming the players that
// should receive it. Publish is called with the room lock held so recipients
// see events in the order they happened; implementations must not block and
// must not call back into the room.
//
// # Deterministic Testing
//
// Timers run on an injected quartz.Clock and the deck on an injected
// deck.Shuffler, so a test can rig the cards and step the countdown, turn
// timeouts and dealer pacing explicitly:
//
//	clock := quartz.NewMock(t)
//	room := game.NewRoom("R_00001", cfg,
//	    game.WithClock(clock),
//	    game.WithShuffler(deck.Stacked(deck.MustParseCards("10s 10h 9s 7h")...)),
//	)
package game
