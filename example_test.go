package fsmsnap_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/librescoot/fsmsnap"
)

// Example: door with a nested locked state
func Example_door() {
	const (
		stateClosed  fsmsnap.StateID = "closed"
		stateLatched fsmsnap.StateID = "latched"
		stateLocked  fsmsnap.StateID = "locked"
		stateOpen    fsmsnap.StateID = "open"
		evOpen       fsmsnap.EventID = "open"
		evClose      fsmsnap.EventID = "close"
		evLock       fsmsnap.EventID = "lock"
		evUnlock     fsmsnap.EventID = "unlock"
	)

	def := fsmsnap.NewDefinition().
		State(stateClosed, fsmsnap.WithDefaultChild(stateLatched)).
		State(stateLatched, fsmsnap.WithParent(stateClosed)).
		State(stateLocked,
			fsmsnap.WithParent(stateClosed),
			fsmsnap.WithOnEnter(func(c *fsmsnap.Context) error {
				fmt.Println("→ locked")
				return nil
			}),
		).
		State(stateOpen,
			fsmsnap.WithOnEnter(func(c *fsmsnap.Context) error {
				fmt.Println("→ open")
				return nil
			}),
		).
		Transition(stateLatched, evOpen, stateOpen).
		Transition(stateLatched, evLock, stateLocked).
		Transition(stateLocked, evUnlock, stateLatched).
		Transition(stateOpen, evClose, stateClosed).
		Initial(stateClosed)

	m, _ := def.Build(
		fsmsnap.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	defer m.Stop()

	m.SendSync(fsmsnap.Event{ID: evLock})
	fmt.Println("active:", m.ActiveStates())

	// Locked doors ignore open
	m.SendSync(fsmsnap.Event{ID: evOpen})
	fmt.Println("closed:", m.IsInState(stateClosed))

	m.SendSync(fsmsnap.Event{ID: evUnlock})
	m.SendSync(fsmsnap.Event{ID: evOpen})
	fmt.Println("active:", m.ActiveStates())

	// Output:
	// → locked
	// active: [locked closed]
	// closed: true
	// → open
	// active: [open]
}
