package snapshot_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/librescoot/fsmsnap"
	"github.com/librescoot/fsmsnap/snapshot"
)

const (
	statePowered fsmsnap.StateID = "powered"
	stateStandby fsmsnap.StateID = "standby"
	stateRunning fsmsnap.StateID = "running"

	evSleep fsmsnap.EventID = "sleep"
	evWake  fsmsnap.EventID = "wake"
)

var pumpSnapshot = snapshot.MustTable("pump", statePowered, stateStandby, stateRunning)

func pumpMachine() (*fsmsnap.Machine, error) {
	return fsmsnap.NewDefinition().
		State(statePowered, fsmsnap.WithDefaultChild(stateRunning)).
		State(stateStandby).
		State(stateRunning, fsmsnap.WithParent(statePowered)).
		Transition(statePowered, evSleep, stateStandby).
		Transition(stateStandby, evWake, statePowered).
		Initial(statePowered).
		Build()
}

func Example() {
	m, _ := pumpMachine()
	m.Start(context.Background())
	defer m.Stop()

	mask := pumpSnapshot.Read(m)
	fmt.Printf("%d %s\n", mask, pumpSnapshot.Format(mask))

	m.SendSync(fsmsnap.Event{ID: evSleep})
	mask = pumpSnapshot.ReadView(m)
	fmt.Printf("%d %s\n", mask, pumpSnapshot.Format(mask))

	// Output:
	// 5 powered|running
	// 2 standby
}

func TestHierarchicalSnapshot(t *testing.T) {
	m, err := pumpMachine()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer m.Stop()

	steps := []struct {
		event fsmsnap.EventID
		want  snapshot.Mask
	}{
		{want: 0b101},
		{event: evSleep, want: 0b010},
		{event: evWake, want: 0b101},
	}

	for _, step := range steps {
		if step.event != "" {
			if err := m.SendSync(fsmsnap.Event{ID: step.event}); err != nil {
				t.Fatalf("send %s: %v", step.event, err)
			}
		}

		got := pumpSnapshot.ReadView(m)
		if got != step.want {
			t.Errorf("after %q: expected %#b, got %#b", step.event, step.want, got)
		}

		// Every active state, leaf and ancestors, maps to a set bit.
		for _, s := range m.ActiveStates() {
			offset, ok := pumpSnapshot.Offset(s)
			if !ok || !got.Has(offset) {
				t.Errorf("active state %s not reflected in %#b", s, got)
			}
		}
	}
}

func TestFinalStateHasBit(t *testing.T) {
	const (
		stateWorking fsmsnap.StateID = "working"
		stateDone    fsmsnap.StateID = "done"
		evFinish     fsmsnap.EventID = "finish"
	)
	table := snapshot.MustTable("job", stateWorking, stateDone)

	m, err := fsmsnap.NewDefinition().
		State(stateWorking).
		FinalState(stateDone).
		Transition(stateWorking, evFinish, stateDone).
		Initial(stateWorking).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer m.Stop()

	if err := m.SendSync(fsmsnap.Event{ID: evFinish}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := table.ReadView(m); got != 0b10 {
		t.Errorf("expected 0b10, got %#b", got)
	}
}
