package promsnap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/librescoot/fsmsnap"
	"github.com/librescoot/fsmsnap/examples/blinky"
	"github.com/librescoot/fsmsnap/snapshot"
)

type mode string

type fixedQuerier map[mode]bool

func (q fixedQuerier) IsInState(s mode) bool { return q[s] }

type countingViewer struct {
	fixedQuerier
	views int
}

func (v *countingViewer) View(fn func(snapshot.Querier[mode])) {
	v.views++
	fn(v.fixedQuerier)
}

func startBlinky(t *testing.T) *fsmsnap.Machine {
	t.Helper()
	m, err := blinky.New(time.Hour)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, m.Start(ctx))
	t.Cleanup(func() { m.Stop() })
	return m
}

func TestCollectBlinky(t *testing.T) {
	m := startBlinky(t)

	c := NewCollector("test")
	require.NoError(t, Register(c, blinky.BlinkySnapshot, snapshot.Querier[fsmsnap.StateID](m)))

	expected := `
# HELP test_state_active Whether the machine currently occupies the state (1) or not (0).
# TYPE test_state_active gauge
test_state_active{machine="blinky",state="off"} 1
test_state_active{machine="blinky",state="on"} 0
# HELP test_state_mask Snapshot bitmask of the machine's active states.
# TYPE test_state_mask gauge
test_state_mask{machine="blinky"} 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "test_state_active", "test_state_mask"))

	require.NoError(t, m.SendSync(fsmsnap.Event{ID: blinky.EvTimeout}))

	expected = `
# HELP test_state_active Whether the machine currently occupies the state (1) or not (0).
# TYPE test_state_active gauge
test_state_active{machine="blinky",state="off"} 0
test_state_active{machine="blinky",state="on"} 1
# HELP test_state_mask Snapshot bitmask of the machine's active states.
# TYPE test_state_mask gauge
test_state_mask{machine="blinky"} 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "test_state_active", "test_state_mask"))
}

func TestCollectUsesViewWhenAvailable(t *testing.T) {
	table := snapshot.MustTable[mode]("pump", "powered", "standby", "running")
	v := &countingViewer{fixedQuerier: fixedQuerier{"powered": true, "running": true}}

	c := NewCollector("")
	require.NoError(t, Register[mode](c, table, v))

	require.Equal(t, 6, testutil.CollectAndCount(c))
	require.Equal(t, 1, v.views)

	expected := `
# HELP state_mask Snapshot bitmask of the machine's active states.
# TYPE state_mask gauge
state_mask{machine="pump"} 5
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "state_mask"))
}

func TestCollectMaskWordsAreExact(t *testing.T) {
	states := make([]mode, snapshot.MaxStates)
	for i := range states {
		states[i] = mode(fmt.Sprintf("s%d", i))
	}
	table := snapshot.MustTable("wide", states...)

	c := NewCollector("test")
	require.NoError(t, Register[mode](c, table, fixedQuerier{"s0": true, "s63": true}))

	expected := `
# HELP test_state_mask_word Snapshot bitmask split into 32-bit words; word 0 holds offsets 0 to 31.
# TYPE test_state_mask_word gauge
test_state_mask_word{machine="wide",word="0"} 1
test_state_mask_word{machine="wide",word="1"} 2147483648
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "test_state_mask_word"))
}

func TestRegisterDuplicate(t *testing.T) {
	table := snapshot.MustTable[mode]("pump", "on")
	c := NewCollector("test")

	require.NoError(t, Register[mode](c, table, fixedQuerier{}))
	err := Register[mode](c, table, fixedQuerier{})
	require.True(t, errors.Is(err, ErrDuplicateMachine))

	require.True(t, c.Unregister("pump"))
	require.False(t, c.Unregister("pump"))
	require.NoError(t, Register[mode](c, table, fixedQuerier{}))
}

func TestCollectorRegistersWithRegistry(t *testing.T) {
	c := NewCollector("test")
	require.NoError(t, Register[mode](c, snapshot.MustTable[mode]("pump", "on"), fixedQuerier{"on": true}))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 3)
}
