// Package promsnap exports state machine snapshots as Prometheus metrics.
package promsnap

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/librescoot/fsmsnap/snapshot"
)

// ErrDuplicateMachine is returned when a machine name is registered twice.
var ErrDuplicateMachine = errors.New("machine already registered")

// source reads one machine; it hides the machine's state type.
type source struct {
	states []string
	read   func() snapshot.Mask
}

// Collector reads every registered machine on each scrape and reports one
// 0/1 gauge per enumerated state plus the raw mask. A float64 gauge holds
// the mask exactly only below 2^53, so the mask is also reported as two
// 32-bit words.
type Collector struct {
	activeDesc *prometheus.Desc
	maskDesc   *prometheus.Desc
	wordDesc   *prometheus.Desc

	mu       sync.RWMutex
	machines map[string]source
}

// NewCollector creates a collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		activeDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "state", "active"),
			"Whether the machine currently occupies the state (1) or not (0).",
			[]string{"machine", "state"}, nil,
		),
		maskDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "state", "mask"),
			"Snapshot bitmask of the machine's active states.",
			[]string{"machine"}, nil,
		),
		wordDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "state", "mask_word"),
			"Snapshot bitmask split into 32-bit words; word 0 holds offsets 0 to 31.",
			[]string{"machine", "word"}, nil,
		),
		machines: make(map[string]source),
	}
}

// Register adds a machine under the table's name. If q also implements
// snapshot.Viewer, every scrape reads the machine inside a single view.
func Register[S ~string](c *Collector, table *snapshot.Table[S], q snapshot.Querier[S]) error {
	read := func() snapshot.Mask { return table.Read(q) }
	if v, ok := q.(snapshot.Viewer[S]); ok {
		read = func() snapshot.Mask { return table.ReadView(v) }
	}

	states := make([]string, table.Len())
	for i, s := range table.States() {
		states[i] = string(s)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.machines[table.Name()]; ok {
		return fmt.Errorf("register %q: %w", table.Name(), ErrDuplicateMachine)
	}
	c.machines[table.Name()] = source{states: states, read: read}
	return nil
}

// Unregister removes a machine. It reports whether the machine was registered.
func (c *Collector) Unregister(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.machines[name]
	delete(c.machines, name)
	return ok
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeDesc
	ch <- c.maskDesc
	ch <- c.wordDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	names := make([]string, 0, len(c.machines))
	sources := make(map[string]source, len(c.machines))
	for name, src := range c.machines {
		names = append(names, name)
		sources[name] = src
	}
	c.mu.RUnlock()

	sort.Strings(names)
	for _, name := range names {
		src := sources[name]
		mask := src.read()

		ch <- prometheus.MustNewConstMetric(c.maskDesc, prometheus.GaugeValue, float64(mask), name)
		ch <- prometheus.MustNewConstMetric(c.wordDesc, prometheus.GaugeValue, float64(uint32(mask)), name, "0")
		ch <- prometheus.MustNewConstMetric(c.wordDesc, prometheus.GaugeValue, float64(uint32(mask>>32)), name, "1")
		for i, state := range src.states {
			v := 0.0
			if mask.Has(i) {
				v = 1
			}
			ch <- prometheus.MustNewConstMetric(c.activeDesc, prometheus.GaugeValue, v, name, state)
		}
	}
}
