// Package metrics records how long each phase of a csvgraph run takes.
//
// Phases are package-level TimingMetric values updated with atomics, so any
// goroutine can record into them. Collection is on unless CSVGRAPH_METRICS=0.
//
//	defer metrics.Timer(metrics.GraphBuild)()
package metrics

import (
	"math"
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("CSVGRAPH_METRICS") != "0")
}

// Enabled reports whether measurements are being recorded.
func Enabled() bool { return enabled.Load() }

// SetEnabled turns collection on or off.
func SetEnabled(e bool) { enabled.Store(e) }

// TimingMetric accumulates the durations of one phase.
type TimingMetric struct {
	name  string
	count atomic.Int64
	sum   atomic.Int64
	last  atomic.Int64
	hi    atomic.Int64
	lo    atomic.Int64
}

func newTimingMetric(name string) *TimingMetric {
	m := &TimingMetric{name: name}
	m.lo.Store(math.MaxInt64)
	return m
}

// Record adds one measurement. It is a no-op while collection is off.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := int64(d)
	m.count.Add(1)
	m.sum.Add(ns)
	m.last.Store(ns)
	storeIf(&m.hi, ns, func(cur int64) bool { return ns > cur })
	storeIf(&m.lo, ns, func(cur int64) bool { return ns < cur })
}

// storeIf sets v to ns while better(current) holds.
func storeIf(v *atomic.Int64, ns int64, better func(int64) bool) {
	for cur := v.Load(); better(cur); cur = v.Load() {
		if v.CompareAndSwap(cur, ns) {
			return
		}
	}
}

// Name returns the phase name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns how many measurements were recorded.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats snapshots the metric.
func (m *TimingMetric) Stats() TimingStats {
	n := m.count.Load()
	s := TimingStats{Name: m.name, Count: n}
	if n == 0 {
		return s
	}
	sum := m.sum.Load()
	s.TotalMs = ms(sum)
	s.AvgMs = ms(sum / n)
	s.LastMs = ms(m.last.Load())
	s.MaxMs = ms(m.hi.Load())
	s.MinMs = ms(m.lo.Load())
	return s
}

func ms(ns int64) float64 { return float64(ns) / float64(time.Millisecond) }

// Reset discards every measurement.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.sum.Store(0)
	m.last.Store(0)
	m.hi.Store(0)
	m.lo.Store(math.MaxInt64)
}

// TimingStats is a point-in-time view of a TimingMetric.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	LastMs  float64 `json:"last_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts measuring m and returns the function that stops it.
func Timer(m *TimingMetric) func() {
	if m == nil || !Enabled() {
		return func() {}
	}
	start := time.Now()
	return func() { m.Record(time.Since(start)) }
}

// Since records the time elapsed from start into m and returns it, for
// callers that also log the duration.
func Since(m *TimingMetric, start time.Time) time.Duration {
	d := time.Since(start)
	if m != nil {
		m.Record(d)
	}
	return d
}

// Phases of a run, in pipeline order.
var (
	CSVParse   = newTimingMetric("csv_parse")
	Normalize  = newTimingMetric("normalize")
	GraphBuild = newTimingMetric("graph_build")
	Layout     = newTimingMetric("layout")
	Analysis   = newTimingMetric("analysis")
	Render     = newTimingMetric("render")
	Hooks      = newTimingMetric("hooks")
)

// AllTimingMetrics returns every phase in pipeline order.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{CSVParse, Normalize, GraphBuild, Layout, Analysis, Render, Hooks}
}

// ResetAll resets every phase.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
}

// AllTimingStats returns the phases that recorded at least once.
func AllTimingStats() []TimingStats {
	var out []TimingStats
	for _, m := range AllTimingMetrics() {
		if m.Count() > 0 {
			out = append(out, m.Stats())
		}
	}
	return out
}
