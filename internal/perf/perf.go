// Package perf collects receive-side timing statistics: datagram latency,
// sequence gaps, backlog steps, and apply cadence. The receiver folds a
// snapshot into the perf replies it sends back to the reader.
package perf

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/wire"
)

// windowSize bounds the percentile and cadence windows.
const windowSize = 300

// Latencies outside this range come from desynced clocks, not the wire,
// and would poison the percentiles.
const (
	minLatencyMS = -100.0
	maxLatencyMS = 10000.0
)

// welford accumulates lifetime mean and variance in one pass.
type welford struct {
	count int
	mean  float64
	m2    float64
	min   float64
	max   float64
	last  float64
}

func (w *welford) push(x float64) {
	if w.count == 0 || x < w.min {
		w.min = x
	}
	if w.count == 0 || x > w.max {
		w.max = x
	}
	w.last = x
	w.count++
	d := x - w.mean
	w.mean += d / float64(w.count)
	w.m2 += d * (x - w.mean)
}

func (w *welford) stddev() float64 {
	if w.count < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.count-1))
}

// window is a fixed-size ring of recent values.
type window struct {
	buf  []float64
	next int
}

func newWindow(n int) *window {
	return &window{buf: make([]float64, 0, n)}
}

func (w *window) push(x float64) {
	if len(w.buf) < cap(w.buf) {
		w.buf = append(w.buf, x)
		return
	}
	w.buf[w.next] = x
	w.next = (w.next + 1) % len(w.buf)
}

func (w *window) mean() (float64, bool) {
	if len(w.buf) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range w.buf {
		sum += v
	}
	return sum / float64(len(w.buf)), true
}

// sorted returns a sorted copy of the window contents.
func (w *window) sorted() []float64 {
	out := append([]float64(nil), w.buf...)
	sort.Float64s(out)
	return out
}

func percentile(sorted []float64, p float64) float64 {
	return sorted[int(p*float64(len(sorted)-1))]
}

// Tracker holds the running statistics. It is not safe for concurrent
// use; the receiver ticks on a single goroutine.
type Tracker struct {
	latency welford
	latWin  *window

	lastSeq int
	haveSeq bool
	skipped int

	stepsLast int
	stepsSum  int
	stepsN    int
	stepsMax  int

	applyWin     *window
	applyLast    float64
	haveApply    bool
	intervalWin  *window
	intervalLast float64
	lastApplyAt  time.Time
}

func New() *Tracker {
	return &Tracker{
		latWin:      newWindow(windowSize),
		applyWin:    newWindow(windowSize),
		intervalWin: newWindow(windowSize),
	}
}

// RecordSample notes one received sample: its one-way latency (when the
// send stamp is present and plausible) and any gap in its sequence
// number. A sequence that goes backwards means the reader restarted and
// resets the gap tracking without counting a skip.
func (t *Tracker) RecordSample(seq int, sendNS, recvNS int64) {
	if sendNS > 0 {
		ms := float64(recvNS-sendNS) / 1e6
		if ms > minLatencyMS && ms < maxLatencyMS {
			t.latency.push(ms)
			t.latWin.push(ms)
		}
	}
	if seq > 0 {
		if t.haveSeq && seq > t.lastSeq+1 {
			t.skipped += seq - t.lastSeq - 1
		}
		t.lastSeq = seq
		t.haveSeq = true
	}
}

// RecordSteps notes how many queued samples one apply consumed.
func (t *Tracker) RecordSteps(n int) {
	t.stepsLast = n
	t.stepsSum += n
	t.stepsN++
	if n > t.stepsMax {
		t.stepsMax = n
	}
}

// RecordApply notes the duration of one apply and the interval since the
// previous one.
func (t *Tracker) RecordApply(d time.Duration, now time.Time) {
	ms := float64(d) / float64(time.Millisecond)
	t.applyLast = ms
	t.applyWin.push(ms)
	if !t.lastApplyAt.IsZero() {
		iv := float64(now.Sub(t.lastApplyAt)) / float64(time.Millisecond)
		t.intervalLast = iv
		t.intervalWin.push(iv)
	}
	t.lastApplyAt = now
	t.haveApply = true
}

// Skipped returns the number of sequence numbers never seen.
func (t *Tracker) Skipped() int { return t.skipped }

func f64ptr(v float64) *float64 { return &v }

// Snapshot builds the perf reply payload. Fields without data yet stay
// null so the reader's display can tell "no samples" from zero.
func (t *Tracker) Snapshot(recvNS int64) wire.Perf {
	p := wire.Perf{
		Type:             wire.TypePerf,
		TRecvNS:          recvNS,
		BacklogStepsLast: t.stepsLast,
		BacklogStepsMax:  t.stepsMax,
		SkippedSeq:       t.skipped,
	}

	if t.latency.count > 0 {
		p.LatencyLastMS = f64ptr(t.latency.last)
		sorted := t.latWin.sorted()
		if len(sorted) > 0 {
			p.LatencyP50MS = f64ptr(percentile(sorted, 0.50))
			p.LatencyP90MS = f64ptr(percentile(sorted, 0.90))
			p.LatencyP99MS = f64ptr(percentile(sorted, 0.99))
		}
	}

	if t.haveApply {
		p.ApplyLastMS = f64ptr(t.applyLast)
		if iv, ok := t.intervalWin.mean(); ok {
			p.ApplyIntervalLastMS = f64ptr(t.intervalLast)
			if iv > 0 {
				p.ApplyHz = f64ptr(1000 / iv)
			}
		}
	}
	return p
}

// Summary renders the stats for interactive inspection.
func (t *Tracker) Summary() string {
	var b strings.Builder

	if t.latency.count == 0 {
		b.WriteString("latency: no samples\n")
	} else {
		sorted := t.latWin.sorted()
		fmt.Fprintf(&b, "latency ms: last=%.2f p50=%.2f p90=%.2f p99=%.2f\n",
			t.latency.last,
			percentile(sorted, 0.50), percentile(sorted, 0.90), percentile(sorted, 0.99))
		fmt.Fprintf(&b, "            mean=%.2f std=%.2f min=%.2f max=%.2f n=%d\n",
			t.latency.mean, t.latency.stddev(), t.latency.min, t.latency.max, t.latency.count)
	}

	if t.stepsN > 0 {
		fmt.Fprintf(&b, "steps: last=%d max=%d avg=%.2f n=%d\n",
			t.stepsLast, t.stepsMax, float64(t.stepsSum)/float64(t.stepsN), t.stepsN)
	}

	if t.haveApply {
		fmt.Fprintf(&b, "apply ms: last=%.2f", t.applyLast)
		if m, ok := t.applyWin.mean(); ok {
			fmt.Fprintf(&b, " mean=%.2f", m)
		}
		if iv, ok := t.intervalWin.mean(); ok && iv > 0 {
			fmt.Fprintf(&b, " | interval mean=%.2f ms (%.1f Hz)", iv, 1000/iv)
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "skipped seq: %d\n", t.skipped)
	return b.String()
}
