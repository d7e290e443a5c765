package perf

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestLatencyPercentiles(t *testing.T) {
	tr := New()
	// 1..100 ms, evenly spaced.
	for i := 1; i <= 100; i++ {
		send := int64(1000)
		recv := send + int64(i)*int64(time.Millisecond)
		tr.RecordSample(i, send, recv)
	}

	p := tr.Snapshot(0)
	if p.LatencyLastMS == nil || *p.LatencyLastMS != 100 {
		t.Fatalf("latency last = %v, want 100", p.LatencyLastMS)
	}

	cases := []struct {
		name string
		got  *float64
		want float64
	}{
		{"p50", p.LatencyP50MS, 50},
		{"p90", p.LatencyP90MS, 90},
		{"p99", p.LatencyP99MS, 99},
	}
	for _, c := range cases {
		if c.got == nil {
			t.Fatalf("%s is null", c.name)
		}
		// idx = int(p*(n-1)) over sorted [1..100]
		if math.Abs(*c.got-c.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.name, *c.got, c.want)
		}
	}
}

func TestLatencyGuard(t *testing.T) {
	tr := New()
	// Too slow, clock skew, and no stamp at all.
	tr.RecordSample(1, 1000, 1000+int64(11*time.Second))
	tr.RecordSample(2, 1000, 1000-int64(200*time.Millisecond))
	tr.RecordSample(3, 0, 5000)

	if p := tr.Snapshot(0); p.LatencyLastMS != nil {
		t.Fatalf("guarded samples recorded latency %v", *p.LatencyLastMS)
	}
}

func TestSequenceGaps(t *testing.T) {
	tr := New()
	for _, seq := range []int{1, 2, 5, 6} {
		tr.RecordSample(seq, 0, 0)
	}
	if got := tr.Skipped(); got != 2 {
		t.Fatalf("skipped = %d, want 2", got)
	}

	// Reader restart: sequence goes backwards, no gap counted.
	tr.RecordSample(1, 0, 0)
	tr.RecordSample(2, 0, 0)
	if got := tr.Skipped(); got != 2 {
		t.Fatalf("skipped after restart = %d, want 2", got)
	}
}

func TestStepsTracking(t *testing.T) {
	tr := New()
	for _, n := range []int{1, 4, 2} {
		tr.RecordSteps(n)
	}

	p := tr.Snapshot(0)
	if p.BacklogStepsLast != 2 {
		t.Errorf("steps last = %d, want 2", p.BacklogStepsLast)
	}
	if p.BacklogStepsMax != 4 {
		t.Errorf("steps max = %d, want 4", p.BacklogStepsMax)
	}
}

func TestApplyCadence(t *testing.T) {
	tr := New()
	base := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		tr.RecordApply(2*time.Millisecond, base.Add(time.Duration(i)*20*time.Millisecond))
	}

	p := tr.Snapshot(0)
	if p.ApplyLastMS == nil || *p.ApplyLastMS != 2 {
		t.Fatalf("apply last = %v, want 2", p.ApplyLastMS)
	}
	if p.ApplyIntervalLastMS == nil || *p.ApplyIntervalLastMS != 20 {
		t.Fatalf("interval last = %v, want 20", p.ApplyIntervalLastMS)
	}
	if p.ApplyHz == nil || math.Abs(*p.ApplyHz-50) > 1e-9 {
		t.Fatalf("apply hz = %v, want 50", p.ApplyHz)
	}
}

func TestEmptySnapshotNulls(t *testing.T) {
	p := New().Snapshot(42)
	if p.TRecvNS != 42 {
		t.Fatalf("t_recv_ns = %d, want 42", p.TRecvNS)
	}
	if p.LatencyLastMS != nil || p.LatencyP50MS != nil || p.ApplyLastMS != nil || p.ApplyHz != nil {
		t.Fatal("empty tracker produced non-null stats")
	}
}

func TestWindowEviction(t *testing.T) {
	w := newWindow(3)
	for _, v := range []float64{1, 2, 3, 4} {
		w.push(v)
	}
	got := w.sorted()
	want := []float64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("window after eviction = %v, want %v", got, want)
		}
	}
}

func TestSummaryMentionsSkips(t *testing.T) {
	tr := New()
	tr.RecordSample(1, 0, 0)
	tr.RecordSample(4, 0, 0)
	if s := tr.Summary(); !strings.Contains(s, "skipped seq: 2") {
		t.Fatalf("summary %q missing skip count", s)
	}
}
