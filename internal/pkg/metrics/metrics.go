package metrics

import (
	"sync"
	"time"
)

// Summary is the aggregate view of one timing series.
type Summary struct {
	Count  int     `json:"count"`
	MeanMS float64 `json:"mean_ms"`
	MinMS  float64 `json:"min_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// Recorder collects named latency series. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	series map[string]*series
}

type series struct {
	count int
	total time.Duration
	min   time.Duration
	max   time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{series: make(map[string]*series)}
}

func (r *Recorder) Observe(name string, d time.Duration) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.series[name]
	if s == nil {
		s = &series{min: d, max: d}
		r.series[name] = s
	}
	s.count++
	s.total += d
	if d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
}

// Timer returns a stop function that records the elapsed time under name.
func (r *Recorder) Timer(name string) func() {
	start := time.Now()
	return func() {
		r.Observe(name, time.Since(start))
	}
}

func (r *Recorder) Snapshot() map[string]Summary {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Summary, len(r.series))
	for name, s := range r.series {
		out[name] = Summary{
			Count:  s.count,
			MeanMS: float64(s.total.Microseconds()) / float64(s.count) / 1000,
			MinMS:  float64(s.min.Microseconds()) / 1000,
			MaxMS:  float64(s.max.Microseconds()) / 1000,
		}
	}
	return out
}
