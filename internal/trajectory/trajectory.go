// Package trajectory reconstructs the incumbent history of a search run
// from an optimizer's native logs.
package trajectory

import (
	"github.com/signalnine/autotune/internal/errs"
)

// Point is one incumbent: the configuration the optimizer believed best at
// Time, and its estimated Score.
type Point struct {
	Time  float64 `json:"time"`
	Score float64 `json:"score"`
	Args  string  `json:"args"`
}

// Counters summarise the evaluations of a run. A value of -1 means the
// count was not recorded.
type Counters struct {
	Evaluations int `json:"evaluations"`
	MemOut      int `json:"mem_out"`
	TimeOut     int `json:"time_out"`
}

// Unrecorded returns counters with every value unknown.
func Unrecorded() Counters {
	return Counters{Evaluations: -1, MemOut: -1, TimeOut: -1}
}

// Trajectory is the ordered incumbent history of one seed.
type Trajectory struct {
	Seed     string   `json:"seed"`
	Points   []Point  `json:"points"`
	Counters Counters `json:"counters"`
}

// New returns an empty trajectory with unrecorded counters.
func New(seed string) *Trajectory {
	return &Trajectory{Seed: seed, Points: []Point{}, Counters: Unrecorded()}
}

// AddPoint appends p. Points must arrive in time order.
func (t *Trajectory) AddPoint(p Point) error {
	if n := len(t.Points); n > 0 && t.Points[n-1].Time > p.Time {
		return errs.NewInvalidParameter("time", "point occurs earlier than the previous one", p.Time)
	}
	t.Points = append(t.Points, p)
	return nil
}

// Truncate drops every point found after maxTime.
func (t *Trajectory) Truncate(maxTime float64) {
	kept := t.Points[:0]
	for _, p := range t.Points {
		if p.Time <= maxTime {
			kept = append(kept, p)
		}
	}
	t.Points = kept
}

// PointAt returns the incumbent at time tm: the last point not after tm, or
// the first point when tm precedes them all.
func (t *Trajectory) PointAt(tm float64) (Point, bool) {
	if len(t.Points) == 0 {
		return Point{}, false
	}
	for i := 0; i < len(t.Points)-1; i++ {
		if t.Points[i+1].Time > tm {
			return t.Points[i], true
		}
	}
	return t.Points[len(t.Points)-1], true
}

// Last returns the final incumbent.
func (t *Trajectory) Last() (Point, bool) {
	if len(t.Points) == 0 {
		return Point{}, false
	}
	return t.Points[len(t.Points)-1], true
}

// SetCounters records the evaluation counts once; later calls are ignored.
func (t *Trajectory) SetCounters(c Counters) {
	if t.Counters != Unrecorded() {
		return
	}
	t.Counters = c
}
