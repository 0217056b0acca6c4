package system

import "time"

// Runner executes systems in phase order each frame. Systems sharing a
// phase run in registration order. The wall time spent in each phase of
// the last frame is kept for diagnostics.
type Runner struct {
	phases [phaseCount][]System
	spent  [phaseCount]time.Duration
	count  int
	now    func() time.Time
}

func NewRunner() *Runner {
	return &Runner{now: time.Now}
}

func (r *Runner) Register(s System) {
	p := s.Phase()
	if p < 0 || p >= phaseCount {
		panic("system: phase out of range: " + p.String())
	}
	r.phases[p] = append(r.phases[p], s)
	r.count++
}

func (r *Runner) Tick(dt time.Duration) {
	for p := Phase(0); p < phaseCount; p++ {
		r.runPhase(p, dt)
	}
}

// TickPhase runs only the systems registered for phase. The frame loop
// uses it to poll input between full frames.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	if phase < 0 || phase >= phaseCount {
		return
	}
	r.runPhase(phase, dt)
}

func (r *Runner) runPhase(p Phase, dt time.Duration) {
	if len(r.phases[p]) == 0 {
		r.spent[p] = 0
		return
	}
	start := r.now()
	for _, s := range r.phases[p] {
		s.Update(dt)
	}
	r.spent[p] = r.now().Sub(start)
}

// Len reports the number of registered systems.
func (r *Runner) Len() int { return r.count }

// Spent returns the wall time phase took the last time it ran.
func (r *Runner) Spent(phase Phase) time.Duration {
	if phase < 0 || phase >= phaseCount {
		return 0
	}
	return r.spent[phase]
}

// Slowest returns the phase that took longest in the last frame.
func (r *Runner) Slowest() (Phase, time.Duration) {
	var (
		slow Phase
		most time.Duration
	)
	for p := Phase(0); p < phaseCount; p++ {
		if r.spent[p] > most {
			slow, most = p, r.spent[p]
		}
	}
	return slow, most
}
