package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/tim-ings/mmo/internal/core/system"
	"github.com/tim-ings/mmo/internal/world"
)

// StatsSystem periodically logs world population and resident chunks.
// Phase 4 (Cleanup).
type StatsSystem struct {
	world    *world.World
	runner   *coresys.Runner
	interval time.Duration
	elapsed  time.Duration
	frames   int
	log      *zap.Logger
}

// NewStatsSystem logs every interval; runner may be nil.
func NewStatsSystem(w *world.World, runner *coresys.Runner, interval time.Duration, log *zap.Logger) *StatsSystem {
	return &StatsSystem{world: w, runner: runner, interval: interval, log: log}
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *StatsSystem) Update(dt time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.elapsed += dt
	s.frames++
	if s.elapsed < s.interval {
		return
	}
	units, players, items := s.world.Counts()
	chunks := 0
	if st := s.world.Store(); st != nil {
		chunks = st.Len()
	}
	fields := []zap.Field{
		zap.Uint64("tick", s.world.Tick()),
		zap.Stringer("state", s.world.State()),
		zap.Int("units", units),
		zap.Int("players", players),
		zap.Int("ground_items", items),
		zap.Int("chunks", chunks),
		zap.Float64("fps", float64(s.frames)/s.elapsed.Seconds()),
	}
	if s.runner != nil {
		phase, spent := s.runner.Slowest()
		fields = append(fields, zap.Stringer("slowest_phase", phase), zap.Duration("slowest_spent", spent))
	}
	s.log.Info("world stats", fields...)
	s.elapsed = 0
	s.frames = 0
}
