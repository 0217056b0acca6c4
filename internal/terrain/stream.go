package terrain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tim-ings/mmo/internal/coord"
	"github.com/tim-ings/mmo/internal/protocol"
)

// StreamerConfig tunes a Streamer.
type StreamerConfig struct {
	ViewDistance   int // chunks kept around the center, Chebyshev
	StitchPasses   int // Stitch calls after each prune
	MaxConcurrency int // parallel loads per batch, 0 = unbounded
}

// Streamer applies server chunk lists to a Store: load what is listed,
// drop what is out of view, stitch the seams.
type Streamer struct {
	store  *Store
	staged *Staged
	cfg    StreamerConfig
	log    *zap.Logger

	issued atomic.Uint64 // last sequence handed out by Stamp

	mu      sync.Mutex // serializes prune and stitch, guards the fields below
	applied uint64     // sequence of the newest list pruned around
	center  coord.Point
}

// NewStreamer returns a Streamer. staged must be one of the sources the
// store fetches through, so inline defs from chunk lists are found.
func NewStreamer(store *Store, staged *Staged, cfg StreamerConfig, log *zap.Logger) *Streamer {
	if cfg.StitchPasses <= 0 {
		cfg.StitchPasses = 2
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Streamer{store: store, staged: staged, cfg: cfg, log: log}
}

// Stamp hands out the next list sequence number. Call it in arrival
// order, on the goroutine that reads the lists, and pass the result to
// ApplyStamped.
func (s *Streamer) Stamp() uint64 {
	return s.issued.Add(1)
}

// Apply stamps list and applies it. See ApplyStamped.
func (s *Streamer) Apply(ctx context.Context, list *protocol.ChunkList) error {
	return s.ApplyStamped(ctx, s.Stamp(), list)
}

// ApplyStamped loads every listed chunk that is not resident and waits
// for the whole batch. If any load fails the aggregated error is returned
// and prune and stitch are skipped for this batch; chunks that did load
// stay resident. A batch that settles after a newer list has already been
// applied prunes around that newer list's center instead of its own.
func (s *Streamer) ApplyStamped(ctx context.Context, seq uint64, list *protocol.ChunkList) error {
	if s.staged != nil {
		s.staged.Stage(list.Chunks)
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	if s.cfg.MaxConcurrency > 0 {
		g.SetLimit(s.cfg.MaxConcurrency)
	}
	listed := make(map[int]bool, len(list.Chunks))
	ids := make([]int, 0, len(list.Chunks))
	for _, def := range list.Chunks {
		id := def.ID
		if listed[id] {
			continue
		}
		listed[id] = true
		ids = append(ids, id)
		if s.store.Chunk(id) != nil {
			continue
		}
		g.Go(func() error {
			if _, err := s.store.Load(ctx, id); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	waitErr := g.Wait()
	if s.staged != nil {
		s.staged.Forget(ids...)
	}

	if waitErr != nil {
		// Wait keeps only the first failure, errs has every one.
		failed := len(multierr.Errors(errs))
		s.log.Warn("chunk batch failed, skipping prune",
			zap.Uint64("seq", seq),
			zap.Int("listed", len(listed)),
			zap.Int("failed", failed),
			zap.Error(errs),
		)
		return fmt.Errorf("chunk batch: %d of %d failed: %w", failed, len(listed), errs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	center := list.Center
	if seq < s.applied {
		center = s.center
		s.log.Debug("chunk list superseded",
			zap.Uint64("seq", seq),
			zap.Uint64("applied", s.applied),
		)
	} else {
		s.applied, s.center = seq, center
	}

	evicted := s.store.Prune(center, s.cfg.ViewDistance)
	changed := 0
	for i := 0; i < s.cfg.StitchPasses; i++ {
		changed += s.store.Stitch()
	}

	s.log.Info("chunk list applied",
		zap.Uint64("seq", seq),
		zap.Int("listed", len(listed)),
		zap.Int("evicted", len(evicted)),
		zap.Int("resident", s.store.Len()),
		zap.Int("stitched", changed),
	)
	return nil
}
