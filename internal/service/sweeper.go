package service

import (
	"context"
	"log"
	"time"

	"github.com/reelsmith/api/internal/model"
	"github.com/reelsmith/api/internal/pipeline"
)

// SweeperStore lists projects eligible for a stuck timeout.
type SweeperStore interface {
	StaleProjects(ctx context.Context, cutoff time.Time) ([]model.Project, error)
}

// Sweeper periodically fails projects stalled in a non-terminal status
// past the wall-clock timeout. A failed project keeps its artifacts, so
// a later generate request resumes from where it stopped.
type Sweeper struct {
	store    SweeperStore
	orch     *pipeline.Orchestrator
	timeout  time.Duration
	interval time.Duration
}

func NewSweeper(st SweeperStore, orch *pipeline.Orchestrator, timeout, interval time.Duration) *Sweeper {
	if timeout <= 0 {
		timeout = time.Hour
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{store: st, orch: orch, timeout: timeout, interval: interval}
}

// Run blocks until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.timeout)
	stale, err := s.store.StaleProjects(ctx, cutoff)
	if err != nil {
		log.Printf("sweeper: list stale projects: %v", err)
		return
	}
	for i := range stale {
		p := &stale[i]
		if err := s.orch.MarkStuck(ctx, p.ID, p.UpdatedAt); err != nil {
			log.Printf("sweeper: mark stuck %s: %v", p.ID, err)
			continue
		}
		log.Printf("sweeper: project %s timed out in status %s", p.ID, p.Status)
	}
}
