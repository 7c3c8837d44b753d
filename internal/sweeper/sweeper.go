package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/services"
)

// Sweeper periodically abandons sessions that stalled before going
// active, so open slots do not pile up in the matchmaking queue.
type Sweeper struct {
	log      *logger.Logger
	sessions services.SessionService
	cron     *cron.Cron
}

func New(log *logger.Logger, sessions services.SessionService) *Sweeper {
	return &Sweeper{
		log:      log.With("component", "Sweeper"),
		sessions: sessions,
		cron:     cron.New(),
	}
}

func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("@every 5m", s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("Sweeper started", "interval", "5m")
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.sessions.AbandonStale(ctx); err != nil {
		s.log.Warn("Stale session sweep failed", "error", err)
	}
}
