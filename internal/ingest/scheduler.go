package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"signage-monitor/internal/domain"
	"signage-monitor/internal/repository"
)

// cycleRunner is the pipeline surface the scheduler drives.
type cycleRunner interface {
	RunStatus(ctx context.Context, clients []string)
	RunDetails(ctx context.Context, clients []string)
}

// Scheduler triggers full fetch cycles on two independent cadences: status
// frequently, details less often. A cycle for one feed type never starts
// while the previous cycle for the same feed is still running; overlapping
// ticks are skipped, not queued.
type Scheduler struct {
	pipeline        cycleRunner
	clients         repository.ClientsRepository
	statusInterval  time.Duration
	detailsInterval time.Duration
	logger          *zap.Logger

	statusInFlight  atomic.Bool
	detailsInFlight atomic.Bool
}

func NewScheduler(pipeline cycleRunner, clients repository.ClientsRepository, statusInterval, detailsInterval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		pipeline:        pipeline,
		clients:         clients,
		statusInterval:  statusInterval,
		detailsInterval: detailsInterval,
		logger:          logger,
	}
}

// Run starts both feed loops and blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Starting fetch scheduler",
		zap.Duration("status_interval", s.statusInterval),
		zap.Duration("details_interval", s.detailsInterval),
	)

	go s.loop(ctx, domain.FeedStatus, s.statusInterval, &s.statusInFlight, s.pipeline.RunStatus)
	go s.loop(ctx, domain.FeedDetails, s.detailsInterval, &s.detailsInFlight, s.pipeline.RunDetails)

	<-ctx.Done()
	s.logger.Info("Fetch scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, feed string, interval time.Duration, inFlight *atomic.Bool, run func(context.Context, []string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// first cycle immediately, same suppression rules
	s.tick(ctx, feed, inFlight, run)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, feed, inFlight, run)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, feed string, inFlight *atomic.Bool, run func(context.Context, []string)) {
	if !inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("Previous fetch cycle still running, skipping tick",
			zap.String("feed", feed),
		)
		return
	}

	clients, err := s.clients.ListClients(ctx)
	if err != nil {
		s.logger.Error("Failed to list clients, skipping tick",
			zap.String("feed", feed),
			zap.Error(err),
		)
		inFlight.Store(false)
		return
	}

	go func() {
		defer inFlight.Store(false)
		run(ctx, clients)
	}()
}
