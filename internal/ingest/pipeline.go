package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signage-monitor/internal/domain"
	"signage-monitor/internal/repository"
	"signage-monitor/internal/store"
)

// FeedClient is the upstream API surface the pipeline needs.
type FeedClient interface {
	FetchStatus(ctx context.Context, client string) ([]map[string]any, error)
	FetchDetails(ctx context.Context, client string) ([]map[string]any, error)
}

// Pipeline runs the fetch -> normalize -> reconcile -> store path.
// One client's failure is logged and never stops the rest of the batch; the
// next scheduled tick is the retry mechanism.
type Pipeline struct {
	upstream   FeedClient
	store      repository.DeviceStore
	normalizer *DeviceNormalizer
	logger     *zap.Logger
	now        func() time.Time
}

func NewPipeline(upstream FeedClient, deviceStore repository.DeviceStore, normalizer *DeviceNormalizer, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		upstream:   upstream,
		store:      deviceStore,
		normalizer: normalizer,
		logger:     logger,
		now:        time.Now,
	}
}

// RunStatus fetches the status feed for every client in the batch.
func (p *Pipeline) RunStatus(ctx context.Context, clients []string) {
	cycleID := uuid.NewString()
	log := p.logger.With(zap.String("cycle_id", cycleID), zap.String("feed", domain.FeedStatus))
	log.Info("Fetch cycle started", zap.Strings("clients", clients))

	for _, client := range clients {
		if err := p.refreshStatus(ctx, client); err != nil {
			log.Error("Status fetch failed for client",
				zap.String("client", client),
				zap.Error(err),
			)
		}
	}
	log.Info("Fetch cycle completed")
}

// RunDetails fetches the details feed for every client in the batch.
func (p *Pipeline) RunDetails(ctx context.Context, clients []string) {
	cycleID := uuid.NewString()
	log := p.logger.With(zap.String("cycle_id", cycleID), zap.String("feed", domain.FeedDetails))
	log.Info("Fetch cycle started", zap.Strings("clients", clients))

	for _, client := range clients {
		if err := p.refreshDetails(ctx, client); err != nil {
			log.Error("Details fetch failed for client",
				zap.String("client", client),
				zap.Error(err),
			)
		}
	}
	log.Info("Fetch cycle completed")
}

// RefreshClient runs both feeds for a single client, synchronously. This is
// the manual on-demand refresh invoked from the read path; it funnels
// through the same per-client logic as the scheduled cycles.
func (p *Pipeline) RefreshClient(ctx context.Context, client string) error {
	statusErr := p.refreshStatus(ctx, client)
	detailsErr := p.refreshDetails(ctx, client)
	return errors.Join(statusErr, detailsErr)
}

// refreshStatus replaces the client's device set and refreshes the combined
// view against whatever detail set is currently stored.
func (p *Pipeline) refreshStatus(ctx context.Context, client string) error {
	raw, err := p.upstream.FetchStatus(ctx, client)
	if err != nil {
		return err
	}

	devices := p.normalizer.NormalizeBatch(client, raw, p.now())
	if err := p.store.ReplaceDevices(ctx, client, devices); err != nil {
		return err
	}
	if err := p.store.SetLastFetch(ctx, client, domain.FeedStatus, p.now()); err != nil {
		return err
	}

	details, err := p.store.GetDetails(ctx, client)
	if err != nil && !errors.Is(err, store.ErrMiss) {
		return err
	}
	if err := p.store.ReplaceCombined(ctx, client, Reconcile(devices, details)); err != nil {
		return err
	}

	p.logger.Info("Devices stored for client",
		zap.String("client", client),
		zap.Int("stored_count", len(devices)),
	)
	return nil
}

// refreshDetails replaces the client's detail set, then re-reconciles
// against the most recently stored device set.
func (p *Pipeline) refreshDetails(ctx context.Context, client string) error {
	raw, err := p.upstream.FetchDetails(ctx, client)
	if err != nil {
		return err
	}

	details := NormalizeDetails(client, raw, p.logger)
	if err := p.store.ReplaceDetails(ctx, client, details); err != nil {
		return err
	}

	devices, err := p.store.GetDevices(ctx, client)
	if err != nil && !errors.Is(err, store.ErrMiss) {
		return err
	}
	if err := p.store.ReplaceCombined(ctx, client, Reconcile(devices, details)); err != nil {
		return err
	}
	if err := p.store.SetLastFetch(ctx, client, domain.FeedDetails, p.now()); err != nil {
		return err
	}

	p.logger.Info("Device details stored for client",
		zap.String("client", client),
		zap.Int("stored_count", len(details)),
		zap.Int("combined_count", len(devices)),
	)
	return nil
}
