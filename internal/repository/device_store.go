package repository

import (
	"context"
	"time"

	"signage-monitor/internal/domain"
)

// DeviceStore is the storage contract shared by the fetch pipeline and the
// query service. Two implementations: Redis (ephemeral, TTL-bounded) and
// Postgres (durable). Every operation is partitioned by client; concurrent
// writers for different clients never contend.
//
// Reads return store.ErrMiss when the client has never been fetched; the
// query boundary maps that to a "not yet refreshed" response.
type DeviceStore interface {
	// ReplaceDevices overwrites the client's full device set. A reader sees
	// either the old set or the new one, never a partial write.
	ReplaceDevices(ctx context.Context, client string, devices []domain.Device) error
	GetDevices(ctx context.Context, client string) ([]domain.Device, error)

	// ReplaceDetails overwrites the client's detail mapping (canonical MAC
	// -> detail record).
	ReplaceDetails(ctx context.Context, client string, details map[string]domain.DeviceDetail) error
	GetDetails(ctx context.Context, client string) (map[string]domain.DeviceDetail, error)

	// ReplaceCombined persists the reconciled view. Backends that can derive
	// the view at read time may treat this as a no-op.
	ReplaceCombined(ctx context.Context, client string, combined []domain.CombinedDevice) error
	GetCombined(ctx context.Context, client string) ([]domain.CombinedDevice, error)

	// Last-fetch bookkeeping, one value per client per feed. Overwritten on
	// success, left stale on failure.
	SetLastFetch(ctx context.Context, client, feed string, at time.Time) error
	GetLastFetch(ctx context.Context, client, feed string) (time.Time, error)
}

// ClientsRepository lists the tenants whose devices are tracked.
type ClientsRepository interface {
	ListClients(ctx context.Context) ([]string, error)
}
