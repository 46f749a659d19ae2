package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"signage-monitor/internal/domain"
	"signage-monitor/internal/store"
)

// RedisDeviceStore keeps one JSON value per client per view:
// devices:{client}, device_details:{client}, combined_devices:{client},
// plus last_fetch:{feed}:{client} with a shorter TTL.
type RedisDeviceStore struct {
	kv           store.KV
	ttl          time.Duration
	lastFetchTTL time.Duration
	logger       *zap.Logger
}

func NewRedisDeviceStore(kv store.KV, ttl, lastFetchTTL time.Duration, logger *zap.Logger) *RedisDeviceStore {
	return &RedisDeviceStore{
		kv:           kv,
		ttl:          ttl,
		lastFetchTTL: lastFetchTTL,
		logger:       logger,
	}
}

func devicesKey(client string) string  { return fmt.Sprintf("%s:%s", domain.FeedStatus, client) }
func detailsKey(client string) string  { return fmt.Sprintf("%s:%s", domain.FeedDetails, client) }
func combinedKey(client string) string { return fmt.Sprintf("combined_devices:%s", client) }
func lastFetchKey(client, feed string) string {
	return fmt.Sprintf("last_fetch:%s:%s", feed, client)
}

func (s *RedisDeviceStore) ReplaceDevices(ctx context.Context, client string, devices []domain.Device) error {
	return s.putJSON(ctx, devicesKey(client), devices)
}

func (s *RedisDeviceStore) GetDevices(ctx context.Context, client string) ([]domain.Device, error) {
	var devices []domain.Device
	if err := s.getJSON(ctx, devicesKey(client), &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *RedisDeviceStore) ReplaceDetails(ctx context.Context, client string, details map[string]domain.DeviceDetail) error {
	if details == nil {
		details = map[string]domain.DeviceDetail{}
	}
	return s.putJSON(ctx, detailsKey(client), details)
}

func (s *RedisDeviceStore) GetDetails(ctx context.Context, client string) (map[string]domain.DeviceDetail, error) {
	var details map[string]domain.DeviceDetail
	if err := s.getJSON(ctx, detailsKey(client), &details); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *RedisDeviceStore) ReplaceCombined(ctx context.Context, client string, combined []domain.CombinedDevice) error {
	return s.putJSON(ctx, combinedKey(client), combined)
}

func (s *RedisDeviceStore) GetCombined(ctx context.Context, client string) ([]domain.CombinedDevice, error) {
	var combined []domain.CombinedDevice
	if err := s.getJSON(ctx, combinedKey(client), &combined); err != nil {
		return nil, err
	}
	return combined, nil
}

func (s *RedisDeviceStore) SetLastFetch(ctx context.Context, client, feed string, at time.Time) error {
	return s.kv.Set(ctx, lastFetchKey(client, feed), at.UTC().Format(time.RFC3339), s.lastFetchTTL)
}

func (s *RedisDeviceStore) GetLastFetch(ctx context.Context, client, feed string) (time.Time, error) {
	raw, err := s.kv.Get(ctx, lastFetchKey(client, feed))
	if err != nil {
		return time.Time{}, err
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last fetch timestamp: %w", err)
	}
	return at, nil
}

func (s *RedisDeviceStore) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data), s.ttl); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	s.logger.Debug("Cache key written",
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return nil
}

func (s *RedisDeviceStore) getJSON(ctx context.Context, key string, out any) error {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}
