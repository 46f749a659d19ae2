package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"signage-monitor/internal/domain"
	"signage-monitor/internal/store"
)

// fakeFeedClient serves canned payloads per client and records calls.
type fakeFeedClient struct {
	statusPayloads  map[string][]map[string]any
	detailsPayloads map[string][]map[string]any
	statusErrs      map[string]error
	detailsErrs     map[string]error
	statusCalls     []string
	detailsCalls    []string
}

func newFakeFeedClient() *fakeFeedClient {
	return &fakeFeedClient{
		statusPayloads:  map[string][]map[string]any{},
		detailsPayloads: map[string][]map[string]any{},
		statusErrs:      map[string]error{},
		detailsErrs:     map[string]error{},
	}
}

func (f *fakeFeedClient) FetchStatus(ctx context.Context, client string) ([]map[string]any, error) {
	f.statusCalls = append(f.statusCalls, client)
	if err := f.statusErrs[client]; err != nil {
		return nil, err
	}
	return f.statusPayloads[client], nil
}

func (f *fakeFeedClient) FetchDetails(ctx context.Context, client string) ([]map[string]any, error) {
	f.detailsCalls = append(f.detailsCalls, client)
	if err := f.detailsErrs[client]; err != nil {
		return nil, err
	}
	return f.detailsPayloads[client], nil
}

// fakeDeviceStore is an in-memory DeviceStore for pipeline tests.
type fakeDeviceStore struct {
	mu        sync.Mutex
	devices   map[string][]domain.Device
	details   map[string]map[string]domain.DeviceDetail
	combined  map[string][]domain.CombinedDevice
	lastFetch map[string]time.Time
	failPut   error
}

func newFakeDeviceStore() *fakeDeviceStore {
	return &fakeDeviceStore{
		devices:   map[string][]domain.Device{},
		details:   map[string]map[string]domain.DeviceDetail{},
		combined:  map[string][]domain.CombinedDevice{},
		lastFetch: map[string]time.Time{},
	}
}

func (f *fakeDeviceStore) ReplaceDevices(ctx context.Context, client string, devices []domain.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return f.failPut
	}
	f.devices[client] = devices
	return nil
}

func (f *fakeDeviceStore) GetDevices(ctx context.Context, client string) ([]domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	devices, ok := f.devices[client]
	if !ok {
		return nil, store.ErrMiss
	}
	return devices, nil
}

func (f *fakeDeviceStore) ReplaceDetails(ctx context.Context, client string, details map[string]domain.DeviceDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return f.failPut
	}
	f.details[client] = details
	return nil
}

func (f *fakeDeviceStore) GetDetails(ctx context.Context, client string) (map[string]domain.DeviceDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	details, ok := f.details[client]
	if !ok {
		return nil, store.ErrMiss
	}
	return details, nil
}

func (f *fakeDeviceStore) ReplaceCombined(ctx context.Context, client string, combined []domain.CombinedDevice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return f.failPut
	}
	f.combined[client] = combined
	return nil
}

func (f *fakeDeviceStore) GetCombined(ctx context.Context, client string) ([]domain.CombinedDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	combined, ok := f.combined[client]
	if !ok {
		return nil, store.ErrMiss
	}
	return combined, nil
}

func (f *fakeDeviceStore) SetLastFetch(ctx context.Context, client, feed string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFetch[feed+":"+client] = at
	return nil
}

func (f *fakeDeviceStore) GetLastFetch(ctx context.Context, client, feed string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.lastFetch[feed+":"+client]
	if !ok {
		return time.Time{}, store.ErrMiss
	}
	return at, nil
}

var errUpstreamDown = errors.New("upstream down")
