package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"signage-monitor/internal/domain"
	"signage-monitor/internal/repository"
	"signage-monitor/internal/store"
)

// timestampLayout matches the display format the dashboard searches against.
const timestampLayout = "2006/01/02 15:04:05"

// summaryMemoTTL bounds how often the per-client summary counts are
// recomputed from the store.
const summaryMemoTTL = 5 * time.Minute

// Params is one read request against the combined view.
type Params struct {
	Client        string
	Search        string
	Status        string // "", "ok", "warning", "error", or "down" (warning-or-error)
	SortField     string
	SortDirection string // "asc" (default) or "desc"
	Page          int    // 1-indexed
	Size          int
}

// Page is one page of combined records plus the total matching count.
// Refreshed is false when the client has no successful fetch yet.
type Page struct {
	Items     []domain.CombinedDevice `json:"items"`
	Total     int                     `json:"total"`
	Page      int                     `json:"page"`
	Size      int                     `json:"size"`
	Refreshed bool                    `json:"refreshed"`
}

// ClientSummary is the dashboard roll-up for one client.
type ClientSummary struct {
	Client   string `json:"client"`
	Total    int    `json:"total"`
	Warnings int    `json:"warnings"`
	Errors   int    `json:"errors"`
}

// LastRefresh reports the most recent successful fetch per feed; nil means
// no successful fetch is on record.
type LastRefresh struct {
	Status  *time.Time `json:"status"`
	Details *time.Time `json:"details"`
}

// Service serves filtered, sorted, paginated views of the stored combined
// records. It is independent of the pipeline's write cadence: every call
// reads whatever the store currently holds.
type Service struct {
	store           repository.DeviceStore
	defaultPageSize int
	logger          *zap.Logger

	memoMu      sync.Mutex
	memoAt      time.Time
	memoSummary []ClientSummary
}

func NewService(deviceStore repository.DeviceStore, defaultPageSize int, logger *zap.Logger) *Service {
	return &Service{
		store:           deviceStore,
		defaultPageSize: defaultPageSize,
		logger:          logger,
	}
}

// Devices returns one page of the client's combined view.
func (s *Service) Devices(ctx context.Context, p Params) (*Page, error) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = s.defaultPageSize
	}

	combined, err := s.store.GetCombined(ctx, p.Client)
	if errors.Is(err, store.ErrMiss) {
		return &Page{Items: []domain.CombinedDevice{}, Page: p.Page, Size: p.Size, Refreshed: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load combined view for %s: %w", p.Client, err)
	}

	filtered := filterStatus(combined, p.Status)
	if term := strings.ToLower(strings.TrimSpace(p.Search)); term != "" {
		matched := filtered[:0:0]
		for _, d := range filtered {
			if matchesSearch(&d, term) {
				matched = append(matched, d)
			}
		}
		filtered = matched
	}

	sortCombined(filtered, p.SortField, p.SortDirection == "desc")

	total := len(filtered)
	start := (p.Page - 1) * p.Size
	if start > total {
		start = total
	}
	end := start + p.Size
	if end > total {
		end = total
	}

	items := filtered[start:end]
	if items == nil {
		items = []domain.CombinedDevice{}
	}

	return &Page{
		Items:     items,
		Total:     total,
		Page:      p.Page,
		Size:      p.Size,
		Refreshed: true,
	}, nil
}

// Summary computes per-client device/warning/error counts across all known
// clients, memoized for a few minutes like the dashboard's cached roll-up.
func (s *Service) Summary(ctx context.Context, clients []string) ([]ClientSummary, error) {
	s.memoMu.Lock()
	defer s.memoMu.Unlock()
	if s.memoSummary != nil && time.Since(s.memoAt) < summaryMemoTTL {
		return s.memoSummary, nil
	}

	summaries := make([]ClientSummary, 0, len(clients))
	for _, client := range clients {
		summary := ClientSummary{Client: client}
		combined, err := s.store.GetCombined(ctx, client)
		if err != nil && !errors.Is(err, store.ErrMiss) {
			return nil, fmt.Errorf("load combined view for %s: %w", client, err)
		}
		for _, d := range combined {
			summary.Total++
			switch d.Status {
			case domain.StatusError:
				summary.Errors++
			case domain.StatusWarning:
				summary.Warnings++
			}
		}
		summaries = append(summaries, summary)
	}

	s.memoSummary = summaries
	s.memoAt = time.Now()
	return summaries, nil
}

// LastRefreshed reports per-feed last-fetch timestamps for one client.
func (s *Service) LastRefreshed(ctx context.Context, client string) (*LastRefresh, error) {
	out := &LastRefresh{}
	if at, err := s.store.GetLastFetch(ctx, client, domain.FeedStatus); err == nil {
		out.Status = &at
	} else if !errors.Is(err, store.ErrMiss) {
		return nil, err
	}
	if at, err := s.store.GetLastFetch(ctx, client, domain.FeedDetails); err == nil {
		out.Details = &at
	} else if !errors.Is(err, store.ErrMiss) {
		return nil, err
	}
	return out, nil
}

func filterStatus(combined []domain.CombinedDevice, status string) []domain.CombinedDevice {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return combined
	}
	out := combined[:0:0]
	for _, d := range combined {
		switch status {
		case "ok":
			if d.Status == domain.StatusOK {
				out = append(out, d)
			}
		case "warning":
			if d.Status == domain.StatusWarning {
				out = append(out, d)
			}
		case "error":
			if d.Status == domain.StatusError {
				out = append(out, d)
			}
		case "down":
			if d.Status != domain.StatusOK {
				out = append(out, d)
			}
		}
	}
	return out
}

// matchesSearch is a case-insensitive substring match over the fixed set of
// textual fields the dashboard displays.
func matchesSearch(d *domain.CombinedDevice, term string) bool {
	fields := []string{
		d.MACAddress,
		strOrEmpty(d.DisplayName),
		strOrEmpty(d.DeviceVersion),
		strOrEmpty(d.SiteName),
		strOrEmpty(d.Model),
		strOrEmpty(d.OperatingSystem),
		strOrEmpty(d.FirmwareVersion),
		formatTime(d.LastReboot),
		formatEpoch(d.LastSeenMs),
		d.Status,
		d.Client,
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// sortCombined is a stable total-order sort over the chosen field. Nulls
// sort last regardless of direction.
func sortCombined(items []domain.CombinedDevice, field string, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, aNull := sortKey(&items[i], field)
		b, bNull := sortKey(&items[j], field)
		if aNull != bNull {
			return bNull
		}
		if a == b {
			return false
		}
		if desc {
			return a > b
		}
		return a < b
	})
}

// sortKey projects a record onto a comparable string for the given field.
// Timestamps use a lexicographically ordered layout so string comparison
// preserves chronological order.
func sortKey(d *domain.CombinedDevice, field string) (key string, null bool) {
	var v *string
	switch field {
	case "display_name":
		v = d.DisplayName
	case "device_version":
		v = d.DeviceVersion
	case "site_name":
		v = d.SiteName
	case "model":
		v = d.Model
	case "operatingSystem":
		v = d.OperatingSystem
	case "firmwareVersion":
		v = d.FirmwareVersion
	case "lastreboot":
		if d.LastReboot == nil {
			return "", true
		}
		return d.LastReboot.UTC().Format(time.RFC3339), false
	case "unixepoch":
		if d.LastSeenMs == nil {
			return "", true
		}
		return fmt.Sprintf("%020d", *d.LastSeenMs), false
	case "status":
		return d.Status, false
	default: // macAddress
		return strings.ToLower(d.MACAddress), false
	}
	if v == nil {
		return "", true
	}
	return strings.ToLower(*v), false
}

func strOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timestampLayout)
}

func formatEpoch(ms *int64) string {
	if ms == nil {
		return ""
	}
	return time.UnixMilli(*ms).UTC().Format(timestampLayout)
}
