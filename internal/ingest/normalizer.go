package ingest

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"signage-monitor/internal/domain"
)

// DeviceNormalizer converts raw status-feed records into Device records and
// computes health flags from elapsed time.
type DeviceNormalizer struct {
	warningThreshold time.Duration
	errorThreshold   time.Duration
	logger           *zap.Logger
}

func NewDeviceNormalizer(warningThreshold, errorThreshold time.Duration, logger *zap.Logger) *DeviceNormalizer {
	return &DeviceNormalizer{
		warningThreshold: warningThreshold,
		errorThreshold:   errorThreshold,
		logger:           logger,
	}
}

// NormalizeBatch converts one feed payload. Records without a MAC address
// are skipped and logged; one bad record never aborts the batch.
func (n *DeviceNormalizer) NormalizeBatch(client string, raw []map[string]any, now time.Time) []domain.Device {
	nowMs := now.UnixMilli()
	devices := make([]domain.Device, 0, len(raw))
	for _, rec := range raw {
		mac := stringField(rec, "macAddress")
		if mac == nil || strings.TrimSpace(*mac) == "" {
			n.logger.Warn("Skipping device without macAddress",
				zap.String("client", client),
			)
			continue
		}

		lastSeen := epochMillis(rec["unixepoch"])
		d := domain.Device{
			Client:          client,
			OperatingSystem: stringField(rec, "operatingSystem"),
			MACAddress:      *mac,
			Model:           stringField(rec, "model"),
			FirmwareVersion: stringField(rec, "firmwareVersion"),
			Screenshot:      stringField(rec, "screenshot"),
			Oopsscreen:      boolField(rec, "oopsscreen"),
			LastReboot:      timeField(rec, "lastreboot"),
			LastSeenMs:      lastSeen,
			Warning:         lastSeen == nil || nowMs-*lastSeen > n.warningThreshold.Milliseconds(),
			Error:           lastSeen == nil || nowMs-*lastSeen > n.errorThreshold.Milliseconds(),
		}
		if v := stringField(rec, "client"); v != nil && *v != "" {
			d.Client = *v
		}
		devices = append(devices, d)
	}
	return devices
}

// NormalizeDetails converts the details feed into a mapping keyed by
// canonical MAC. Duplicate MACs resolve last-write-wins. Records without a
// device_macaddress are skipped and logged.
func NormalizeDetails(client string, raw []map[string]any, logger *zap.Logger) map[string]domain.DeviceDetail {
	details := make(map[string]domain.DeviceDetail, len(raw))
	for _, rec := range raw {
		mac := stringField(rec, "device_macaddress")
		if mac == nil || domain.CanonicalMAC(*mac) == "" {
			logger.Warn("Skipping device detail without macaddress",
				zap.String("client", client),
			)
			continue
		}
		key := domain.CanonicalMAC(*mac)
		detail := domain.DeviceDetail{
			MACAddress:    key,
			DisplayID:     stringField(rec, "display_id"),
			DisplayName:   stringField(rec, "display_name"),
			DeviceID:      stringField(rec, "device_id"),
			DeviceName:    stringField(rec, "device_name"),
			DeviceVersion: stringField(rec, "device_version"),
			SiteID:        stringField(rec, "site_id"),
			SiteName:      stringField(rec, "site_name"),
			AppGeometry:   stringField(rec, "app_geometry"),
			AppID:         stringField(rec, "app_id"),
			AppName:       stringField(rec, "app_name"),
			AppPackage:    stringField(rec, "app_package"),
			AppVersion:    stringField(rec, "app_version"),
			IPAddress:     stringField(rec, "ip_address"),
			UserID:        stringField(rec, "user_id"),
			UserName:      stringField(rec, "user_name"),
		}
		if info, ok := rec["display_info"].(map[string]any); ok {
			detail.DisplayInfo = info
		}
		details[key] = detail
	}
	return details
}

// stringField extracts an optional string value. Numbers are passed through
// as their decimal form because the upstream sometimes stringifies them and
// sometimes does not.
func stringField(rec map[string]any, key string) *string {
	switch v := rec[key].(type) {
	case string:
		return &v
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}

// boolField extracts the tri-state oops-screen flag: true/false when the
// value is a boolean or a "true"/"false" string, nil for anything else
// ("N/A", blank, absent).
func boolField(rec map[string]any, key string) *bool {
	switch v := rec[key].(type) {
	case bool:
		return &v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			b := true
			return &b
		case "false":
			b := false
			return &b
		}
	}
	return nil
}

// timeField parses an ISO-8601-ish timestamp. Parse failure is a per-record
// concern: the field becomes nil instead of aborting the record.
func timeField(rec map[string]any, key string) *time.Time {
	s, ok := rec[key].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// epochMillis normalizes the ambiguous last-seen value to milliseconds.
// Upstream sends epoch seconds or milliseconds, as a number or a string.
// Values with more than ten decimal digits are already milliseconds;
// shorter values are seconds.
func epochMillis(v any) *int64 {
	var n int64
	switch t := v.(type) {
	case float64:
		n = int64(t)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	if n <= 0 {
		return nil
	}
	if n < 1e10 {
		n *= 1000
	}
	return &n
}
