package domain

import (
	"strings"
	"time"
)

// Feed identifiers used for last-fetch bookkeeping. The values double as
// Redis key prefixes, so they match the cache key names.
const (
	FeedStatus  = "devices"
	FeedDetails = "device_details"
)

// Status labels derived from the warning/error flags.
const (
	StatusOK      = "OK"
	StatusWarning = "Warning"
	StatusError   = "Error"
)

// Device is one row of the status feed after normalization.
// JSON tags match the upstream field names so cached payloads stay readable
// next to the raw feed.
type Device struct {
	Client          string     `json:"client"`
	OperatingSystem *string    `json:"operatingSystem"`
	MACAddress      string     `json:"macAddress"`
	Model           *string    `json:"model"`
	FirmwareVersion *string    `json:"firmwareVersion"`
	Screenshot      *string    `json:"screenshot"`
	Oopsscreen      *bool      `json:"oopsscreen"`
	LastReboot      *time.Time `json:"lastreboot"`
	// LastSeenMs is the last-seen instant in epoch milliseconds. Upstream is
	// inconsistent about seconds vs milliseconds; normalization converts to
	// milliseconds before this struct is built.
	LastSeenMs *int64 `json:"unixepoch"`
	Warning    bool   `json:"warning"`
	Error      bool   `json:"error"`
}

// DeviceDetail is one row of the details feed, keyed by canonical MAC.
type DeviceDetail struct {
	MACAddress    string  `json:"macAddress"`
	DisplayID     *string `json:"display_id"`
	DisplayName   *string `json:"display_name"`
	DeviceID      *string `json:"device_id"`
	DeviceName    *string `json:"device_name"`
	DeviceVersion *string `json:"device_version"`
	SiteID        *string `json:"site_id"`
	SiteName      *string `json:"site_name"`
	AppGeometry   *string `json:"app_geometry"`
	AppID         *string `json:"app_id"`
	AppName       *string `json:"app_name"`
	AppPackage    *string `json:"app_package"`
	AppVersion    *string `json:"app_version"`
	IPAddress     *string `json:"ip_address"`
	UserID        *string `json:"user_id"`
	UserName      *string `json:"user_name"`
	// DisplayInfo is an opaque blob (masterip, index, screen layout, ...).
	// Stored and served as-is, never interpreted.
	DisplayInfo map[string]any `json:"display_info,omitempty"`
}

// CombinedDevice is the left join of a Device with its matching detail
// record, the unit served to readers. Detail fields stay nil when the
// details feed has no entry for the device's MAC.
type CombinedDevice struct {
	Device
	DisplayName   *string `json:"display_name"`
	DeviceVersion *string `json:"device_version"`
	SiteName      *string `json:"site_name"`
	Status        string  `json:"status"`
}

// CanonicalMAC normalizes a hardware identifier to the join-key form:
// uppercase, surrounding whitespace trimmed.
func CanonicalMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}

// StatusOf maps the health flags to the display label.
func StatusOf(warning, hasError bool) string {
	if hasError {
		return StatusError
	}
	if warning {
		return StatusWarning
	}
	return StatusOK
}
