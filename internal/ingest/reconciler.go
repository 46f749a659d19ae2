package ingest

import (
	"signage-monitor/internal/domain"
)

// Reconcile left-joins the device list with the detail mapping by canonical
// MAC. Every device yields exactly one combined entry; details without a
// matching device are dropped (a detail record is an attachment to a known
// device, not device-creating). Linear in devices + details.
func Reconcile(devices []domain.Device, details map[string]domain.DeviceDetail) []domain.CombinedDevice {
	combined := make([]domain.CombinedDevice, 0, len(devices))
	for _, d := range devices {
		entry := domain.CombinedDevice{
			Device: d,
			Status: domain.StatusOf(d.Warning, d.Error),
		}
		if detail, ok := details[domain.CanonicalMAC(d.MACAddress)]; ok {
			entry.DisplayName = detail.DisplayName
			entry.DeviceVersion = detail.DeviceVersion
			entry.SiteName = detail.SiteName
		}
		combined = append(combined, entry)
	}
	return combined
}
