package httpapi

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"signage-monitor/internal/domain"
)

func TestGenerateDeviceExport_RoundTrip(t *testing.T) {
	name := "Lobby"
	seen := time.Date(2026, 8, 30, 4, 0, 25, 0, time.UTC).UnixMilli()
	devices := []domain.CombinedDevice{
		{
			Device: domain.Device{
				Client:     "acme",
				MACAddress: "AA:BB:CC:DD:EE:FF",
				LastSeenMs: &seen,
			},
			DisplayName: &name,
			Status:      domain.StatusOK,
		},
		{
			Device: domain.Device{Client: "acme", MACAddress: "11:22", Warning: true},
			Status: domain.StatusWarning,
		},
	}

	data, err := GenerateDeviceExport(devices)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Devices")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, DeviceExportHeader, rows[0])
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", rows[1][1])
	assert.Equal(t, "Lobby", rows[1][2])
	assert.Equal(t, "2026/08/30 04:00:25", rows[1][9])

	// fields without detail data fall back to the placeholder
	assert.Equal(t, "N/A", rows[2][2])
	assert.Equal(t, domain.StatusWarning, rows[2][10])
}

func TestGenerateDeviceExport_EmptyStillHasHeader(t *testing.T) {
	data, err := GenerateDeviceExport(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Devices")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, DeviceExportHeader, rows[0])
}
