package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-monitor/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestReconcile_AttachesMatchingDetail(t *testing.T) {
	devices := []domain.Device{
		{Client: "acme", MACAddress: "AA:BB"},
		{Client: "acme", MACAddress: "CC:DD"},
	}
	details := map[string]domain.DeviceDetail{
		"AA:BB": {MACAddress: "AA:BB", DisplayName: strPtr("Lobby"), SiteName: strPtr("HQ")},
	}

	combined := Reconcile(devices, details)
	require.Len(t, combined, 2)

	require.NotNil(t, combined[0].DisplayName)
	assert.Equal(t, "Lobby", *combined[0].DisplayName)
	require.NotNil(t, combined[0].SiteName)
	assert.Equal(t, "HQ", *combined[0].SiteName)

	// unmatched device keeps placeholder nils
	assert.Nil(t, combined[1].DisplayName)
	assert.Nil(t, combined[1].DeviceVersion)
	assert.Nil(t, combined[1].SiteName)
}

func TestReconcile_LeftJoinCardinality(t *testing.T) {
	devices := []domain.Device{
		{MACAddress: "AA:BB"},
		{MACAddress: "CC:DD"},
		{MACAddress: "EE:FF"},
	}

	// empty mapping
	assert.Len(t, Reconcile(devices, nil), 3)

	// details for unknown devices are dropped, not device-creating
	details := map[string]domain.DeviceDetail{
		"11:22": {MACAddress: "11:22", DisplayName: strPtr("ghost")},
	}
	combined := Reconcile(devices, details)
	assert.Len(t, combined, 3)
	for _, c := range combined {
		assert.Nil(t, c.DisplayName)
	}
}

func TestReconcile_JoinUsesCanonicalMAC(t *testing.T) {
	devices := []domain.Device{
		{MACAddress: " aa:bb "}, // raw, uncanonicalized feed value
	}
	details := map[string]domain.DeviceDetail{
		"AA:BB": {MACAddress: "AA:BB", DisplayName: strPtr("Lobby")},
	}

	combined := Reconcile(devices, details)
	require.Len(t, combined, 1)
	require.NotNil(t, combined[0].DisplayName)
	assert.Equal(t, "Lobby", *combined[0].DisplayName)
}

func TestReconcile_DerivedStatusLabel(t *testing.T) {
	devices := []domain.Device{
		{MACAddress: "A"},
		{MACAddress: "B", Warning: true},
		{MACAddress: "C", Warning: true, Error: true},
	}

	combined := Reconcile(devices, nil)
	require.Len(t, combined, 3)
	assert.Equal(t, domain.StatusOK, combined[0].Status)
	assert.Equal(t, domain.StatusWarning, combined[1].Status)
	assert.Equal(t, domain.StatusError, combined[2].Status)
}

func TestReconcile_Idempotent(t *testing.T) {
	devices := []domain.Device{
		{Client: "acme", MACAddress: "AA:BB", Warning: true},
		{Client: "acme", MACAddress: "CC:DD"},
	}
	details := map[string]domain.DeviceDetail{
		"AA:BB": {MACAddress: "AA:BB", DisplayName: strPtr("Lobby")},
	}

	first, err := json.Marshal(Reconcile(devices, details))
	require.NoError(t, err)
	second, err := json.Marshal(Reconcile(devices, details))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
