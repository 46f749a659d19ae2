package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"signage-monitor/internal/domain"
)

// DeviceExportHeader column order of the dashboard export.
var DeviceExportHeader = []string{
	"Client",
	"MAC Address",
	"Display Name",
	"Site Name",
	"Device Version",
	"Model",
	"Operating System",
	"Firmware Version",
	"Last Reboot",
	"Last Seen",
	"Status",
}

// GenerateDeviceExport renders the combined device list as an Excel
// workbook. Empty input still produces a sheet with the header row.
func GenerateDeviceExport(devices []domain.CombinedDevice) ([]byte, error) {
	f := excelize.NewFile()
	// Note: don't defer Close() here, WriteTo needs the file open

	sheetName := "Devices"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range DeviceExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, d := range devices {
		values := []any{
			d.Client,
			d.MACAddress,
			exportString(d.DisplayName),
			exportString(d.SiteName),
			exportString(d.DeviceVersion),
			exportString(d.Model),
			exportString(d.OperatingSystem),
			exportString(d.FirmwareVersion),
			exportTime(d.LastReboot),
			exportEpoch(d.LastSeenMs),
			d.Status,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "K", 20)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func exportString(v *string) string {
	if v == nil {
		return "N/A"
	}
	return *v
}

func exportTime(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("2006/01/02 15:04:05")
}

func exportEpoch(ms *int64) string {
	if ms == nil {
		return "N/A"
	}
	return time.UnixMilli(*ms).UTC().Format("2006/01/02 15:04:05")
}
