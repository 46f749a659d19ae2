package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"signage-monitor/internal/domain"
	"signage-monitor/internal/store"
)

// PostgresDeviceStore is the durable backend: devices and device_details
// tables partitioned by client, delete-then-insert per fetch cycle inside a
// transaction. The combined view is derivable, so it is served by a LEFT
// JOIN at read time and ReplaceCombined is a no-op.
type PostgresDeviceStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresDeviceStore(db *sql.DB, logger *zap.Logger) *PostgresDeviceStore {
	return &PostgresDeviceStore{db: db, logger: logger}
}

func (s *PostgresDeviceStore) ReplaceDevices(ctx context.Context, client string, devices []domain.Device) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace devices: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE client = $1`, client); err != nil {
		return fmt.Errorf("delete devices for %s: %w", client, err)
	}

	const insert = `
		INSERT INTO devices
			(client, operating_system, mac_address, model, firmware_version,
			 screenshot, oopsscreen, lastreboot, unixepoch, warning, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, d := range devices {
		_, err := tx.ExecContext(ctx, insert,
			d.Client,
			nullString(d.OperatingSystem),
			d.MACAddress,
			nullString(d.Model),
			nullString(d.FirmwareVersion),
			nullString(d.Screenshot),
			nullBool(d.Oopsscreen),
			nullTime(d.LastReboot),
			nullInt64(d.LastSeenMs),
			d.Warning,
			d.Error,
		)
		if err != nil {
			return fmt.Errorf("insert device %s: %w", d.MACAddress, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace devices: %w", err)
	}
	return nil
}

const deviceColumns = `client, operating_system, mac_address, model, firmware_version,
	screenshot, oopsscreen, lastreboot, unixepoch, warning, error`

func (s *PostgresDeviceStore) GetDevices(ctx context.Context, client string) ([]domain.Device, error) {
	if _, err := s.GetLastFetch(ctx, client, domain.FeedStatus); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE client = $1 ORDER BY id`, client)
	if err != nil {
		return nil, fmt.Errorf("query devices for %s: %w", client, err)
	}
	defer rows.Close()

	devices := []domain.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (s *PostgresDeviceStore) ReplaceDetails(ctx context.Context, client string, details map[string]domain.DeviceDetail) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace details: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM device_details WHERE client = $1`, client); err != nil {
		return fmt.Errorf("delete details for %s: %w", client, err)
	}

	const insert = `
		INSERT INTO device_details
			(client, mac_address, display_id, display_name, device_id, device_name,
			 device_version, site_id, site_name, app_geometry, app_id, app_name,
			 app_package, app_version, ip_address, user_id, user_name, display_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	for _, detail := range details {
		var info sql.NullString
		if detail.DisplayInfo != nil {
			data, err := json.Marshal(detail.DisplayInfo)
			if err != nil {
				return fmt.Errorf("marshal display_info for %s: %w", detail.MACAddress, err)
			}
			info = sql.NullString{String: string(data), Valid: true}
		}
		_, err := tx.ExecContext(ctx, insert,
			client,
			detail.MACAddress,
			nullString(detail.DisplayID),
			nullString(detail.DisplayName),
			nullString(detail.DeviceID),
			nullString(detail.DeviceName),
			nullString(detail.DeviceVersion),
			nullString(detail.SiteID),
			nullString(detail.SiteName),
			nullString(detail.AppGeometry),
			nullString(detail.AppID),
			nullString(detail.AppName),
			nullString(detail.AppPackage),
			nullString(detail.AppVersion),
			nullString(detail.IPAddress),
			nullString(detail.UserID),
			nullString(detail.UserName),
			info,
		)
		if err != nil {
			return fmt.Errorf("insert detail %s: %w", detail.MACAddress, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace details: %w", err)
	}
	return nil
}

func (s *PostgresDeviceStore) GetDetails(ctx context.Context, client string) (map[string]domain.DeviceDetail, error) {
	if _, err := s.GetLastFetch(ctx, client, domain.FeedDetails); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT mac_address, display_id, display_name, device_id, device_name,
		       device_version, site_id, site_name, app_geometry, app_id, app_name,
		       app_package, app_version, ip_address, user_id, user_name, display_info
		FROM device_details WHERE client = $1`, client)
	if err != nil {
		return nil, fmt.Errorf("query details for %s: %w", client, err)
	}
	defer rows.Close()

	details := map[string]domain.DeviceDetail{}
	for rows.Next() {
		var d domain.DeviceDetail
		var displayID, displayName, deviceID, deviceName, deviceVersion sql.NullString
		var siteID, siteName, appGeometry, appID, appName sql.NullString
		var appPackage, appVersion, ipAddress, userID, userName, info sql.NullString
		if err := rows.Scan(&d.MACAddress, &displayID, &displayName, &deviceID, &deviceName,
			&deviceVersion, &siteID, &siteName, &appGeometry, &appID, &appName,
			&appPackage, &appVersion, &ipAddress, &userID, &userName, &info); err != nil {
			return nil, fmt.Errorf("scan detail: %w", err)
		}
		d.DisplayID = ptrString(displayID)
		d.DisplayName = ptrString(displayName)
		d.DeviceID = ptrString(deviceID)
		d.DeviceName = ptrString(deviceName)
		d.DeviceVersion = ptrString(deviceVersion)
		d.SiteID = ptrString(siteID)
		d.SiteName = ptrString(siteName)
		d.AppGeometry = ptrString(appGeometry)
		d.AppID = ptrString(appID)
		d.AppName = ptrString(appName)
		d.AppPackage = ptrString(appPackage)
		d.AppVersion = ptrString(appVersion)
		d.IPAddress = ptrString(ipAddress)
		d.UserID = ptrString(userID)
		d.UserName = ptrString(userName)
		if info.Valid {
			_ = json.Unmarshal([]byte(info.String), &d.DisplayInfo)
		}
		details[d.MACAddress] = d
	}
	return details, rows.Err()
}

// ReplaceCombined is a no-op: GetCombined derives the view with a LEFT JOIN.
func (s *PostgresDeviceStore) ReplaceCombined(ctx context.Context, client string, combined []domain.CombinedDevice) error {
	return nil
}

func (s *PostgresDeviceStore) GetCombined(ctx context.Context, client string) ([]domain.CombinedDevice, error) {
	if _, err := s.GetLastFetch(ctx, client, domain.FeedStatus); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.client, d.operating_system, d.mac_address, d.model, d.firmware_version,
		       d.screenshot, d.oopsscreen, d.lastreboot, d.unixepoch, d.warning, d.error,
		       dd.display_name, dd.device_version, dd.site_name
		FROM devices d
		LEFT JOIN device_details dd
		       ON dd.client = d.client
		      AND dd.mac_address = UPPER(BTRIM(d.mac_address))
		WHERE d.client = $1
		ORDER BY d.id`, client)
	if err != nil {
		return nil, fmt.Errorf("query combined for %s: %w", client, err)
	}
	defer rows.Close()

	combined := []domain.CombinedDevice{}
	for rows.Next() {
		var c domain.CombinedDevice
		var operatingSystem, model, firmwareVersion, screenshot sql.NullString
		var oopsscreen sql.NullBool
		var lastReboot sql.NullTime
		var lastSeen sql.NullInt64
		var displayName, deviceVersion, siteName sql.NullString
		if err := rows.Scan(&c.Client, &operatingSystem, &c.MACAddress, &model, &firmwareVersion,
			&screenshot, &oopsscreen, &lastReboot, &lastSeen, &c.Warning, &c.Error,
			&displayName, &deviceVersion, &siteName); err != nil {
			return nil, fmt.Errorf("scan combined: %w", err)
		}
		c.OperatingSystem = ptrString(operatingSystem)
		c.Model = ptrString(model)
		c.FirmwareVersion = ptrString(firmwareVersion)
		c.Screenshot = ptrString(screenshot)
		c.Oopsscreen = ptrBool(oopsscreen)
		c.LastReboot = ptrTime(lastReboot)
		c.LastSeenMs = ptrInt64(lastSeen)
		c.DisplayName = ptrString(displayName)
		c.DeviceVersion = ptrString(deviceVersion)
		c.SiteName = ptrString(siteName)
		c.Status = domain.StatusOf(c.Warning, c.Error)
		combined = append(combined, c)
	}
	return combined, rows.Err()
}

func (s *PostgresDeviceStore) SetLastFetch(ctx context.Context, client, feed string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_state (client, feed, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (client, feed)
		DO UPDATE SET fetched_at = EXCLUDED.fetched_at`,
		client, feed, at.UTC())
	if err != nil {
		return fmt.Errorf("upsert fetch state %s/%s: %w", client, feed, err)
	}
	return nil
}

func (s *PostgresDeviceStore) GetLastFetch(ctx context.Context, client, feed string) (time.Time, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM fetch_state WHERE client = $1 AND feed = $2`,
		client, feed).Scan(&at)
	if err == sql.ErrNoRows {
		return time.Time{}, store.ErrMiss
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query fetch state %s/%s: %w", client, feed, err)
	}
	return at, nil
}

func scanDevice(rows *sql.Rows) (domain.Device, error) {
	var d domain.Device
	var operatingSystem, model, firmwareVersion, screenshot sql.NullString
	var oopsscreen sql.NullBool
	var lastReboot sql.NullTime
	var lastSeen sql.NullInt64
	if err := rows.Scan(&d.Client, &operatingSystem, &d.MACAddress, &model, &firmwareVersion,
		&screenshot, &oopsscreen, &lastReboot, &lastSeen, &d.Warning, &d.Error); err != nil {
		return d, fmt.Errorf("scan device: %w", err)
	}
	d.OperatingSystem = ptrString(operatingSystem)
	d.Model = ptrString(model)
	d.FirmwareVersion = ptrString(firmwareVersion)
	d.Screenshot = ptrString(screenshot)
	d.Oopsscreen = ptrBool(oopsscreen)
	d.LastReboot = ptrTime(lastReboot)
	d.LastSeenMs = ptrInt64(lastSeen)
	return d, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func ptrString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func ptrBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return &v.Bool
}

func ptrTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}

func ptrInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
