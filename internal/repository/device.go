package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// DeviceRepository 设备仓库
type DeviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviceRepository 创建设备仓库
func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{
		db:     db,
		logger: logger,
	}
}

const deviceColumns = `
	id, device_id, name, location, latitude, longitude,
	min_temp, max_temp, battery, status, is_active, created_at, updated_at
`

// GetDevice 按内部 ID 获取设备
func (r *DeviceRepository) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", models.ErrDeviceNotFound, id)
		}
		return nil, fmt.Errorf("failed to query device: %w", err)
	}

	return device, nil
}

// GetDeviceByDeviceID 按外部设备编号获取设备（设备上报时使用）
func (r *DeviceRepository) GetDeviceByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE device_id = $1`

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", models.ErrDeviceNotFound, deviceID)
		}
		return nil, fmt.Errorf("failed to query device: %w", err)
	}

	return device, nil
}

// ListDevicesByStatus 按状态列出设备
// activeOnly 为 true 时只返回 is_active 的设备。
func (r *DeviceRepository) ListDevicesByStatus(ctx context.Context, status models.DeviceStatus, activeOnly bool) ([]models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE status = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query devices by status: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		device, err := scanDeviceRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *device)
	}

	return devices, rows.Err()
}

// UpdateDeviceStatus 更新设备状态
func (r *DeviceRepository) UpdateDeviceStatus(ctx context.Context, id string, status models.DeviceStatus) error {
	query := `UPDATE devices SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update device status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("device not found: %s", id)
	}

	return nil
}

// UpdateDeviceStatusBatch 批量更新设备状态（断电/恢复场景）
func (r *DeviceRepository) UpdateDeviceStatusBatch(ctx context.Context, ids []string, status models.DeviceStatus) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE devices SET status = $2, updated_at = NOW() WHERE id = ANY($1)`

	_, err := r.db.ExecContext(ctx, query, pq.Array(ids), string(status))
	if err != nil {
		return fmt.Errorf("failed to batch update device status: %w", err)
	}

	return nil
}

// UpdateDeviceBatteryStatus 同时更新设备电量和状态
func (r *DeviceRepository) UpdateDeviceBatteryStatus(ctx context.Context, id string, battery int, status models.DeviceStatus) error {
	query := `UPDATE devices SET battery = $2, status = $3, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, battery, string(status))
	if err != nil {
		return fmt.Errorf("failed to update device battery: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("device not found: %s", id)
	}

	return nil
}

// CountDevices 设备总数
func (r *DeviceRepository) CountDevices(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return count, nil
}

// CountDevicesByStatus 按状态统计设备数
func (r *DeviceRepository) CountDevicesByStatus(ctx context.Context, status models.DeviceStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices WHERE status = $1`, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count devices by status: %w", err)
	}
	return count, nil
}

// rowScanner 兼容 *sql.Row 和 *sql.Rows 的扫描接口
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var device models.Device
	var latitude, longitude, minTemp, maxTemp sql.NullFloat64
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&device.ID,
		&device.DeviceID,
		&device.Name,
		&device.Location,
		&latitude,
		&longitude,
		&minTemp,
		&maxTemp,
		&device.Battery,
		&device.Status,
		&device.IsActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if latitude.Valid {
		device.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		device.Longitude = &longitude.Float64
	}
	if minTemp.Valid {
		device.MinTemp = &minTemp.Float64
	}
	if maxTemp.Valid {
		device.MaxTemp = &maxTemp.Float64
	}
	device.CreatedAt = createdAt
	device.UpdatedAt = updatedAt

	return &device, nil
}

func scanDeviceRows(rows *sql.Rows) (*models.Device, error) {
	return scanDevice(rows)
}
