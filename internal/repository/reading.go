package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// ReadingRepository 读数仓库
type ReadingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingRepository 创建读数仓库
func NewReadingRepository(db *sql.DB, logger *zap.Logger) *ReadingRepository {
	return &ReadingRepository{
		db:     db,
		logger: logger,
	}
}

// CreateReading 创建读数
func (r *ReadingRepository) CreateReading(ctx context.Context, reading *models.Reading) error {
	query := `
		INSERT INTO readings (id, device_id, temperature, battery, status, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	var battery sql.NullInt64
	if reading.Battery != nil {
		battery = sql.NullInt64{Int64: int64(*reading.Battery), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		reading.ID,
		reading.DeviceID,
		reading.Temperature,
		battery,
		string(reading.Status),
		reading.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create reading: %w", err)
	}

	return nil
}

// CreateReadings 批量创建读数（单事务）
func (r *ReadingRepository) CreateReadings(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO readings (id, device_id, temperature, battery, status, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	for i := range readings {
		reading := &readings[i]

		var battery sql.NullInt64
		if reading.Battery != nil {
			battery = sql.NullInt64{Int64: int64(*reading.Battery), Valid: true}
		}

		if _, err := tx.ExecContext(ctx, query,
			reading.ID,
			reading.DeviceID,
			reading.Temperature,
			battery,
			string(reading.Status),
			reading.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to create reading for device %s: %w", reading.DeviceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit readings: %w", err)
	}

	return nil
}

// GetLatestReading 获取设备最新读数
func (r *ReadingRepository) GetLatestReading(ctx context.Context, deviceID string) (*models.Reading, error) {
	query := `
		SELECT id, device_id, temperature, battery, status, timestamp, created_at
		FROM readings
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var reading models.Reading
	var battery sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&reading.ID,
		&reading.DeviceID,
		&reading.Temperature,
		&battery,
		&reading.Status,
		&reading.Timestamp,
		&reading.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no readings for device: %s", deviceID)
		}
		return nil, fmt.Errorf("failed to query latest reading: %w", err)
	}

	if battery.Valid {
		b := int(battery.Int64)
		reading.Battery = &b
	}

	return &reading, nil
}

// CountReadingsSince 统计指定时间之后的读数条数
func (r *ReadingRepository) CountReadingsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM readings WHERE timestamp >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return count, nil
}

// ListCriticalDevicesSince 指定时间之后出现过 CRITICAL 读数的设备（去重）
func (r *ReadingRepository) ListCriticalDevicesSince(ctx context.Context, since time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT device_id
		FROM readings
		WHERE status = 'CRITICAL' AND timestamp >= $1
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query critical devices: %w", err)
	}
	defer rows.Close()

	var deviceIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan device id: %w", err)
		}
		deviceIDs = append(deviceIDs, id)
	}

	return deviceIDs, rows.Err()
}

// ListLowBatteryDevices 最新读数电量低于阈值的设备
// 使用 DISTINCT ON 取每个设备时间最新的一条读数。
func (r *ReadingRepository) ListLowBatteryDevices(ctx context.Context, threshold int) ([]string, error) {
	query := `
		SELECT device_id FROM (
			SELECT DISTINCT ON (device_id) device_id, battery
			FROM readings
			WHERE battery IS NOT NULL
			ORDER BY device_id, timestamp DESC
		) latest
		WHERE latest.battery < $1
	`

	rows, err := r.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to query low battery devices: %w", err)
	}
	defer rows.Close()

	var deviceIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan device id: %w", err)
		}
		deviceIDs = append(deviceIDs, id)
	}

	return deviceIDs, rows.Err()
}
