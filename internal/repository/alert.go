package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// AlertRepository 报警仓库
type AlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertRepository 创建报警仓库
func NewAlertRepository(db *sql.DB, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAlert 创建报警
func (r *AlertRepository) CreateAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, device_id, type, severity, title, message, is_read, is_resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, FALSE, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.DeviceID,
		string(alert.Type),
		string(alert.Severity),
		alert.Title,
		alert.Message,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// GetRecentAlert 查询去重窗口内同设备同类型的最近一条报警
// 不存在时返回 (nil, nil)。
func (r *AlertRepository) GetRecentAlert(ctx context.Context, deviceID string, alertType models.AlertType, within time.Duration) (*models.Alert, error) {
	query := `
		SELECT id, device_id, type, severity, title, message, is_read, is_resolved, resolved_at, resolved_by, created_at
		FROM alerts
		WHERE device_id = $1 AND type = $2 AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	since := time.Now().Add(-within)

	var alert models.Alert
	var resolvedAt sql.NullTime
	var resolvedBy sql.NullString

	err := r.db.QueryRowContext(ctx, query, deviceID, string(alertType), since).Scan(
		&alert.ID,
		&alert.DeviceID,
		&alert.Type,
		&alert.Severity,
		&alert.Title,
		&alert.Message,
		&alert.IsRead,
		&alert.IsResolved,
		&resolvedAt,
		&resolvedBy,
		&alert.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query recent alert: %w", err)
	}

	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	if resolvedBy.Valid {
		alert.ResolvedBy = &resolvedBy.String
	}

	return &alert, nil
}

// CountAlertsSince 统计指定时间之后创建的报警数
func (r *AlertRepository) CountAlertsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE created_at >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}
