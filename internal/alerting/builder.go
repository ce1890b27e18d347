package alerting

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"coldtrace-monitor/internal/models"
)

// alertTitles 各报警类型的标题
var alertTitles = map[models.AlertType]string{
	models.AlertTypeTemperatureExcursion: "Temperature Excursion",
	models.AlertTypeDeviceOffline:        "Device Offline",
	models.AlertTypeLowBattery:           "Low Battery",
	models.AlertTypeConnectionLost:       "Connection Lost",
}

// BuildAlert 构建报警记录
// detail 追加到标准消息后面（如具体温度或电量）。
func BuildAlert(device *models.Device, alertType models.AlertType, severity models.AlertSeverity, detail string) *models.Alert {
	title, ok := alertTitles[alertType]
	if !ok {
		title = string(alertType)
	}

	message := fmt.Sprintf("%s (%s)", device.Name, device.Location)
	if detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}

	return &models.Alert{
		ID:        uuid.New().String(),
		DeviceID:  device.ID,
		Type:      alertType,
		Severity:  severity,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}
}
