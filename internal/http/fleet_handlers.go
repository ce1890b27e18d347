package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// FleetQuerier 车队统计查询接口
type FleetQuerier interface {
	Snapshot(ctx context.Context) models.SimulatorStats
}

// FleetHandler 车队只读查询 API
type FleetHandler struct {
	stats  FleetQuerier
	logger *zap.Logger
}

func NewFleetHandler(stats FleetQuerier, logger *zap.Logger) *FleetHandler {
	return &FleetHandler{stats: stats, logger: logger}
}

// Summary 车队汇总快照
func (h *FleetHandler) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.stats.Snapshot(r.Context())))
}
