package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// ScenarioRunner 场景引擎接口
type ScenarioRunner interface {
	TriggerExcursion(ctx context.Context, deviceID string) models.SimulatorResult
	SimulateLowBattery(ctx context.Context, deviceID string) models.SimulatorResult
	TakeDeviceOffline(ctx context.Context, deviceID string) models.SimulatorResult
	SimulatePowerOutage(ctx context.Context) models.SimulatorResult
	SimulateBatchArrival(ctx context.Context) models.SimulatorResult
	ReturnToNormal(ctx context.Context) models.SimulatorResult
	GetStats(ctx context.Context) models.SimulatorStats
}

// scenarioRequest 场景请求体（deviceId 可选，缺省时随机选择目标设备）
type scenarioRequest struct {
	DeviceID string `json:"deviceId"`
}

// SimulatorHandler 场景触发 API
type SimulatorHandler struct {
	engine ScenarioRunner
	logger *zap.Logger
}

func NewSimulatorHandler(engine ScenarioRunner, logger *zap.Logger) *SimulatorHandler {
	return &SimulatorHandler{engine: engine, logger: logger}
}

// runScenario 解析请求体并执行场景，场景失败映射为 code=-1 + HTTP 200
// （失败是业务结果而不是传输错误，沿用统一信封）
func (h *SimulatorHandler) runScenario(w http.ResponseWriter, r *http.Request,
	run func(ctx context.Context, deviceID string) models.SimulatorResult) {

	var req scenarioRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	result := run(r.Context(), req.DeviceID)
	if !result.Success {
		h.logger.Warn("Scenario failed",
			zap.String("path", r.URL.Path),
			zap.String("message", result.Message),
		)
		writeJSON(w, http.StatusOK, Result[models.SimulatorResult]{
			Code:    ResultError,
			Type:    "error",
			Message: result.Message,
			Result:  result,
		})
		return
	}

	writeJSON(w, http.StatusOK, Ok(result))
}

func (h *SimulatorHandler) Excursion(w http.ResponseWriter, r *http.Request) {
	h.runScenario(w, r, h.engine.TriggerExcursion)
}

func (h *SimulatorHandler) LowBattery(w http.ResponseWriter, r *http.Request) {
	h.runScenario(w, r, h.engine.SimulateLowBattery)
}

func (h *SimulatorHandler) Offline(w http.ResponseWriter, r *http.Request) {
	h.runScenario(w, r, h.engine.TakeDeviceOffline)
}

func (h *SimulatorHandler) PowerOutage(w http.ResponseWriter, r *http.Request) {
	h.runScenario(w, r, func(ctx context.Context, _ string) models.SimulatorResult {
		return h.engine.SimulatePowerOutage(ctx)
	})
}

func (h *SimulatorHandler) BatchArrival(w http.ResponseWriter, r *http.Request) {
	h.runScenario(w, r, func(ctx context.Context, _ string) models.SimulatorResult {
		return h.engine.SimulateBatchArrival(ctx)
	})
}

func (h *SimulatorHandler) ReturnToNormal(w http.ResponseWriter, r *http.Request) {
	h.runScenario(w, r, func(ctx context.Context, _ string) models.SimulatorResult {
		return h.engine.ReturnToNormal(ctx)
	})
}

// Stats 车队统计快照（每次新鲜计算）
func (h *SimulatorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.engine.GetStats(r.Context())))
}
