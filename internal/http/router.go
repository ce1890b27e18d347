package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 WebSocket 桥接等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterSimulatorRoutes 注册场景触发路由（全部 POST，stats 为 GET）
func (r *Router) RegisterSimulatorRoutes(h *SimulatorHandler) {
	post := func(fn http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			fn(w, req)
		}
	}

	r.Handle("/api/v1/simulator/excursion", post(h.Excursion))
	r.Handle("/api/v1/simulator/low-battery", post(h.LowBattery))
	r.Handle("/api/v1/simulator/offline", post(h.Offline))
	r.Handle("/api/v1/simulator/power-outage", post(h.PowerOutage))
	r.Handle("/api/v1/simulator/batch-arrival", post(h.BatchArrival))
	r.Handle("/api/v1/simulator/return-to-normal", post(h.ReturnToNormal))

	r.Handle("/api/v1/simulator/stats", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Stats(w, req)
	})
}

// RegisterFleetRoutes 注册车队查询路由
func (r *Router) RegisterFleetRoutes(h *FleetHandler) {
	r.Handle("/api/v1/fleet/summary", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Summary(w, req)
	})
}

// ConnChecker 连接探活接口（由 mqttclient.Client 实现）
type ConnChecker interface {
	IsConnected() bool
}

// RegisterHealthRoute 注册健康检查路由
// mqtt 为 nil 时（未启用 MQTT 接入）只报告进程存活；
// 非 nil 且连接断开时返回 503，让探针把实例摘出去。
func (r *Router) RegisterHealthRoute(mqtt ConnChecker) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if mqtt != nil && !mqtt.IsConnected() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"mqtt":   "disconnected",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
