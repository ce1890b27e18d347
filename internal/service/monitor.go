package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"coldtrace-monitor/internal/alerting"
	"coldtrace-monitor/internal/bridge"
	"coldtrace-monitor/internal/cache"
	"coldtrace-monitor/internal/config"
	"coldtrace-monitor/internal/fleet"
	httpapi "coldtrace-monitor/internal/http"
	"coldtrace-monitor/internal/ingest"
	"coldtrace-monitor/internal/models"
	"coldtrace-monitor/internal/mqttclient"
	"coldtrace-monitor/internal/pubsub"
	"coldtrace-monitor/internal/repository"
	"coldtrace-monitor/internal/simulator"
)

// MonitorService 冷链监控服务（整合各层）
type MonitorService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	// 各层组件
	deviceRepo    *repository.DeviceRepository
	readingRepo   *repository.ReadingRepository
	alertRepo     *repository.AlertRepository
	bus           *pubsub.Bus
	realtimeCache *cache.RealtimeCache
	alertService  *alerting.Service
	statsService  *fleet.StatsService
	engine        *simulator.Engine
	bridge        *bridge.Bridge
	httpServer    *http.Server

	mqttClient *mqttclient.Client
	consumer   *ingest.Consumer

	heartbeatStop chan struct{}
	heartbeatDone chan struct{}
}

// NewMonitorService 创建监控服务
func NewMonitorService(cfg *config.Config, logger *zap.Logger) (*MonitorService, error) {
	// 1. 连接数据库
	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 创建 Repository 层
	deviceRepo := repository.NewDeviceRepository(db, logger)
	readingRepo := repository.NewReadingRepository(db, logger)
	alertRepo := repository.NewAlertRepository(db, logger)

	// 4. 事件总线与实时缓存
	bus := pubsub.NewBus(cfg.Bus.SubscriberBuffer, logger)
	realtimeCache := cache.NewRealtimeCache(redisClient,
		cfg.Cache.KeyPrefix, cfg.Cache.KeySuffix, cfg.Cache.TTL, logger)

	// 5. 报警链路：去重 -> 入库 -> Webhook 外发
	dedup := alerting.NewDeduplicator(alertRepo, cfg.Simulator.DedupWindow, logger)
	notifier := alerting.NewWebhookNotifier(cfg.Alert.WebhookURL, cfg.Alert.Timeout, logger)
	alertService := alerting.NewService(alertRepo, dedup, notifier, logger)

	// 6. 车队统计与场景引擎
	statsService := fleet.NewStatsService(deviceRepo, readingRepo, alertRepo, logger)
	engine := simulator.NewEngine(cfg, deviceRepo, readingRepo, alertService,
		statsService, bus, realtimeCache, logger)

	// 7. 实时推送桥接
	liveBridge := bridge.NewBridge(bus, realtimeCache, logger)

	// 8. 可选 MQTT 读数接入（先建连接，健康检查要探测它）
	var mqttClient *mqttclient.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqttclient.NewClient(&cfg.MQTT, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create MQTT client: %w", err)
		}
	}

	// 9. HTTP 路由
	router := httpapi.NewRouter(logger)
	router.RegisterSimulatorRoutes(httpapi.NewSimulatorHandler(engine, logger))
	router.RegisterFleetRoutes(httpapi.NewFleetHandler(statsService, logger))
	if mqttClient != nil {
		router.RegisterHealthRoute(mqttClient)
	} else {
		router.RegisterHealthRoute(nil)
	}
	router.HandleHandler("/ws/live", liveBridge)

	s := &MonitorService{
		config:        cfg,
		db:            db,
		redisClient:   redisClient,
		logger:        logger,
		deviceRepo:    deviceRepo,
		readingRepo:   readingRepo,
		alertRepo:     alertRepo,
		bus:           bus,
		realtimeCache: realtimeCache,
		alertService:  alertService,
		statsService:  statsService,
		engine:        engine,
		bridge:        liveBridge,
		httpServer: &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: router,
		},
		heartbeatStop: make(chan struct{}),
		heartbeatDone: make(chan struct{}),
	}

	if mqttClient != nil {
		s.mqttClient = mqttClient
		s.consumer = ingest.NewConsumer(cfg, mqttClient, deviceRepo, readingRepo,
			alertService, bus, realtimeCache, logger)
	}

	return s, nil
}

// Start 启动服务
// HTTP 监听失败通过 errCh 上报；MQTT 消费者与心跳在后台运行。
func (s *MonitorService) Start(ctx context.Context) error {
	s.logger.Info("Starting coldtrace monitor service",
		zap.String("http_addr", s.config.HTTP.Addr),
		zap.Bool("mqtt_enabled", s.config.MQTT.Enabled),
	)

	if s.consumer != nil {
		go func() {
			if err := s.consumer.Start(ctx); err != nil {
				s.logger.Error("MQTT consumer exited", zap.Error(err))
			}
		}()
	}

	go s.heartbeatLoop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		return nil
	}
}

// heartbeatLoop 周期性向 PING 主题发布心跳，供实时连接探活
func (s *MonitorService) heartbeatLoop() {
	defer close(s.heartbeatDone)

	ticker := time.NewTicker(s.config.Heartbeat.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.bus.Publish(pubsub.TopicPing, models.PingEvent{Timestamp: time.Now()})
		case <-s.heartbeatStop:
			return
		}
	}
}

// Stop 停止服务
func (s *MonitorService) Stop() error {
	s.logger.Info("Stopping coldtrace monitor service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	close(s.heartbeatStop)
	<-s.heartbeatDone

	if s.consumer != nil {
		s.consumer.Stop()
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}

	s.logger.Info("Coldtrace monitor service stopped")
	return nil
}
