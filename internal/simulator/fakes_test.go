package simulator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coldtrace-monitor/internal/config"
	"coldtrace-monitor/internal/models"

	"go.uber.org/zap"
)

// memDeviceStore 内存设备存储（测试用）
type memDeviceStore struct {
	mu      sync.Mutex
	order   []string
	devices map[string]*models.Device

	getErr    error
	listErr   error
	updateErr error
}

func newMemDeviceStore(devices ...*models.Device) *memDeviceStore {
	s := &memDeviceStore{
		devices: make(map[string]*models.Device),
	}
	for _, d := range devices {
		s.order = append(s.order, d.ID)
		s.devices[d.ID] = d
	}
	return s
}

func (s *memDeviceStore) get(id string) *models.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.devices[id]; ok {
		copied := *d
		return &copied
	}
	return nil
}

func (s *memDeviceStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if d := s.get(id); d != nil {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %s", models.ErrDeviceNotFound, id)
}

func (s *memDeviceStore) GetDeviceByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if s.devices[id].DeviceID == deviceID {
			copied := *s.devices[id]
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrDeviceNotFound, deviceID)
}

func (s *memDeviceStore) ListDevicesByStatus(ctx context.Context, status models.DeviceStatus, activeOnly bool) ([]models.Device, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Device
	for _, id := range s.order {
		d := s.devices[id]
		if d.Status != status {
			continue
		}
		if activeOnly && !d.IsActive {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (s *memDeviceStore) UpdateDeviceStatus(ctx context.Context, id string, status models.DeviceStatus) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return fmt.Errorf("device not found: %s", id)
	}
	d.Status = status
	return nil
}

func (s *memDeviceStore) UpdateDeviceStatusBatch(ctx context.Context, ids []string, status models.DeviceStatus) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if d, ok := s.devices[id]; ok {
			d.Status = status
		}
	}
	return nil
}

func (s *memDeviceStore) UpdateDeviceBatteryStatus(ctx context.Context, id string, battery int, status models.DeviceStatus) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return fmt.Errorf("device not found: %s", id)
	}
	d.Battery = battery
	d.Status = status
	return nil
}

// memReadingStore 内存读数存储（测试用）
type memReadingStore struct {
	mu        sync.Mutex
	readings  []models.Reading
	createErr error
}

func (s *memReadingStore) CreateReading(ctx context.Context, reading *models.Reading) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, *reading)
	return nil
}

func (s *memReadingStore) CreateReadings(ctx context.Context, readings []models.Reading) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, readings...)
	return nil
}

func (s *memReadingStore) all() []models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Reading, len(s.readings))
	copy(out, s.readings)
	return out
}

// recordingBus 记录所有发布的事件（测试用）
type recordedEvent struct {
	Topic   string
	Payload interface{}
}

type recordingBus struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBus) Publish(topic string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Topic: topic, Payload: payload})
}

func (b *recordingBus) byTopic(topic string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// recordingRaiser 记录报警触发（测试用）
type raisedAlert struct {
	DeviceID string
	Type     models.AlertType
	Severity models.AlertSeverity
	Detail   string
}

type recordingRaiser struct {
	mu     sync.Mutex
	raised []raisedAlert
	err    error
}

func (r *recordingRaiser) Raise(ctx context.Context, device *models.Device, alertType models.AlertType, severity models.AlertSeverity, detail string) (*models.Alert, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raised = append(r.raised, raisedAlert{
		DeviceID: device.ID,
		Type:     alertType,
		Severity: severity,
		Detail:   detail,
	})
	return &models.Alert{ID: "alert", DeviceID: device.ID, Type: alertType}, nil
}

// fixedStats 固定统计快照（测试用）
type fixedStats struct {
	stats models.SimulatorStats
}

func (f *fixedStats) Snapshot(ctx context.Context) models.SimulatorStats {
	return f.stats
}

// testEngine 组装测试引擎
type testEnv struct {
	engine   *Engine
	devices  *memDeviceStore
	readings *memReadingStore
	bus      *recordingBus
	alerts   *recordingRaiser
}

func newTestEngine(recoveryDelay time.Duration, devices ...*models.Device) *testEnv {
	cfg, _ := config.Load()
	cfg.Simulator.RecoveryDelay = recoveryDelay

	env := &testEnv{
		devices:  newMemDeviceStore(devices...),
		readings: &memReadingStore{},
		bus:      &recordingBus{},
		alerts:   &recordingRaiser{},
	}
	env.engine = NewEngine(cfg, env.devices, env.readings, env.alerts, &fixedStats{}, env.bus, nil, zap.NewNop())
	return env
}

func onlineDevice(id, name string) *models.Device {
	minTemp := 2.0
	maxTemp := 8.0
	return &models.Device{
		ID:       id,
		DeviceID: "CT-" + id,
		Name:     name,
		Location: "Warehouse 1",
		MinTemp:  &minTemp,
		MaxTemp:  &maxTemp,
		Battery:  80,
		Status:   models.DeviceStatusOnline,
		IsActive: true,
	}
}

func offlineDevice(id, name string) *models.Device {
	d := onlineDevice(id, name)
	d.Status = models.DeviceStatusOffline
	return d
}
