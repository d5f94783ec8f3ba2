// Package session implements the device session: connection lifecycle,
// per-kind measurement subscriptions and the auto-completion rules that
// end a measurement once a usable result has been observed.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savegress/vitalink/internal/ble"
	"github.com/savegress/vitalink/internal/config"
	"github.com/savegress/vitalink/internal/events"
	"github.com/savegress/vitalink/pkg/models"
)

// Session owns one device connection and its active measurements. It is
// constructed explicitly and injected into the host; there is no shared
// module-level instance.
type Session struct {
	central ble.Central
	cfg     *config.Config
	bus     *events.Bus

	mu         sync.Mutex
	connecting bool
	peripheral ble.Peripheral
	device     *models.DeviceInfo
	active     map[models.DetectionKind]*detection
}

// New creates a session bound to the given central. The session
// registers itself as the central's disconnect observer.
func New(central ble.Central, cfg *config.Config) *Session {
	s := &Session{
		central: central,
		cfg:     cfg,
		bus:     events.NewBus(),
		active:  make(map[models.DetectionKind]*detection),
	}
	central.SetDisconnectHandler(s.handleUnsolicitedDisconnect)
	return s
}

// ConnectOptions selects the device to connect to. A target kind picks
// the matching service filter; both fields empty means the default
// vendor name-prefix plus custom-service filter.
type ConnectOptions struct {
	Kind       models.DetectionKind `json:"kind,omitempty"`
	NamePrefix string               `json:"name_prefix,omitempty"`
}

// ConnectResult is the structured outcome of a connect attempt. Connect
// never returns an error; failures are classified into Category and an
// actionable message.
type ConnectResult struct {
	OK       bool              `json:"ok"`
	Error    string            `json:"error,omitempty"`
	Category ble.ErrorCategory `json:"category,omitempty"`
}

// Connect discovers and connects to the device. Only one attempt may be
// in flight at a time; a second call while one is pending is rejected.
func (s *Session) Connect(ctx context.Context, opts ConnectOptions) ConnectResult {
	s.mu.Lock()
	if s.connecting {
		s.mu.Unlock()
		return ConnectResult{
			OK:       false,
			Error:    ble.ErrConnectPending.Error(),
			Category: ble.CategoryGeneric,
		}
	}
	if s.peripheral != nil {
		s.mu.Unlock()
		return failure(ble.ErrDeviceClaimed)
	}
	s.connecting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
	}()

	// Pre-flight availability check: no GATT attempt when the adapter
	// is missing or the device is claimed by another session.
	if err := s.central.Available(); err != nil {
		return failure(err)
	}

	filter := s.filterFor(opts)

	connectCtx := ctx
	if s.cfg.Bluetooth.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, s.cfg.Bluetooth.ConnectTimeout)
		defer cancel()
	}

	peripheral, err := s.central.Connect(connectCtx, filter)
	if err != nil {
		return failure(err)
	}

	now := time.Now()
	s.mu.Lock()
	s.peripheral = peripheral
	s.device = &models.DeviceInfo{
		ID:             peripheral.ID(),
		Name:           peripheral.Name(),
		Address:        peripheral.ID(),
		State:          models.StateConnected,
		SupportedKinds: models.AllKinds,
		LastSeen:       now,
	}
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"device": peripheral.ID(),
		"name":   peripheral.Name(),
	}).Info("device connected")

	return ConnectResult{OK: true}
}

func (s *Session) filterFor(opts ConnectOptions) ble.Filter {
	prefix := opts.NamePrefix
	if prefix == "" {
		prefix = s.cfg.Bluetooth.NamePrefix
	}
	if prefix == "" {
		prefix = ble.VendorNamePrefix
	}

	services := []string{ble.ServiceVendor}
	if opts.Kind.Valid() {
		services = []string{ble.ServiceFor(opts.Kind)}
	}
	return ble.Filter{NamePrefix: prefix, ServiceUUIDs: services}
}

func failure(err error) ConnectResult {
	category, message := ble.Classify(err)
	logrus.WithError(err).Warn("connect failed")
	return ConnectResult{OK: false, Error: message, Category: category}
}

// Disconnect tears the connection down. Best-effort and idempotent:
// active measurements are stopped, characteristic handles dropped and
// the device handle cleared.
func (s *Session) Disconnect() {
	s.mu.Lock()
	peripheral := s.peripheral
	stopped := s.clearAllLocked()
	s.peripheral = nil
	s.device = nil
	s.mu.Unlock()

	for _, kind := range stopped {
		s.bus.Emit(events.MeasurementCompleted, kind)
	}

	if peripheral != nil {
		if err := peripheral.Disconnect(); err != nil {
			logrus.WithError(err).Debug("disconnect cleanup")
		}
	}
}

// IsConnected reports whether a device is currently connected
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peripheral != nil
}

// DeviceInfo returns a read-only copy of the connected device handle,
// or nil when disconnected
func (s *Session) DeviceInfo() *models.DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return nil
	}
	info := *s.device
	info.SupportedKinds = append([]models.DetectionKind(nil), s.device.SupportedKinds...)
	return &info
}

// ActiveKinds returns the detection kinds currently running
func (s *Session) ActiveKinds() []models.DetectionKind {
	s.mu.Lock()
	defer s.mu.Unlock()

	kinds := make([]models.DetectionKind, 0, len(s.active))
	for _, kind := range models.AllKinds {
		if _, ok := s.active[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// On registers a listener for an event (a detection kind value or one
// of the lifecycle events) and returns a subscription ID
func (s *Session) On(event string, fn events.Handler) string {
	return s.bus.On(event, fn)
}

// Off removes a listener previously registered with On
func (s *Session) Off(event, id string) {
	s.bus.Off(event, id)
}

// handleUnsolicitedDisconnect runs when the device drops the link
// (out of range, powered off). State is cleared and the disconnected
// event emitted; reconnection is the host's decision, not the SDK's.
func (s *Session) handleUnsolicitedDisconnect(peripheralID string) {
	s.mu.Lock()
	if s.peripheral == nil || s.peripheral.ID() != peripheralID {
		s.mu.Unlock()
		return
	}
	deviceID := s.device.ID
	s.clearAllLocked()
	s.peripheral = nil
	s.device = nil
	s.mu.Unlock()

	logrus.WithField("device", deviceID).Warn("device disconnected")
	s.bus.Emit(events.Disconnected, deviceID)
}

// clearAllLocked cancels every active detection and returns the kinds
// that were running. Caller holds s.mu.
func (s *Session) clearAllLocked() []models.DetectionKind {
	var stopped []models.DetectionKind
	for kind, d := range s.active {
		d.cancelTimers()
		if d.subscribed {
			if err := d.char.Unsubscribe(); err != nil {
				logrus.WithError(err).WithField("kind", kind).Debug("unsubscribe cleanup")
			}
		}
		delete(s.active, kind)
		stopped = append(stopped, kind)
	}
	return stopped
}
