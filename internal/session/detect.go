package session

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/savegress/vitalink/internal/ble"
	"github.com/savegress/vitalink/internal/events"
	"github.com/savegress/vitalink/internal/protocol"
	"github.com/savegress/vitalink/pkg/models"
)

// Session-level errors
var (
	ErrUnknownKind   = errors.New("unknown detection kind")
	ErrAlreadyActive = errors.New("measurement already in progress for this kind")
	ErrPressurePair  = errors.New("blood pressure takes a systolic and diastolic pair, use SubmitManualPressure")
)

// detection tracks one active measurement: its characteristic handle,
// waveform accumulation, the valid-data latch and the two timer slots
// (auto-stop and manual-entry fallback). Timer slots are always
// cancelled at stop so a stale timer can never fire into a later
// session for the same kind.
type detection struct {
	kind       models.DetectionKind
	char       ble.Characteristic
	subscribed bool
	wave       protocol.WaveBuffer
	latched    bool
	stopTimer  timerSlot
	fallback   timerSlot
}

func (d *detection) cancelTimers() {
	d.stopTimer.cancel()
	d.fallback.cancel()
}

// Subscription is the handle returned by StartDetect. Listen registers
// a callback for this kind's readings; the returned ID feeds Off.
type Subscription struct {
	Kind models.DetectionKind
	bus  *events.Bus
}

// Listen registers fn for every reading of this subscription's kind
func (sub *Subscription) Listen(fn func(models.Reading)) string {
	return sub.bus.On(string(sub.Kind), func(payload interface{}) {
		if reading, ok := payload.(models.Reading); ok {
			fn(reading)
		}
	})
}

// Cancel removes a listener registered with Listen
func (sub *Subscription) Cancel(id string) {
	sub.bus.Off(string(sub.Kind), id)
}

// StartDetect begins a measurement of the given kind. The device must
// be connected and the kind must not already be active; re-starting an
// active kind is rejected rather than silently re-subscribed, which
// would double-fire listeners.
func (s *Session) StartDetect(kind models.DetectionKind) (*Subscription, error) {
	if !kind.Valid() {
		return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}

	s.mu.Lock()
	if s.peripheral == nil {
		s.mu.Unlock()
		return nil, ble.ErrNotConnected
	}
	if _, ok := s.active[kind]; ok {
		s.mu.Unlock()
		return nil, errors.Wrapf(ErrAlreadyActive, "%s", kind)
	}
	peripheral := s.peripheral
	deviceID := s.device.ID
	s.mu.Unlock()

	char, err := ble.Resolve(peripheral, ble.CandidatesFor(kind))
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s characteristic", kind)
	}

	d := &detection{kind: kind, char: char}

	// Battery supports a point-in-time read on the standard Battery
	// Level characteristic. The read runs after the subscription handle
	// has been returned so listeners attached to it observe the
	// reading; when the read path is unavailable it falls back to
	// notifications.
	if kind == models.KindBattery {
		s.mu.Lock()
		s.active[kind] = d
		s.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"kind":   kind,
			"device": deviceID,
		}).Info("measurement started")
		s.bus.Emit(events.MeasurementStarted, kind)

		go s.oneShotRead(d, deviceID)
		return &Subscription{Kind: kind, bus: s.bus}, nil
	}

	if err := char.Subscribe(func(data []byte) {
		s.handleNotification(kind, deviceID, data)
	}); err != nil {
		return nil, errors.Wrapf(err, "subscribe %s", kind)
	}
	d.subscribed = true

	s.mu.Lock()
	s.active[kind] = d
	if timeout := s.cfg.Detection.FallbackTimeout; timeout > 0 {
		d.fallback.arm(timeout, func() {
			s.manualFallback(kind, d)
		})
	}
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"kind":   kind,
		"device": deviceID,
	}).Info("measurement started")
	s.bus.Emit(events.MeasurementStarted, kind)

	return &Subscription{Kind: kind, bus: s.bus}, nil
}

// oneShotRead performs the point-in-time read for kinds that support
// it. Runs after StartDetect has returned its subscription handle.
// When the read fails the detection falls back to notifications.
func (s *Session) oneShotRead(d *detection, deviceID string) {
	data, err := d.char.Read()

	s.mu.Lock()
	active := s.active[d.kind] == d
	s.mu.Unlock()
	if !active {
		return
	}

	if err == nil {
		s.handleNotification(d.kind, deviceID, data)
		s.StopDetect(d.kind)
		return
	}

	if subErr := d.char.Subscribe(func(data []byte) {
		s.handleNotification(d.kind, deviceID, data)
	}); subErr != nil {
		logrus.WithError(subErr).WithField("kind", d.kind).Warn("subscribe fallback failed")
		s.StopDetect(d.kind)
		return
	}

	s.mu.Lock()
	if s.active[d.kind] != d {
		s.mu.Unlock()
		d.char.Unsubscribe()
		return
	}
	d.subscribed = true
	if timeout := s.cfg.Detection.FallbackTimeout; timeout > 0 {
		d.fallback.arm(timeout, func() {
			s.manualFallback(d.kind, d)
		})
	}
	s.mu.Unlock()
}

// StopDetect ends a measurement. Idempotent: stopping an inactive kind
// is a no-op.
func (s *Session) StopDetect(kind models.DetectionKind) {
	s.mu.Lock()
	d, ok := s.active[kind]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.active, kind)
	d.cancelTimers()
	s.mu.Unlock()

	if d.subscribed {
		if err := d.char.Unsubscribe(); err != nil {
			logrus.WithError(err).WithField("kind", kind).Debug("unsubscribe")
		}
	}

	logrus.WithField("kind", kind).Info("measurement completed")
	s.bus.Emit(events.MeasurementCompleted, kind)
}

// handleNotification decodes one raw notification and fans the reading
// out. Decode failures produce an invalid zero reading and the
// subscription stays up; a notification may arrive after StopDetect, in
// which case it is still emitted but drives no heuristics.
func (s *Session) handleNotification(kind models.DetectionKind, deviceID string, data []byte) {
	reading := protocol.Decode(kind, deviceID, data)

	s.mu.Lock()
	d := s.active[kind]
	if d != nil && reading.Valid {
		s.accumulateLocked(d, &reading)
		s.updateDeviceLocked(reading)
	}
	s.mu.Unlock()

	s.bus.Emit(string(kind), reading)

	if d != nil && reading.Valid {
		s.evaluateAutoStop(d, reading)
	}
}

// accumulateLocked folds streaming waveform samples into the bounded
// per-session buffer and rewrites the reading to carry the accumulated
// window. Caller holds s.mu.
func (s *Session) accumulateLocked(d *detection, reading *models.Reading) {
	switch {
	case reading.ECG != nil && len(reading.ECG.Wave) > 0:
		d.wave.Append(reading.ECG.Wave)
		reading.ECG.Wave = d.wave.Samples()
	case reading.BloodOxygen != nil && len(reading.BloodOxygen.Wave) > 0:
		d.wave.Append(reading.BloodOxygen.Wave)
		reading.BloodOxygen.Wave = d.wave.Samples()
	}
}

// updateDeviceLocked mutates the owned device handle from status
// readings. Caller holds s.mu.
func (s *Session) updateDeviceLocked(reading models.Reading) {
	if s.device == nil {
		return
	}
	s.device.LastSeen = reading.Timestamp
	if reading.Battery != nil {
		s.device.BatteryLevel = reading.Battery.Level
		s.device.Charging = reading.Battery.Charging
	}
}

// SubmitManual synthesizes a reading for a single-value kind after the
// manual-entry fallback prompted the user. The reading takes the same
// emit-and-stop path as device-sourced data.
func (s *Session) SubmitManual(kind models.DetectionKind, value float64) (models.Reading, error) {
	reading, err := manualReading(kind, value, s.deviceID())
	if err != nil {
		return models.Reading{}, err
	}

	s.bus.Emit(string(kind), reading)
	s.StopDetect(kind)
	return reading, nil
}

// SubmitManualPressure is the two-value variant of SubmitManual for
// blood pressure
func (s *Session) SubmitManualPressure(systolic, diastolic, heartRate int) models.Reading {
	reading := models.Reading{
		Kind:      models.KindPressure,
		DeviceID:  s.deviceID(),
		Timestamp: now(),
		Valid:     true,
		Pressure: &models.PressureReading{
			Systolic:  systolic,
			Diastolic: diastolic,
			HeartRate: heartRate,
		},
	}

	s.bus.Emit(string(models.KindPressure), reading)
	s.StopDetect(models.KindPressure)
	return reading
}

func (s *Session) deviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return ""
	}
	return s.device.ID
}

func manualReading(kind models.DetectionKind, value float64, deviceID string) (models.Reading, error) {
	reading := models.Reading{
		Kind:      kind,
		DeviceID:  deviceID,
		Timestamp: now(),
		Valid:     true,
	}

	switch kind {
	case models.KindTemperature:
		reading.Temperature = &models.TemperatureReading{Value: value, Unit: "C"}
	case models.KindGlucose:
		reading.Glucose = &models.GlucoseReading{
			Concentration: value,
			Unit:          models.UnitMmolL,
			StripState:    models.StripComplete,
		}
	case models.KindBloodOxygen:
		reading.BloodOxygen = &models.BloodOxygenReading{SpO2: int(value)}
	case models.KindECG:
		reading.ECG = &models.ECGReading{HeartRate: int(value)}
	case models.KindBattery:
		reading.Battery = &models.BatteryReading{Level: int(value)}
	case models.KindPressure:
		return models.Reading{}, ErrPressurePair
	default:
		return models.Reading{}, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
	return reading, nil
}

// manualFallback fires when no valid reading arrived within the
// fallback window: the host is asked to prompt for manual entry. The
// session stays active until the manual value arrives or the host
// stops it.
func (s *Session) manualFallback(kind models.DetectionKind, d *detection) {
	s.mu.Lock()
	current, ok := s.active[kind]
	stale := !ok || current != d || d.latched
	s.mu.Unlock()

	if stale {
		return
	}

	logrus.WithField("kind", kind).Info("no data within fallback window, requesting manual entry")
	s.bus.Emit(events.ManualEntryRequired, kind)
}
