package session

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savegress/vitalink/pkg/models"
)

func now() time.Time { return time.Now() }

// timerSlot is a cancellable one-shot timer. Each detection owns one
// slot per timer purpose; arming replaces and cancels the previous
// timer so a stale handle can never outlive its session. Accessed only
// under the session mutex.
type timerSlot struct {
	timer *time.Timer
}

func (ts *timerSlot) arm(d time.Duration, fn func()) {
	ts.cancel()
	if d <= 0 {
		go fn()
		return
	}
	ts.timer = time.AfterFunc(d, fn)
}

func (ts *timerSlot) cancel() {
	if ts.timer != nil {
		ts.timer.Stop()
		ts.timer = nil
	}
}

// evaluateAutoStop applies the per-kind completion rule to a decoded
// reading. The first physiologically valid reading latches the session
// and schedules a single automatic stop; later valid readings in the
// same session do not reschedule it.
func (s *Session) evaluateAutoStop(d *detection, reading models.Reading) {
	// The firmware's explicit end-of-run marker stops immediately.
	if reading.ECG != nil && reading.ECG.DeviceStop {
		logrus.WithField("kind", d.kind).Info("device signalled end of measurement")
		s.StopDetect(d.kind)
		return
	}

	if !usableResult(reading) {
		return
	}

	s.mu.Lock()
	if s.active[d.kind] != d || d.latched {
		s.mu.Unlock()
		return
	}
	d.latched = true
	d.fallback.cancel()

	delay := s.stopDelay(d.kind)
	kind := d.kind
	d.stopTimer.arm(delay, func() {
		s.autoStop(kind, d)
	})
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"kind":  kind,
		"delay": delay,
	}).Debug("valid reading observed, auto-stop scheduled")
}

// autoStop fires from a stop timer. The detection identity check keeps
// a timer from a previous session from stopping a newer one.
func (s *Session) autoStop(kind models.DetectionKind, d *detection) {
	s.mu.Lock()
	current, ok := s.active[kind]
	s.mu.Unlock()
	if !ok || current != d {
		return
	}
	s.StopDetect(kind)
}

// stopDelay returns how long a kind keeps measuring after its first
// valid reading. ECG needs the full run to accumulate waveform; the
// others stop shortly after the result.
func (s *Session) stopDelay(kind models.DetectionKind) time.Duration {
	cfg := s.cfg.Detection
	switch kind {
	case models.KindECG:
		return cfg.ECGDuration
	case models.KindBloodOxygen:
		return cfg.OxygenStopDelay
	case models.KindPressure:
		return cfg.PressureStopDelay
	case models.KindGlucose:
		return cfg.GlucoseStopDelay
	case models.KindTemperature:
		return cfg.TempStopDelay
	default:
		return 0
	}
}

// usableResult reports whether a reading is a physiologically valid
// final result for its kind
func usableResult(reading models.Reading) bool {
	if !reading.Valid {
		return false
	}
	switch reading.Kind {
	case models.KindECG:
		return reading.ECG != nil && reading.ECG.HeartRate > 0
	case models.KindBloodOxygen:
		o := reading.BloodOxygen
		return o != nil && o.SpO2 > 0 && o.HeartRate > 0
	case models.KindPressure:
		p := reading.Pressure
		return p != nil && !p.InProgress && p.Systolic > 0 && p.Diastolic > 0
	case models.KindGlucose:
		return reading.Glucose != nil && reading.Glucose.Concentration > 0
	case models.KindTemperature:
		// plausible body temperature only
		return reading.Temperature != nil && reading.Temperature.Value > 30
	case models.KindBattery:
		return reading.Battery != nil
	default:
		return false
	}
}
