package alerts

import (
	"sync"
	"testing"
	"time"

	"github.com/savegress/vitalink/internal/config"
	"github.com/savegress/vitalink/pkg/models"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*models.VitalAlert
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(alert *models.VitalAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func testConfig() *config.AlertsConfig {
	return &config.AlertsConfig{
		Enabled:      true,
		MaxActive:    100,
		DedupeWindow: time.Minute,
	}
}

func oxygenReading(spo2, hr int) models.Reading {
	return models.Reading{
		Kind:        models.KindBloodOxygen,
		Valid:       true,
		Timestamp:   time.Now(),
		BloodOxygen: &models.BloodOxygenReading{SpO2: spo2, HeartRate: hr},
	}
}

func waitForAlerts(t *testing.T, n *recordingNotifier, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if n.count() >= want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("expected %d alerts, got %d", want, n.count())
}

func TestEngine_LowOxygenRaisesAlert(t *testing.T) {
	engine := NewEngine(testConfig())
	notifier := &recordingNotifier{}
	engine.AddNotifier(notifier)

	engine.Process(oxygenReading(88, 72))

	waitForAlerts(t, notifier, 1)

	alerts := engine.List(Filter{})
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Severity != models.SeverityCritical {
		t.Errorf("severity = %s, want critical", alerts[0].Severity)
	}
	if alerts[0].Kind != models.KindBloodOxygen {
		t.Errorf("kind = %s, want blood_oxygen", alerts[0].Kind)
	}
}

func TestEngine_NormalReadingsRaiseNothing(t *testing.T) {
	engine := NewEngine(testConfig())

	engine.Process(oxygenReading(98, 72))
	engine.Process(models.Reading{
		Kind:        models.KindTemperature,
		Valid:       true,
		Temperature: &models.TemperatureReading{Value: 36.7, Unit: "C"},
	})
	engine.Process(models.Reading{
		Kind:     models.KindPressure,
		Valid:    true,
		Pressure: &models.PressureReading{Systolic: 118, Diastolic: 76, HeartRate: 70},
	})

	if got := len(engine.List(Filter{})); got != 0 {
		t.Errorf("expected no alerts for normal vitals, got %d", got)
	}
}

func TestEngine_InvalidReadingSkipped(t *testing.T) {
	engine := NewEngine(testConfig())

	engine.Process(models.Reading{Kind: models.KindBloodOxygen, Valid: false})

	if got := len(engine.List(Filter{})); got != 0 {
		t.Errorf("invalid readings must not raise alerts, got %d", got)
	}
}

func TestEngine_DedupeWindow(t *testing.T) {
	engine := NewEngine(testConfig())

	engine.Process(oxygenReading(88, 72))
	engine.Process(oxygenReading(87, 70))

	if got := len(engine.List(Filter{})); got != 1 {
		t.Errorf("same rule inside the dedupe window should raise once, got %d", got)
	}
}

func TestEngine_SeverityBands(t *testing.T) {
	tests := []struct {
		name     string
		reading  models.Reading
		severity models.AlertSeverity
	}{
		{
			name:     "warning oxygen",
			reading:  oxygenReading(92, 72),
			severity: models.SeverityWarning,
		},
		{
			name: "hypertensive crisis",
			reading: models.Reading{
				Kind:     models.KindPressure,
				Valid:    true,
				Pressure: &models.PressureReading{Systolic: 185, Diastolic: 110},
			},
			severity: models.SeverityCritical,
		},
		{
			name: "fever",
			reading: models.Reading{
				Kind:        models.KindTemperature,
				Valid:       true,
				Temperature: &models.TemperatureReading{Value: 38.2, Unit: "C"},
			},
			severity: models.SeverityWarning,
		},
		{
			name: "hypoglycemia mmol",
			reading: models.Reading{
				Kind:    models.KindGlucose,
				Valid:   true,
				Glucose: &models.GlucoseReading{Concentration: 3.4, Unit: models.UnitMmolL},
			},
			severity: models.SeverityWarning,
		},
		{
			name: "hypoglycemia mgdl converts",
			reading: models.Reading{
				Kind:    models.KindGlucose,
				Valid:   true,
				Glucose: &models.GlucoseReading{Concentration: 50, Unit: models.UnitMgDL},
			},
			severity: models.SeverityCritical,
		},
		{
			name: "battery low",
			reading: models.Reading{
				Kind:    models.KindBattery,
				Valid:   true,
				Battery: &models.BatteryReading{Level: 10},
			},
			severity: models.SeverityInfo,
		},
		{
			name: "severe bradycardia",
			reading: models.Reading{
				Kind:  models.KindECG,
				Valid: true,
				ECG:   &models.ECGReading{HeartRate: 35},
			},
			severity: models.SeverityCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(testConfig())
			engine.Process(tt.reading)

			alerts := engine.List(Filter{})
			if len(alerts) != 1 {
				t.Fatalf("expected 1 alert, got %d", len(alerts))
			}
			if alerts[0].Severity != tt.severity {
				t.Errorf("severity = %s, want %s", alerts[0].Severity, tt.severity)
			}
		})
	}
}

func TestEngine_CuffProgressIgnored(t *testing.T) {
	engine := NewEngine(testConfig())

	engine.Process(models.Reading{
		Kind:  models.KindPressure,
		Valid: true,
		Pressure: &models.PressureReading{
			CuffPressure:    190,
			PercentComplete: 50,
			InProgress:      true,
		},
	})

	if got := len(engine.List(Filter{})); got != 0 {
		t.Errorf("in-progress cuff frames must not raise alerts, got %d", got)
	}
}

func TestEngine_ChargingBatteryNotAlerted(t *testing.T) {
	engine := NewEngine(testConfig())

	engine.Process(models.Reading{
		Kind:    models.KindBattery,
		Valid:   true,
		Battery: &models.BatteryReading{Level: 10, Charging: true},
	})

	if got := len(engine.List(Filter{})); got != 0 {
		t.Error("a charging battery should not raise a low-battery alert")
	}
}

func TestEngine_AcknowledgeAndStats(t *testing.T) {
	engine := NewEngine(testConfig())
	engine.Process(oxygenReading(88, 72))

	alerts := engine.List(Filter{})
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	if err := engine.Acknowledge(alerts[0].ID); err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}

	stats := engine.Stats()
	if stats.TotalAlerts != 1 || stats.ActiveAlerts != 0 {
		t.Errorf("stats = %+v, want 1 total and 0 active", stats)
	}

	if err := engine.Acknowledge("missing"); err != ErrAlertNotFound {
		t.Errorf("unknown id should return ErrAlertNotFound, got %v", err)
	}
}

func TestEngine_DisabledEngineIsInert(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	engine := NewEngine(cfg)

	engine.Process(oxygenReading(85, 72))

	if got := len(engine.List(Filter{})); got != 0 {
		t.Errorf("disabled engine raised %d alerts", got)
	}
}

func TestEngine_FilterBySeverity(t *testing.T) {
	engine := NewEngine(testConfig())
	engine.Process(oxygenReading(88, 72))
	engine.Process(models.Reading{
		Kind:        models.KindTemperature,
		Valid:       true,
		Temperature: &models.TemperatureReading{Value: 38.2, Unit: "C"},
	})

	critical := engine.List(Filter{Severity: models.SeverityCritical})
	if len(critical) != 1 || critical[0].Kind != models.KindBloodOxygen {
		t.Errorf("critical filter returned %v", critical)
	}
}
