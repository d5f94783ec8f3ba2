// Package alerts evaluates decoded readings against physiological
// thresholds and raises vitals alerts.
package alerts

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/savegress/vitalink/internal/config"
	"github.com/savegress/vitalink/pkg/models"
)

// Engine evaluates readings and manages raised alerts
type Engine struct {
	config    *config.AlertsConfig
	alerts    map[string]*models.VitalAlert
	cooldowns map[string]time.Time // kind:rule -> last alert time
	notifiers []Notifier
	mu        sync.RWMutex
	onAlert   func(*models.VitalAlert)
}

// Notifier sends alert notifications
type Notifier interface {
	Name() string
	Notify(alert *models.VitalAlert) error
}

// NewEngine creates a new alerting engine
func NewEngine(cfg *config.AlertsConfig) *Engine {
	return &Engine{
		config:    cfg,
		alerts:    make(map[string]*models.VitalAlert),
		cooldowns: make(map[string]time.Time),
	}
}

// SetAlertCallback sets a callback for new alerts
func (e *Engine) SetAlertCallback(cb func(*models.VitalAlert)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onAlert = cb
}

// AddNotifier adds a notifier
func (e *Engine) AddNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifiers = append(e.notifiers, n)
}

// Process evaluates one reading against the vitals rules. Invalid
// readings carry no result and are skipped.
func (e *Engine) Process(reading models.Reading) {
	if e.config == nil || !e.config.Enabled || !reading.Valid {
		return
	}

	for _, finding := range evaluate(reading) {
		e.raise(reading, finding)
	}
}

// finding is one triggered rule for a reading
type finding struct {
	rule      string
	severity  models.AlertSeverity
	title     string
	message   string
	value     float64
	threshold float64
}

// evaluate applies the per-kind vitals rules. The thresholds follow
// common clinical reference ranges for adults at rest.
func evaluate(reading models.Reading) []finding {
	var findings []finding

	add := func(rule string, severity models.AlertSeverity, title, message string, value, threshold float64) {
		findings = append(findings, finding{
			rule: rule, severity: severity, title: title,
			message: message, value: value, threshold: threshold,
		})
	}

	switch reading.Kind {
	case models.KindECG:
		hr := reading.ECG.HeartRate
		switch {
		case hr == 0:
		case hr < 40:
			add("hr_low", models.SeverityCritical, "Severe bradycardia",
				fmt.Sprintf("Heart rate %d bpm is below 40 bpm", hr), float64(hr), 40)
		case hr < 50:
			add("hr_low", models.SeverityWarning, "Bradycardia",
				fmt.Sprintf("Heart rate %d bpm is below 50 bpm", hr), float64(hr), 50)
		case hr > 150:
			add("hr_high", models.SeverityCritical, "Severe tachycardia",
				fmt.Sprintf("Heart rate %d bpm is above 150 bpm", hr), float64(hr), 150)
		case hr > 120:
			add("hr_high", models.SeverityWarning, "Tachycardia",
				fmt.Sprintf("Heart rate %d bpm is above 120 bpm", hr), float64(hr), 120)
		}

	case models.KindBloodOxygen:
		spo2 := reading.BloodOxygen.SpO2
		switch {
		case spo2 == 0:
		case spo2 < 90:
			add("spo2_low", models.SeverityCritical, "Severe hypoxemia",
				fmt.Sprintf("SpO2 %d%% is below 90%%", spo2), float64(spo2), 90)
		case spo2 < 94:
			add("spo2_low", models.SeverityWarning, "Low blood oxygen",
				fmt.Sprintf("SpO2 %d%% is below 94%%", spo2), float64(spo2), 94)
		}

	case models.KindPressure:
		p := reading.Pressure
		if p.InProgress || p.Systolic == 0 {
			break
		}
		switch {
		case p.Systolic >= 180 || p.Diastolic >= 120:
			add("bp_high", models.SeverityCritical, "Hypertensive crisis",
				fmt.Sprintf("Blood pressure %d/%d mmHg", p.Systolic, p.Diastolic),
				float64(p.Systolic), 180)
		case p.Systolic >= 140 || p.Diastolic >= 90:
			add("bp_high", models.SeverityWarning, "High blood pressure",
				fmt.Sprintf("Blood pressure %d/%d mmHg", p.Systolic, p.Diastolic),
				float64(p.Systolic), 140)
		case p.Systolic < 90:
			add("bp_low", models.SeverityWarning, "Low blood pressure",
				fmt.Sprintf("Blood pressure %d/%d mmHg", p.Systolic, p.Diastolic),
				float64(p.Systolic), 90)
		}

	case models.KindGlucose:
		g := reading.Glucose
		if g.Concentration == 0 {
			break
		}
		// Thresholds in mmol/L; convert readings reported in mg/dL
		value := g.Concentration
		if g.Unit == models.UnitMgDL {
			value = value / 18.0
		}
		switch {
		case value < 3.0:
			add("glucose_low", models.SeverityCritical, "Severe hypoglycemia",
				fmt.Sprintf("Blood glucose %.1f mmol/L is below 3.0", value), value, 3.0)
		case value < 3.9:
			add("glucose_low", models.SeverityWarning, "Hypoglycemia",
				fmt.Sprintf("Blood glucose %.1f mmol/L is below 3.9", value), value, 3.9)
		case value > 13.9:
			add("glucose_high", models.SeverityCritical, "Severe hyperglycemia",
				fmt.Sprintf("Blood glucose %.1f mmol/L is above 13.9", value), value, 13.9)
		case value > 10.0:
			add("glucose_high", models.SeverityWarning, "Hyperglycemia",
				fmt.Sprintf("Blood glucose %.1f mmol/L is above 10.0", value), value, 10.0)
		}

	case models.KindTemperature:
		v := reading.Temperature.Value
		switch {
		case v == 0:
		case v < 35:
			add("temp_low", models.SeverityCritical, "Hypothermia",
				fmt.Sprintf("Body temperature %.1f C is below 35.0", v), v, 35)
		case v >= 39.5:
			add("temp_high", models.SeverityCritical, "High fever",
				fmt.Sprintf("Body temperature %.1f C is above 39.5", v), v, 39.5)
		case v >= 37.8:
			add("temp_high", models.SeverityWarning, "Fever",
				fmt.Sprintf("Body temperature %.1f C is above 37.8", v), v, 37.8)
		}

	case models.KindBattery:
		level := reading.Battery.Level
		if level <= 15 && !reading.Battery.Charging {
			add("battery_low", models.SeverityInfo, "Device battery low",
				fmt.Sprintf("Battery at %d%%, charge the monitor soon", level), float64(level), 15)
		}
	}

	return findings
}

func (e *Engine) raise(reading models.Reading, f finding) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Dedupe: the same rule firing for the same kind inside the window
	// raises nothing new
	cooldownKey := string(reading.Kind) + ":" + f.rule
	if last, ok := e.cooldowns[cooldownKey]; ok {
		if time.Since(last) < e.config.DedupeWindow {
			return
		}
	}

	activeCount := 0
	for _, alert := range e.alerts {
		if !alert.Acknowledged {
			activeCount++
		}
	}
	if e.config.MaxActive > 0 && activeCount >= e.config.MaxActive {
		return
	}

	alert := &models.VitalAlert{
		ID:           uuid.New().String(),
		Kind:         reading.Kind,
		DeviceID:     reading.DeviceID,
		Severity:     f.severity,
		Title:        f.title,
		Message:      f.message,
		TriggerValue: f.value,
		Threshold:    f.threshold,
		CreatedAt:    time.Now(),
	}

	e.alerts[alert.ID] = alert
	e.cooldowns[cooldownKey] = time.Now()

	for _, notifier := range e.notifiers {
		go notifier.Notify(alert)
	}
	if e.onAlert != nil {
		go e.onAlert(alert)
	}
}

// Get retrieves an alert by ID
func (e *Engine) Get(id string) (*models.VitalAlert, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	alert, ok := e.alerts[id]
	return alert, ok
}

// Filter defines filters for alert queries
type Filter struct {
	Kind         models.DetectionKind
	Severity     models.AlertSeverity
	Acknowledged *bool
}

// List lists alerts matching the filter, newest first
func (e *Engine) List(filter Filter) []*models.VitalAlert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var results []*models.VitalAlert
	for _, alert := range e.alerts {
		if filter.Kind != "" && alert.Kind != filter.Kind {
			continue
		}
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if filter.Acknowledged != nil && alert.Acknowledged != *filter.Acknowledged {
			continue
		}
		results = append(results, alert)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results
}

// Acknowledge marks an alert as seen
func (e *Engine) Acknowledge(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	alert, ok := e.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}
	alert.Acknowledged = true
	return nil
}

// Stats returns alerting statistics
func (e *Engine) Stats() *Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := &Stats{
		TotalAlerts: len(e.alerts),
		BySeverity:  make(map[string]int),
	}
	for _, alert := range e.alerts {
		stats.BySeverity[string(alert.Severity)]++
		if !alert.Acknowledged {
			stats.ActiveAlerts++
		}
	}
	return stats
}

// Stats contains alerting statistics
type Stats struct {
	TotalAlerts  int            `json:"total_alerts"`
	ActiveAlerts int            `json:"active_alerts"`
	BySeverity   map[string]int `json:"by_severity"`
}

// Errors
var (
	ErrAlertNotFound = &Error{Code: "ALERT_NOT_FOUND", Message: "Alert not found"}
)

// Error represents an alerting error
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
