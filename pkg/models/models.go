package models

import "time"

// DetectionKind identifies a measurement type supported by the device
type DetectionKind string

const (
	KindECG         DetectionKind = "ecg"
	KindBloodOxygen DetectionKind = "blood_oxygen"
	KindPressure    DetectionKind = "blood_pressure"
	KindGlucose     DetectionKind = "blood_glucose"
	KindTemperature DetectionKind = "temperature"
	KindBattery     DetectionKind = "battery"
)

// AllKinds lists every detection kind in a stable order
var AllKinds = []DetectionKind{
	KindECG,
	KindBloodOxygen,
	KindPressure,
	KindGlucose,
	KindTemperature,
	KindBattery,
}

// Valid reports whether k is a known detection kind
func (k DetectionKind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ConnectionState represents the state of the device connection
type ConnectionState string

const (
	StateIdle       ConnectionState = "idle"
	StateScanning   ConnectionState = "scanning"
	StateConnecting ConnectionState = "connecting"
	StateConnected  ConnectionState = "connected"
	StateError      ConnectionState = "error"
)

// DeviceInfo is a read-only projection of the connected device handle
type DeviceInfo struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Address         string          `json:"address,omitempty"`
	State           ConnectionState `json:"state"`
	BatteryLevel    int             `json:"battery_level"`
	Charging        bool            `json:"charging"`
	FirmwareVersion string          `json:"firmware_version,omitempty"`
	SupportedKinds  []DetectionKind `json:"supported_kinds"`
	LastSeen        time.Time       `json:"last_seen"`
}

// MoodBand classifies the device mood index (1-100) into five bands
type MoodBand string

const (
	MoodVeryLow  MoodBand = "very_low"
	MoodLow      MoodBand = "low"
	MoodNeutral  MoodBand = "neutral"
	MoodHigh     MoodBand = "high"
	MoodVeryHigh MoodBand = "very_high"
)

// MoodBandFor maps a mood index to its band. Index 0 is the device stop
// marker and has no band.
func MoodBandFor(index int) MoodBand {
	switch {
	case index <= 0:
		return ""
	case index <= 20:
		return MoodVeryLow
	case index <= 40:
		return MoodLow
	case index <= 60:
		return MoodNeutral
	case index <= 80:
		return MoodHigh
	default:
		return MoodVeryHigh
	}
}

// StripState is the test-strip signal that precedes a glucose result
type StripState string

const (
	StripReady     StripState = "ready"
	StripInserted  StripState = "inserted"
	StripMeasuring StripState = "measuring"
	StripComplete  StripState = "complete"
	StripError     StripState = "error"
)

// GlucoseUnit is the unit a glucose concentration is reported in
type GlucoseUnit string

const (
	UnitMgDL  GlucoseUnit = "mg/dL"
	UnitMmolL GlucoseUnit = "mmol/L"
)

// Reading is a decoded measurement. Exactly one of the per-kind payloads
// is set, matching Kind.
type Reading struct {
	Kind      DetectionKind `json:"kind"`
	DeviceID  string        `json:"device_id"`
	Timestamp time.Time     `json:"timestamp"`
	Valid     bool          `json:"valid"`

	ECG         *ECGReading         `json:"ecg,omitempty"`
	BloodOxygen *BloodOxygenReading `json:"blood_oxygen,omitempty"`
	Pressure    *PressureReading    `json:"blood_pressure,omitempty"`
	Glucose     *GlucoseReading     `json:"blood_glucose,omitempty"`
	Temperature *TemperatureReading `json:"temperature,omitempty"`
	Battery     *BatteryReading     `json:"battery,omitempty"`
}

// ECGReading holds one decoded ECG notification. The device multiplexes
// several sub-message types over one characteristic, so most fields are
// only set on the notification that carried them.
type ECGReading struct {
	HeartRate       int      `json:"heart_rate,omitempty"`
	MoodIndex       int      `json:"mood_index,omitempty"`
	MoodBand        MoodBand `json:"mood_band,omitempty"`
	RRIntervalMs    int      `json:"rr_interval_ms,omitempty"`
	HRV             int      `json:"hrv,omitempty"`
	RespiratoryRate int      `json:"respiratory_rate,omitempty"`
	FingerContact   bool     `json:"finger_contact"`
	Wave            []int    `json:"wave,omitempty"`

	// DeviceStop is set when the device signals the end of the run
	// (mood index sub-message with value 0).
	DeviceStop bool `json:"device_stop,omitempty"`
}

// BloodOxygenReading is a pulse-oximeter measurement
type BloodOxygenReading struct {
	SpO2          int   `json:"spo2"`
	HeartRate     int   `json:"heart_rate"`
	FingerContact bool  `json:"finger_contact"`
	Wave          []int `json:"wave,omitempty"`
}

// PressureReading is a blood-pressure measurement. During inflation the
// cuff reports in-progress pressure and percent complete instead of a
// final result.
type PressureReading struct {
	Systolic        int  `json:"systolic"`
	Diastolic       int  `json:"diastolic"`
	HeartRate       int  `json:"heart_rate"`
	MeanArterial    int  `json:"mean_arterial,omitempty"`
	CuffPressure    int  `json:"cuff_pressure,omitempty"`
	PercentComplete int  `json:"percent_complete,omitempty"`
	InProgress      bool `json:"in_progress,omitempty"`
}

// GlucoseReading is a blood-glucose measurement or strip-state signal
type GlucoseReading struct {
	Concentration float64     `json:"concentration,omitempty"`
	Unit          GlucoseUnit `json:"unit,omitempty"`
	StripState    StripState  `json:"strip_state,omitempty"`
}

// TemperatureReading is a body-temperature measurement in Celsius
type TemperatureReading struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// BatteryReading is a battery status report
type BatteryReading struct {
	Level    int  `json:"level"`
	Charging bool `json:"charging"`
}

// VitalAlert is raised when a decoded reading crosses a physiological
// threshold
type VitalAlert struct {
	ID           string        `json:"id"`
	Kind         DetectionKind `json:"kind"`
	DeviceID     string        `json:"device_id"`
	Severity     AlertSeverity `json:"severity"`
	Title        string        `json:"title"`
	Message      string        `json:"message"`
	TriggerValue float64       `json:"trigger_value"`
	Threshold    float64       `json:"threshold"`
	Acknowledged bool          `json:"acknowledged"`
	CreatedAt    time.Time     `json:"created_at"`
}

// AlertSeverity represents alert severity levels
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)
