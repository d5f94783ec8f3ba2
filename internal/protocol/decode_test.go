package protocol

import (
	"math"
	"testing"

	"github.com/savegress/vitalink/pkg/models"
)

const testDevice = "AA:BB:CC:DD:EE:FF"

func TestSFloat(t *testing.T) {
	tests := []struct {
		data []byte
		want float64
	}{
		{[]byte{0x78, 0x00}, 120},   // 120 * 10^0
		{[]byte{0x50, 0x00}, 80},    // 80 * 10^0
		{[]byte{0x37, 0xC0}, 0.0055}, // 55 * 10^-4
		{[]byte{0x70, 0xF1}, 36.8},  // 368 * 10^-1
	}

	for _, tt := range tests {
		got := SFloat(tt.data)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SFloat(%v) = %v, want %v", tt.data, got, tt.want)
		}
	}
}

func TestSFloat_Special(t *testing.T) {
	if !math.IsNaN(SFloat([]byte{0xFF, 0x07})) {
		t.Error("SFLOAT NaN value should decode as NaN")
	}
	if !math.IsNaN(SFloat([]byte{0x01})) {
		t.Error("short input should decode as NaN")
	}
}

func TestFloat(t *testing.T) {
	// 368 * 10^-1 = 36.8: mantissa 0x000170, exponent -1 (0xFF)
	got := Float([]byte{0x70, 0x01, 0x00, 0xFF})
	if math.Abs(got-36.8) > 1e-9 {
		t.Errorf("Float = %v, want 36.8", got)
	}
	if !math.IsNaN(Float([]byte{0xFF, 0xFF, 0x7F, 0x00})) {
		t.Error("FLOAT NaN value should decode as NaN")
	}
}

func TestDecode_VendorPressure(t *testing.T) {
	r := Decode(models.KindPressure, testDevice, []byte(`{"ps":120,"pd":80,"hr":72}`))

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if r.Kind != models.KindPressure || r.DeviceID != testDevice {
		t.Error("reading not tagged with kind and device")
	}
	if r.Pressure.Systolic != 120 || r.Pressure.Diastolic != 80 || r.Pressure.HeartRate != 72 {
		t.Errorf("unexpected pressure reading: %+v", r.Pressure)
	}
	if r.Pressure.InProgress {
		t.Error("final result should not be marked in progress")
	}
}

func TestDecode_VendorPressureProgress(t *testing.T) {
	r := Decode(models.KindPressure, testDevice, []byte(`{"pressure":148,"percent":60}`))

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if !r.Pressure.InProgress || r.Pressure.CuffPressure != 148 || r.Pressure.PercentComplete != 60 {
		t.Errorf("unexpected progress reading: %+v", r.Pressure)
	}
}

func TestDecode_BinaryPressure(t *testing.T) {
	// flags: pulse rate present; sys 120, dia 80, MAP 93, pulse 72
	data := []byte{0x04, 0x78, 0x00, 0x50, 0x00, 0x5D, 0x00, 0x48, 0x00}
	r := Decode(models.KindPressure, testDevice, data)

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	p := r.Pressure
	if p.Systolic != 120 || p.Diastolic != 80 || p.MeanArterial != 93 || p.HeartRate != 72 {
		t.Errorf("unexpected reading: %+v", p)
	}
}

func TestDecode_VendorOxygen(t *testing.T) {
	r := Decode(models.KindBloodOxygen, testDevice, []byte(`{"bloodOxygen":98,"heartRate":72,"fingerDetection":true}`))

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	o := r.BloodOxygen
	if o.SpO2 != 98 || o.HeartRate != 72 || !o.FingerContact {
		t.Errorf("unexpected reading: %+v", o)
	}
}

func TestDecode_BinaryOxygen(t *testing.T) {
	// flags, SpO2 98, pulse 72 as SFLOATs
	data := []byte{0x00, 0x62, 0x00, 0x48, 0x00}
	r := Decode(models.KindBloodOxygen, testDevice, data)

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if r.BloodOxygen.SpO2 != 98 || r.BloodOxygen.HeartRate != 72 {
		t.Errorf("unexpected reading: %+v", r.BloodOxygen)
	}
}

func TestDecode_VendorTemperature(t *testing.T) {
	r := Decode(models.KindTemperature, testDevice, []byte(`{"temperature":36.8}`))

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if math.Abs(r.Temperature.Value-36.8) > 1e-9 || r.Temperature.Unit != "C" {
		t.Errorf("unexpected reading: %+v", r.Temperature)
	}
}

func TestDecode_BinaryTemperature(t *testing.T) {
	// Celsius flags, FLOAT 36.8
	data := []byte{0x00, 0x70, 0x01, 0x00, 0xFF}
	r := Decode(models.KindTemperature, testDevice, data)

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if math.Abs(r.Temperature.Value-36.8) > 1e-9 {
		t.Errorf("got %v, want 36.8", r.Temperature.Value)
	}
}

func TestDecode_BinaryTemperatureFahrenheit(t *testing.T) {
	// Fahrenheit flag set, FLOAT 986 * 10^-1 = 98.6F = 37C
	data := []byte{0x01, 0xDA, 0x03, 0x00, 0xFF}
	r := Decode(models.KindTemperature, testDevice, data)

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if math.Abs(r.Temperature.Value-37.0) > 1e-6 {
		t.Errorf("got %v, want 37.0", r.Temperature.Value)
	}
}

func TestDecode_VendorGlucose(t *testing.T) {
	r := Decode(models.KindGlucose, testDevice, []byte(`{"bloodGlucose":5.4,"unit":"mmol/L"}`))

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if math.Abs(r.Glucose.Concentration-5.4) > 1e-9 || r.Glucose.Unit != models.UnitMmolL {
		t.Errorf("unexpected reading: %+v", r.Glucose)
	}
}

func TestDecode_VendorGlucoseStripStates(t *testing.T) {
	tests := []struct {
		payload string
		want    models.StripState
	}{
		{`{"paper":0}`, models.StripReady},
		{`{"paper":1}`, models.StripInserted},
		{`{"paper":2}`, models.StripMeasuring},
		{`{"paper":3}`, models.StripComplete},
		{`{"paper":4}`, models.StripError},
	}

	for _, tt := range tests {
		r := Decode(models.KindGlucose, testDevice, []byte(tt.payload))
		if !r.Valid {
			t.Fatalf("%s: expected valid reading", tt.payload)
		}
		if r.Glucose.StripState != tt.want {
			t.Errorf("%s: got state %s, want %s", tt.payload, r.Glucose.StripState, tt.want)
		}
		if r.Glucose.Concentration != 0 {
			t.Errorf("%s: strip signal should carry no concentration", tt.payload)
		}
	}
}

func TestDecode_BinaryGlucose(t *testing.T) {
	// flags: concentration present, mol/L; seq 1; base time 2024-01-01 00:00:00
	data := []byte{
		0x06,
		0x01, 0x00, // sequence
		0xE8, 0x07, 0x01, 0x01, 0x00, 0x00, 0x00, // base time
		0x37, 0xC0, // 0.0055 mol/L
		0x11, // type/sample location
	}
	r := Decode(models.KindGlucose, testDevice, data)

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if math.Abs(r.Glucose.Concentration-5.5) > 1e-9 || r.Glucose.Unit != models.UnitMmolL {
		t.Errorf("unexpected reading: %+v", r.Glucose)
	}
}

func TestDecode_VendorBattery(t *testing.T) {
	r := Decode(models.KindBattery, testDevice, []byte(`{"battery":80,"charging":true}`))

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if r.Battery.Level != 80 || !r.Battery.Charging {
		t.Errorf("unexpected reading: %+v", r.Battery)
	}
}

func TestDecode_BinaryBatteryClamped(t *testing.T) {
	r := Decode(models.KindBattery, testDevice, []byte{0xFF})

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if r.Battery.Level != 100 {
		t.Errorf("out-of-range level should clamp to 100, got %d", r.Battery.Level)
	}
}

func TestDecode_VendorBatteryClamped(t *testing.T) {
	r := Decode(models.KindBattery, testDevice, []byte(`{"battery":150}`))
	if r.Battery.Level != 100 {
		t.Errorf("got %d, want 100", r.Battery.Level)
	}

	r = Decode(models.KindBattery, testDevice, []byte(`{"battery":-5}`))
	if r.Battery.Level != 0 {
		t.Errorf("got %d, want 0", r.Battery.Level)
	}
}

func TestDecode_MalformedPayloads(t *testing.T) {
	payloads := [][]byte{
		nil,
		{},
		[]byte(`{"garbage"`),
		[]byte(`{"unrelated":true}`),
		{0xDE},
	}

	for _, kind := range models.AllKinds {
		for _, payload := range payloads {
			if kind == models.KindBattery && len(payload) == 1 && payload[0] == 0xDE {
				// single byte is a valid battery level
				continue
			}
			r := Decode(kind, testDevice, payload)
			if r.Valid {
				t.Errorf("kind %s: malformed payload %q decoded as valid", kind, payload)
			}
			if r.Kind != kind {
				t.Errorf("kind %s: zero reading lost its kind tag", kind)
			}
		}
	}
}

func TestDecode_ZeroReadingHasPayload(t *testing.T) {
	r := Decode(models.KindPressure, testDevice, []byte(`bogus`))
	if r.Pressure == nil {
		t.Fatal("zero reading should carry an empty payload variant")
	}
	if r.Pressure.Systolic != 0 || r.Pressure.Diastolic != 0 {
		t.Error("zero reading fields should be zero")
	}
}
