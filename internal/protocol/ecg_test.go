package protocol

import (
	"fmt"
	"testing"

	"github.com/savegress/vitalink/pkg/models"
)

func TestDecode_VendorECGSubMessages(t *testing.T) {
	tests := []struct {
		payload string
		check   func(*models.ECGReading) error
	}{
		{`{"type":"HR","data":72}`, func(e *models.ECGReading) error {
			if e.HeartRate != 72 {
				return fmt.Errorf("heart rate = %d", e.HeartRate)
			}
			return nil
		}},
		{`{"type":"RR","data":820}`, func(e *models.ECGReading) error {
			if e.RRIntervalMs != 820 {
				return fmt.Errorf("rr = %d", e.RRIntervalMs)
			}
			return nil
		}},
		{`{"type":"HRV","data":44}`, func(e *models.ECGReading) error {
			if e.HRV != 44 {
				return fmt.Errorf("hrv = %d", e.HRV)
			}
			return nil
		}},
		{`{"type":"RESPIRATORY_RATE","data":16}`, func(e *models.ECGReading) error {
			if e.RespiratoryRate != 16 {
				return fmt.Errorf("resp = %d", e.RespiratoryRate)
			}
			return nil
		}},
		{`{"type":"touch","data":1}`, func(e *models.ECGReading) error {
			if !e.FingerContact {
				return fmt.Errorf("finger contact not set")
			}
			return nil
		}},
		{`{"type":"wave","data":[10,-4,7]}`, func(e *models.ECGReading) error {
			if len(e.Wave) != 3 || e.Wave[0] != 10 || e.Wave[1] != -4 || e.Wave[2] != 7 {
				return fmt.Errorf("wave = %v", e.Wave)
			}
			return nil
		}},
		{`{"type":"Mood Index","data":55}`, func(e *models.ECGReading) error {
			if e.MoodIndex != 55 || e.MoodBand != models.MoodNeutral {
				return fmt.Errorf("mood = %d band %s", e.MoodIndex, e.MoodBand)
			}
			if e.DeviceStop {
				return fmt.Errorf("non-zero mood should not mark device stop")
			}
			return nil
		}},
	}

	for _, tt := range tests {
		r := Decode(models.KindECG, testDevice, []byte(tt.payload))
		if !r.Valid {
			t.Fatalf("%s: expected valid reading", tt.payload)
		}
		if err := tt.check(r.ECG); err != nil {
			t.Errorf("%s: %v", tt.payload, err)
		}
	}
}

func TestDecode_ECGMoodZeroIsDeviceStop(t *testing.T) {
	r := Decode(models.KindECG, testDevice, []byte(`{"type":"Mood Index","data":0}`))

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if !r.ECG.DeviceStop {
		t.Error("mood index 0 should surface as a device stop marker")
	}
	if r.ECG.MoodBand != "" {
		t.Error("mood index 0 has no band")
	}
}

func TestDecode_ECGUnknownSubMessage(t *testing.T) {
	r := Decode(models.KindECG, testDevice, []byte(`{"type":"unknown","data":1}`))
	if r.Valid {
		t.Error("unknown sub-message type should not decode")
	}
}

func TestDecode_BinaryHeartRate(t *testing.T) {
	// flags: contact supported + detected, RR present; hr 72; rr 1024 (1s)
	data := []byte{0x16, 72, 0x00, 0x04}
	r := Decode(models.KindECG, testDevice, data)

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if r.ECG.HeartRate != 72 {
		t.Errorf("heart rate = %d, want 72", r.ECG.HeartRate)
	}
	if !r.ECG.FingerContact {
		t.Error("contact detected flag should map to finger contact")
	}
	if r.ECG.RRIntervalMs != 1000 {
		t.Errorf("rr = %d, want 1000", r.ECG.RRIntervalMs)
	}
}

func TestDecode_BinaryHeartRateWideFormat(t *testing.T) {
	// flags: 16-bit heart rate; hr 300
	data := []byte{0x01, 0x2C, 0x01}
	r := Decode(models.KindECG, testDevice, data)

	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if r.ECG.HeartRate != 300 {
		t.Errorf("heart rate = %d, want 300", r.ECG.HeartRate)
	}
}

func TestWaveBuffer_Cap(t *testing.T) {
	var b WaveBuffer

	batch := make([]int, 100)
	total := 0
	for i := 0; i < 25; i++ {
		for j := range batch {
			batch[j] = total
			total++
		}
		b.Append(batch)
	}

	if b.Len() != MaxWaveSamples {
		t.Fatalf("buffer holds %d samples, want %d", b.Len(), MaxWaveSamples)
	}

	samples := b.Samples()
	// 2500 fed; the oldest 300 must be gone and order preserved
	if samples[0] != 300 {
		t.Errorf("oldest retained sample = %d, want 300", samples[0])
	}
	if samples[len(samples)-1] != 2499 {
		t.Errorf("newest sample = %d, want 2499", samples[len(samples)-1])
	}
	for i := 1; i < len(samples); i++ {
		if samples[i] != samples[i-1]+1 {
			t.Fatalf("order broken at index %d", i)
		}
	}
}

func TestWaveBuffer_Reset(t *testing.T) {
	var b WaveBuffer
	b.Append([]int{1, 2, 3})
	b.Reset()

	if b.Len() != 0 {
		t.Error("reset buffer should be empty")
	}
}

func TestWaveBuffer_SamplesIsCopy(t *testing.T) {
	var b WaveBuffer
	b.Append([]int{1, 2, 3})

	s := b.Samples()
	s[0] = 99

	if b.Samples()[0] != 1 {
		t.Error("Samples should return a copy")
	}
}
