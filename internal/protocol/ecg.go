package protocol

import (
	"encoding/binary"
	"encoding/json"

	"github.com/savegress/vitalink/pkg/models"
)

// MaxWaveSamples bounds accumulated ECG/SpO2 waveform data. When the
// buffer is full the oldest samples are trimmed first.
const MaxWaveSamples = 2200

// vendorECGFrame is one vendor notification on the ECG stream. The
// device multiplexes several sub-message types over the same
// characteristic, discriminated by the type field.
type vendorECGFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Vendor ECG sub-message type tags as sent by the device firmware
const (
	ecgMsgWave        = "wave"
	ecgMsgHR          = "HR"
	ecgMsgMood        = "Mood Index"
	ecgMsgRR          = "RR"
	ecgMsgHRV         = "HRV"
	ecgMsgRespiratory = "RESPIRATORY_RATE"
	ecgMsgTouch       = "touch"
)

func decodeVendorECG(data []byte, r *models.Reading) bool {
	var frame vendorECGFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return false
	}

	ecg := &models.ECGReading{}
	switch frame.Type {
	case ecgMsgWave:
		var samples []int
		if err := json.Unmarshal(frame.Data, &samples); err != nil {
			return false
		}
		ecg.Wave = samples
	case ecgMsgHR:
		v, ok := intValue(frame.Data)
		if !ok {
			return false
		}
		ecg.HeartRate = v
	case ecgMsgMood:
		v, ok := intValue(frame.Data)
		if !ok {
			return false
		}
		ecg.MoodIndex = v
		ecg.MoodBand = models.MoodBandFor(v)
		// The firmware reports mood index 0 when it decides the run
		// is over; surface it as a stop marker.
		if v == 0 {
			ecg.DeviceStop = true
		}
	case ecgMsgRR:
		v, ok := intValue(frame.Data)
		if !ok {
			return false
		}
		ecg.RRIntervalMs = v
	case ecgMsgHRV:
		v, ok := intValue(frame.Data)
		if !ok {
			return false
		}
		ecg.HRV = v
	case ecgMsgRespiratory:
		v, ok := intValue(frame.Data)
		if !ok {
			return false
		}
		ecg.RespiratoryRate = v
	case ecgMsgTouch:
		v, ok := intValue(frame.Data)
		if !ok {
			return false
		}
		ecg.FingerContact = v != 0
	default:
		return false
	}

	r.ECG = ecg
	return true
}

func intValue(raw json.RawMessage) (int, bool) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return int(v), true
}

// decodeHeartRateMeasurement parses the standard Heart Rate Measurement
// characteristic (org.bluetooth.characteristic.heart_rate_measurement)
// as the ECG fallback shape.
func decodeHeartRateMeasurement(data []byte, r *models.Reading) bool {
	if len(data) < 2 {
		return false
	}

	flags := data[0]
	wideFormat := flags&0x01 != 0
	contactSupported := flags&0x04 != 0
	contact := flags&0x06 == 0x06
	rrPresent := flags&0x10 != 0

	offset := 1
	var hr int
	if wideFormat {
		if len(data) < 3 {
			return false
		}
		hr = int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
	} else {
		hr = int(data[offset])
		offset++
	}

	// Skip energy expended when present
	if flags&0x08 != 0 {
		offset += 2
	}

	ecg := &models.ECGReading{
		HeartRate:     hr,
		FingerContact: !contactSupported || contact,
	}

	if rrPresent && len(data) >= offset+2 {
		// 1/1024 s resolution per the profile
		rr := binary.LittleEndian.Uint16(data[offset:])
		ecg.RRIntervalMs = int(uint32(rr) * 1000 / 1024)
	}

	r.ECG = ecg
	return true
}

// WaveBuffer accumulates waveform samples across notifications, keeping
// only the most recent MaxWaveSamples.
type WaveBuffer struct {
	samples []int
}

// Append adds samples, trimming the oldest once the cap is exceeded
func (b *WaveBuffer) Append(samples []int) {
	b.samples = append(b.samples, samples...)
	if excess := len(b.samples) - MaxWaveSamples; excess > 0 {
		b.samples = append(b.samples[:0], b.samples[excess:]...)
	}
}

// Samples returns a copy of the buffered waveform, oldest first
func (b *WaveBuffer) Samples() []int {
	out := make([]int, len(b.samples))
	copy(out, b.samples)
	return out
}

// Len returns the number of buffered samples
func (b *WaveBuffer) Len() int { return len(b.samples) }

// Reset discards all buffered samples
func (b *WaveBuffer) Reset() { b.samples = b.samples[:0] }
