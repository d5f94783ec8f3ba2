package protocol

import (
	"encoding/json"
	"math"

	"github.com/savegress/vitalink/pkg/models"
)

// vendorPressure is the vendor JSON shape for blood-pressure
// notifications. Final results carry ps/pd/hr; while the cuff is
// inflating the device instead streams pressure/percent progress frames.
type vendorPressure struct {
	Systolic     *int `json:"ps"`
	Diastolic    *int `json:"pd"`
	HeartRate    int  `json:"hr"`
	MeanArterial int  `json:"map"`
	CuffPressure *int `json:"pressure"`
	Percent      int  `json:"percent"`
}

func decodeVendorPressure(data []byte, r *models.Reading) bool {
	var v vendorPressure
	if err := json.Unmarshal(data, &v); err != nil {
		return false
	}

	switch {
	case v.Systolic != nil && v.Diastolic != nil:
		r.Pressure = &models.PressureReading{
			Systolic:     *v.Systolic,
			Diastolic:    *v.Diastolic,
			HeartRate:    v.HeartRate,
			MeanArterial: v.MeanArterial,
		}
	case v.CuffPressure != nil:
		r.Pressure = &models.PressureReading{
			CuffPressure:    *v.CuffPressure,
			PercentComplete: clamp(v.Percent, 0, 100),
			InProgress:      true,
		}
	default:
		return false
	}
	return true
}

// decodeBloodPressureMeasurement parses the standard Blood Pressure
// Measurement characteristic: flags, then systolic/diastolic/MAP
// SFLOATs, optional timestamp and pulse rate.
func decodeBloodPressureMeasurement(data []byte, r *models.Reading) bool {
	if len(data) < 7 {
		return false
	}

	flags := data[0]
	kpa := flags&0x01 != 0
	timestampPresent := flags&0x02 != 0
	pulsePresent := flags&0x04 != 0

	systolic := SFloat(data[1:3])
	diastolic := SFloat(data[3:5])
	meanArterial := SFloat(data[5:7])
	if math.IsNaN(systolic) || math.IsNaN(diastolic) {
		return false
	}
	if kpa {
		// 1 kPa = 7.5006 mmHg
		systolic *= 7.5006
		diastolic *= 7.5006
		meanArterial *= 7.5006
	}

	offset := 7
	if timestampPresent {
		offset += 7
	}

	reading := &models.PressureReading{
		Systolic:  int(math.Round(systolic)),
		Diastolic: int(math.Round(diastolic)),
	}
	if !math.IsNaN(meanArterial) {
		reading.MeanArterial = int(math.Round(meanArterial))
	}
	if pulsePresent && len(data) >= offset+2 {
		if pulse := SFloat(data[offset : offset+2]); !math.IsNaN(pulse) {
			reading.HeartRate = int(pulse)
		}
	}

	r.Pressure = reading
	return true
}
