package protocol

import (
	"encoding/json"
	"math"

	"github.com/savegress/vitalink/pkg/models"
)

// vendorOxygen is the vendor JSON shape for pulse-oximeter notifications
type vendorOxygen struct {
	BloodOxygen     *int  `json:"bloodOxygen"`
	HeartRate       int   `json:"heartRate"`
	FingerDetection bool  `json:"fingerDetection"`
	Wave            []int `json:"wave"`
}

func decodeVendorOxygen(data []byte, r *models.Reading) bool {
	var v vendorOxygen
	if err := json.Unmarshal(data, &v); err != nil || v.BloodOxygen == nil {
		return false
	}

	r.BloodOxygen = &models.BloodOxygenReading{
		SpO2:          clamp(*v.BloodOxygen, 0, 100),
		HeartRate:     v.HeartRate,
		FingerContact: v.FingerDetection,
		Wave:          v.Wave,
	}
	return true
}

// decodePLXContinuous parses the standard PLX Continuous Measurement
// characteristic: flags byte followed by SpO2 and pulse rate SFLOATs.
func decodePLXContinuous(data []byte, r *models.Reading) bool {
	if len(data) < 5 {
		return false
	}

	spo2 := SFloat(data[1:3])
	pulse := SFloat(data[3:5])
	if math.IsNaN(spo2) || math.IsNaN(pulse) {
		return false
	}

	r.BloodOxygen = &models.BloodOxygenReading{
		SpO2:          clamp(int(spo2), 0, 100),
		HeartRate:     int(pulse),
		FingerContact: true,
	}
	return true
}
