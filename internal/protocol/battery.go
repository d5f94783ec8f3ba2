package protocol

import (
	"encoding/json"

	"github.com/savegress/vitalink/pkg/models"
)

// vendorBattery is the vendor JSON shape for battery status
// notifications
type vendorBattery struct {
	Battery  *int `json:"battery"`
	Charging bool `json:"charging"`
}

func decodeVendorBattery(data []byte, r *models.Reading) bool {
	var v vendorBattery
	if err := json.Unmarshal(data, &v); err != nil || v.Battery == nil {
		return false
	}

	r.Battery = &models.BatteryReading{
		Level:    clamp(*v.Battery, 0, 100),
		Charging: v.Charging,
	}
	return true
}

// decodeBatteryLevel parses the standard Battery Level characteristic, a
// single percentage byte. Out-of-range values are clamped, never
// propagated as-is.
func decodeBatteryLevel(data []byte, r *models.Reading) bool {
	if len(data) < 1 {
		return false
	}

	r.Battery = &models.BatteryReading{
		Level: clamp(int(data[0]), 0, 100),
	}
	return true
}
