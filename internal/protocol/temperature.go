package protocol

import (
	"encoding/json"
	"math"

	"github.com/savegress/vitalink/pkg/models"
)

// vendorTemperature is the vendor JSON shape for thermometer
// notifications
type vendorTemperature struct {
	Temperature *float64 `json:"temperature"`
	Unit        string   `json:"unit"`
}

func decodeVendorTemperature(data []byte, r *models.Reading) bool {
	var v vendorTemperature
	if err := json.Unmarshal(data, &v); err != nil || v.Temperature == nil {
		return false
	}

	value := *v.Temperature
	if v.Unit == "F" {
		value = fahrenheitToCelsius(value)
	}

	r.Temperature = &models.TemperatureReading{
		Value: value,
		Unit:  "C",
	}
	return true
}

// decodeTemperatureMeasurement parses the standard Temperature
// Measurement characteristic of the Health Thermometer profile: a flags
// byte followed by an IEEE-11073 FLOAT.
func decodeTemperatureMeasurement(data []byte, r *models.Reading) bool {
	if len(data) < 5 {
		return false
	}

	fahrenheit := data[0]&0x01 != 0

	value := Float(data[1:5])
	if math.IsNaN(value) {
		return false
	}
	if fahrenheit {
		value = fahrenheitToCelsius(value)
	}

	r.Temperature = &models.TemperatureReading{
		Value: value,
		Unit:  "C",
	}
	return true
}

func fahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}
