// Package protocol decodes HC03 characteristic notifications into typed
// readings. Each detection kind carries one of two wire shapes: the
// vendor protocol is UTF-8 JSON with kind-specific field names, and the
// fallback is the binary layout of the matching Bluetooth SIG health
// profile. Decoders never fail hard; a malformed notification yields a
// zero reading so the subscription survives.
package protocol

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savegress/vitalink/pkg/models"
)

// Decode converts one raw notification payload into a Reading for the
// given kind. JSON is attempted first; on syntax failure the payload is
// dispatched to the kind's fixed-offset binary parser.
func Decode(kind models.DetectionKind, deviceID string, data []byte) models.Reading {
	reading := models.Reading{
		Kind:      kind,
		DeviceID:  deviceID,
		Timestamp: time.Now(),
	}

	if len(data) == 0 {
		logrus.WithField("kind", kind).Debug("empty notification payload")
		return zeroReading(reading)
	}

	// JSON-looking payloads are vendor frames; anything else is parsed
	// as the kind's SIG profile layout. Vendor frames that fail to
	// decode are not re-interpreted as binary, since ASCII bytes make
	// superficially plausible fixed-offset fields.
	var ok bool
	if looksLikeJSON(data) {
		ok = decodeVendor(kind, data, &reading)
	} else {
		ok = decodeBinary(kind, data, &reading)
	}
	if !ok {
		logrus.WithFields(logrus.Fields{
			"kind": kind,
			"len":  len(data),
		}).Debug("undecodable notification payload")
		return zeroReading(reading)
	}

	reading.Valid = true
	return reading
}

func looksLikeJSON(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}

func decodeVendor(kind models.DetectionKind, data []byte, r *models.Reading) bool {
	switch kind {
	case models.KindECG:
		return decodeVendorECG(data, r)
	case models.KindBloodOxygen:
		return decodeVendorOxygen(data, r)
	case models.KindPressure:
		return decodeVendorPressure(data, r)
	case models.KindGlucose:
		return decodeVendorGlucose(data, r)
	case models.KindTemperature:
		return decodeVendorTemperature(data, r)
	case models.KindBattery:
		return decodeVendorBattery(data, r)
	default:
		return false
	}
}

func decodeBinary(kind models.DetectionKind, data []byte, r *models.Reading) bool {
	switch kind {
	case models.KindECG:
		return decodeHeartRateMeasurement(data, r)
	case models.KindBloodOxygen:
		return decodePLXContinuous(data, r)
	case models.KindPressure:
		return decodeBloodPressureMeasurement(data, r)
	case models.KindGlucose:
		return decodeGlucoseMeasurement(data, r)
	case models.KindTemperature:
		return decodeTemperatureMeasurement(data, r)
	case models.KindBattery:
		return decodeBatteryLevel(data, r)
	default:
		return false
	}
}

// zeroReading fills in the kind's empty payload so consumers always see
// the right variant populated, with Valid left false
func zeroReading(r models.Reading) models.Reading {
	r.Valid = false
	switch r.Kind {
	case models.KindECG:
		r.ECG = &models.ECGReading{}
	case models.KindBloodOxygen:
		r.BloodOxygen = &models.BloodOxygenReading{}
	case models.KindPressure:
		r.Pressure = &models.PressureReading{}
	case models.KindGlucose:
		r.Glucose = &models.GlucoseReading{}
	case models.KindTemperature:
		r.Temperature = &models.TemperatureReading{Unit: "C"}
	case models.KindBattery:
		r.Battery = &models.BatteryReading{}
	}
	return r
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
