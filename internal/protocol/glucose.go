package protocol

import (
	"encoding/json"
	"math"

	"github.com/savegress/vitalink/pkg/models"
)

// vendorGlucose is the vendor JSON shape for glucose notifications. The
// strip-state signal (paper) precedes the numeric result.
type vendorGlucose struct {
	BloodGlucose *float64 `json:"bloodGlucose"`
	Unit         string   `json:"unit"`
	Paper        *int     `json:"paper"`
}

// Strip state codes sent by the device firmware
var stripStates = map[int]models.StripState{
	0: models.StripReady,
	1: models.StripInserted,
	2: models.StripMeasuring,
	3: models.StripComplete,
	4: models.StripError,
}

func decodeVendorGlucose(data []byte, r *models.Reading) bool {
	var v vendorGlucose
	if err := json.Unmarshal(data, &v); err != nil {
		return false
	}

	switch {
	case v.BloodGlucose != nil:
		unit := models.UnitMmolL
		if v.Unit == string(models.UnitMgDL) {
			unit = models.UnitMgDL
		}
		r.Glucose = &models.GlucoseReading{
			Concentration: *v.BloodGlucose,
			Unit:          unit,
		}
	case v.Paper != nil:
		state, ok := stripStates[*v.Paper]
		if !ok {
			return false
		}
		r.Glucose = &models.GlucoseReading{StripState: state}
	default:
		return false
	}
	return true
}

// decodeGlucoseMeasurement parses the standard Glucose Measurement
// characteristic: flags, sequence number, base time, then optional time
// offset and concentration fields.
func decodeGlucoseMeasurement(data []byte, r *models.Reading) bool {
	if len(data) < 10 {
		return false
	}

	flags := data[0]
	timeOffsetPresent := flags&0x01 != 0
	concentrationPresent := flags&0x02 != 0
	molPerL := flags&0x04 != 0

	// sequence number (2) + base time (7)
	offset := 10
	if timeOffsetPresent {
		offset += 2
	}

	if !concentrationPresent || len(data) < offset+2 {
		return false
	}

	raw := SFloat(data[offset : offset+2])
	if math.IsNaN(raw) {
		return false
	}

	reading := &models.GlucoseReading{StripState: models.StripComplete}
	if molPerL {
		// wire unit is mol/L, reported as mmol/L
		reading.Concentration = raw * 1000
		reading.Unit = models.UnitMmolL
	} else {
		// wire unit is kg/L, reported as mg/dL
		reading.Concentration = raw * 100000
		reading.Unit = models.UnitMgDL
	}

	r.Glucose = reading
	return true
}
