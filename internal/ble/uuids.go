package ble

import "github.com/savegress/vitalink/pkg/models"

// Standard Bluetooth SIG service and characteristic UUIDs the decoders
// depend on, plus the HC03 vendor custom service. 16-bit forms; the
// platform adapter expands them.
const (
	ServiceBattery           = "180f"
	ServiceHealthThermometer = "1809"
	ServiceBloodPressure     = "1810"
	ServiceGlucose           = "1808"
	ServicePulseOximeter     = "1822"
	ServiceHeartRate         = "180d"

	CharBatteryLevel           = "2a19"
	CharTemperatureMeasurement = "2a1c"
	CharBloodPressureMeasure   = "2a35"
	CharGlucoseMeasurement     = "2a18"
	CharPLXContinuous          = "2a5f"
	CharHeartRateMeasurement   = "2a37"

	// HC03 vendor custom service. All vendor-format readings arrive as
	// notifications on the FFF1 characteristic; commands go to FFF2.
	ServiceVendor    = "0000fff0-0000-1000-8000-00805f9b34fb"
	CharVendorNotify = "0000fff1-0000-1000-8000-00805f9b34fb"
	CharVendorWrite  = "0000fff2-0000-1000-8000-00805f9b34fb"

	// Device name prefix used as the default discovery filter
	VendorNamePrefix = "HC03"
)

var vendorRef = CharacteristicRef{Service: ServiceVendor, Characteristic: CharVendorNotify}

// kindCandidates maps each detection kind to its characteristic
// resolution chain. Battery prefers the standard Battery Service because
// it supports a point-in-time read; the continuous measurement kinds
// prefer the vendor stream and fall back to the matching SIG profile.
var kindCandidates = map[models.DetectionKind][]CharacteristicRef{
	models.KindECG: {
		vendorRef,
		{Service: ServiceHeartRate, Characteristic: CharHeartRateMeasurement},
	},
	models.KindBloodOxygen: {
		vendorRef,
		{Service: ServicePulseOximeter, Characteristic: CharPLXContinuous},
	},
	models.KindPressure: {
		vendorRef,
		{Service: ServiceBloodPressure, Characteristic: CharBloodPressureMeasure},
	},
	models.KindGlucose: {
		vendorRef,
		{Service: ServiceGlucose, Characteristic: CharGlucoseMeasurement},
	},
	models.KindTemperature: {
		vendorRef,
		{Service: ServiceHealthThermometer, Characteristic: CharTemperatureMeasurement},
	},
	models.KindBattery: {
		{Service: ServiceBattery, Characteristic: CharBatteryLevel},
		vendorRef,
	},
}

// CandidatesFor returns the characteristic resolution chain for a kind
func CandidatesFor(kind models.DetectionKind) []CharacteristicRef {
	return kindCandidates[kind]
}

// ServiceFor returns the primary service UUID used as a discovery filter
// when connecting for a specific kind
func ServiceFor(kind models.DetectionKind) string {
	refs := kindCandidates[kind]
	if len(refs) == 0 {
		return ServiceVendor
	}
	return refs[0].Service
}
