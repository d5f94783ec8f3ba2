package ble

import (
	"errors"
	"strings"
)

// Sentinel errors raised by the transport layer
var (
	ErrUnsupported            = errors.New("bluetooth is not supported on this platform")
	ErrPermissionDenied       = errors.New("bluetooth permission denied")
	ErrInsecureContext        = errors.New("bluetooth requires a secure context")
	ErrDeviceClaimed          = errors.New("device is already connected elsewhere")
	ErrSelectionCancelled     = errors.New("device selection was cancelled")
	ErrDeviceNotFound         = errors.New("no matching device found")
	ErrConnectPending         = errors.New("a connection attempt is already in progress")
	ErrNotConnected           = errors.New("no device connected")
	ErrCharacteristicNotFound = errors.New("characteristic not found on device")
)

// ErrorCategory is a user-facing classification of a connect failure
type ErrorCategory string

const (
	CategoryUnsupported     ErrorCategory = "unsupported_platform"
	CategoryPermission      ErrorCategory = "permission_denied"
	CategoryInsecureContext ErrorCategory = "insecure_context"
	CategoryUnavailable     ErrorCategory = "device_unavailable"
	CategoryCancelled       ErrorCategory = "selection_cancelled"
	CategoryNotFound        ErrorCategory = "not_found"
	CategoryGeneric         ErrorCategory = "generic"
)

// classification pairs a category with an actionable message
type classification struct {
	Category ErrorCategory
	Message  string
}

var classifications = map[ErrorCategory]classification{
	CategoryUnsupported: {
		Category: CategoryUnsupported,
		Message:  "Bluetooth is not supported here. Use a platform with a BLE adapter (on the web, Chrome or Edge).",
	},
	CategoryPermission: {
		Category: CategoryPermission,
		Message:  "Bluetooth permission denied. Grant Bluetooth access (on Android, enable Location) and try again.",
	},
	CategoryInsecureContext: {
		Category: CategoryInsecureContext,
		Message:  "Bluetooth requires a secure context. Serve the application over HTTPS.",
	},
	CategoryUnavailable: {
		Category: CategoryUnavailable,
		Message:  "The device is already connected elsewhere. Disconnect it from the other session first.",
	},
	CategoryCancelled: {
		Category: CategoryCancelled,
		Message:  "Device selection was cancelled.",
	},
	CategoryNotFound: {
		Category: CategoryNotFound,
		Message:  "No matching device found. Make sure the monitor is powered on and in range.",
	},
	CategoryGeneric: {
		Category: CategoryGeneric,
		Message:  "Failed to connect to the device.",
	},
}

// Classify maps a transport error to a user-facing category and message.
// Consulted only at the connect boundary; decoder and session behavior
// never depend on it.
func Classify(err error) (ErrorCategory, string) {
	category := CategoryGeneric

	switch {
	case errors.Is(err, ErrUnsupported):
		category = CategoryUnsupported
	case errors.Is(err, ErrPermissionDenied):
		category = CategoryPermission
	case errors.Is(err, ErrInsecureContext):
		category = CategoryInsecureContext
	case errors.Is(err, ErrDeviceClaimed):
		category = CategoryUnavailable
	case errors.Is(err, ErrSelectionCancelled):
		category = CategoryCancelled
	case errors.Is(err, ErrDeviceNotFound):
		category = CategoryNotFound
	default:
		category = classifyByMessage(err)
	}

	c := classifications[category]
	return c.Category, c.Message
}

// classifyByMessage matches platform error strings that do not map onto
// our sentinels (bluez, WinRT and CoreBluetooth all word these
// differently)
func classifyByMessage(err error) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not supported"), strings.Contains(msg, "no adapter"):
		return CategoryUnsupported
	case strings.Contains(msg, "permission"), strings.Contains(msg, "not authorized"):
		return CategoryPermission
	case strings.Contains(msg, "secure context"):
		return CategoryInsecureContext
	case strings.Contains(msg, "already connected"), strings.Contains(msg, "in use"), strings.Contains(msg, "busy"):
		return CategoryUnavailable
	case strings.Contains(msg, "cancel"):
		return CategoryCancelled
	case strings.Contains(msg, "not found"), strings.Contains(msg, "timeout"):
		return CategoryNotFound
	default:
		return CategoryGeneric
	}
}
