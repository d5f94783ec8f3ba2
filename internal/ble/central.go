package ble

import (
	"context"
)

// NotificationHandler receives raw characteristic notification payloads
type NotificationHandler func(data []byte)

// Filter selects the device to connect to during discovery
type Filter struct {
	NamePrefix   string
	ServiceUUIDs []string
}

// CharacteristicRef names a characteristic within a service. Resolution
// candidates are tried in order because the device exposes the vendor
// protocol on a custom service while several readings also map onto
// standard SIG health profiles.
type CharacteristicRef struct {
	Service        string
	Characteristic string
}

// Characteristic is a resolved GATT characteristic handle
type Characteristic interface {
	// Subscribe enables notifications and routes them to h
	Subscribe(h NotificationHandler) error
	// Unsubscribe disables notifications
	Unsubscribe() error
	// Read performs a one-shot characteristic read
	Read() ([]byte, error)
}

// Peripheral is a connected GATT server
type Peripheral interface {
	ID() string
	Name() string
	Characteristic(ref CharacteristicRef) (Characteristic, error)
	Disconnect() error
}

// Central abstracts the platform BLE central role so the session layer
// can be exercised without hardware
type Central interface {
	// Available reports whether the adapter can start a new connection.
	// A non-nil error is classified and surfaced to the host without a
	// connect attempt.
	Available() error
	// Connect discovers a device matching the filter and opens a GATT
	// connection. Blocks until connected, ctx cancellation, or failure.
	Connect(ctx context.Context, filter Filter) (Peripheral, error)
	// SetDisconnectHandler registers fn to run on unsolicited disconnects
	SetDisconnectHandler(fn func(peripheralID string))
}

// Resolve tries each candidate in order and returns the first
// characteristic that resolves
func Resolve(p Peripheral, candidates []CharacteristicRef) (Characteristic, error) {
	for _, ref := range candidates {
		char, err := p.Characteristic(ref)
		if err == nil {
			return char, nil
		}
	}
	return nil, ErrCharacteristicNotFound
}
