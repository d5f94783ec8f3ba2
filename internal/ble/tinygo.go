package ble

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// TinygoCentral implements Central on top of tinygo.org/x/bluetooth,
// which backs onto bluez, CoreBluetooth or WinRT depending on platform.
type TinygoCentral struct {
	adapter     *bluetooth.Adapter
	scanTimeout time.Duration

	mu           sync.Mutex
	enabled      bool
	connected    *tinygoPeripheral
	onDisconnect func(peripheralID string)
}

// NewTinygoCentral creates a central using the platform default adapter
func NewTinygoCentral(scanTimeout time.Duration) *TinygoCentral {
	return &TinygoCentral{
		adapter:     bluetooth.DefaultAdapter,
		scanTimeout: scanTimeout,
	}
}

// Available enables the adapter on first use and reports whether a new
// connection may be started
func (c *TinygoCentral) Available() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		if err := c.adapter.Enable(); err != nil {
			return errors.Wrap(ErrUnsupported, err.Error())
		}
		c.enabled = true

		c.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
			if connected {
				return
			}
			c.mu.Lock()
			p := c.connected
			fn := c.onDisconnect
			c.connected = nil
			c.mu.Unlock()

			if p != nil && fn != nil {
				fn(p.id)
			}
		})
	}

	if c.connected != nil {
		return ErrDeviceClaimed
	}
	return nil
}

// SetDisconnectHandler registers fn to run on unsolicited disconnects
func (c *TinygoCentral) SetDisconnectHandler(fn func(peripheralID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// Connect scans for a device matching the filter and opens a GATT
// connection to the first match
func (c *TinygoCentral) Connect(ctx context.Context, filter Filter) (Peripheral, error) {
	if err := c.Available(); err != nil {
		return nil, err
	}

	var serviceUUIDs []bluetooth.UUID
	for _, s := range filter.ServiceUUIDs {
		uuid, err := bluetooth.ParseUUID(s)
		if err != nil {
			return nil, errors.Wrapf(err, "bad service filter %q", s)
		}
		serviceUUIDs = append(serviceUUIDs, uuid)
	}

	scanCtx := ctx
	if c.scanTimeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, c.scanTimeout)
		defer cancel()
	}

	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- c.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !matches(result, filter, serviceUUIDs) {
				return
			}
			adapter.StopScan()
			select {
			case found <- result:
			default:
			}
		})
	}()

	var result bluetooth.ScanResult
	select {
	case result = <-found:
	case err := <-scanErr:
		if err != nil {
			return nil, errors.Wrap(err, "scan failed")
		}
		return nil, ErrDeviceNotFound
	case <-scanCtx.Done():
		c.adapter.StopScan()
		if ctx.Err() != nil {
			return nil, ErrSelectionCancelled
		}
		return nil, ErrDeviceNotFound
	}

	logrus.WithFields(logrus.Fields{
		"addr": result.Address.String(),
		"name": result.LocalName(),
		"rssi": result.RSSI,
	}).Info("found device, connecting")

	device, err := c.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, errors.Wrap(err, "gatt connect failed")
	}

	p := &tinygoPeripheral{
		id:     result.Address.String(),
		name:   result.LocalName(),
		device: device,
	}

	c.mu.Lock()
	c.connected = p
	c.mu.Unlock()

	return p, nil
}

func matches(result bluetooth.ScanResult, filter Filter, serviceUUIDs []bluetooth.UUID) bool {
	name := result.LocalName()
	if filter.NamePrefix != "" && name != "" && strings.HasPrefix(name, filter.NamePrefix) {
		return true
	}
	for _, uuid := range serviceUUIDs {
		if result.HasServiceUUID(uuid) {
			return true
		}
	}
	return false
}

// tinygoPeripheral wraps a connected bluetooth.Device and caches
// resolved characteristic handles
type tinygoPeripheral struct {
	id     string
	name   string
	device bluetooth.Device

	mu    sync.Mutex
	chars map[CharacteristicRef]*tinygoCharacteristic
}

func (p *tinygoPeripheral) ID() string   { return p.id }
func (p *tinygoPeripheral) Name() string { return p.name }

func (p *tinygoPeripheral) Characteristic(ref CharacteristicRef) (Characteristic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.chars[ref]; ok {
		return cached, nil
	}

	serviceUUID, err := bluetooth.ParseUUID(ref.Service)
	if err != nil {
		return nil, errors.Wrapf(err, "bad service uuid %q", ref.Service)
	}
	charUUID, err := bluetooth.ParseUUID(ref.Characteristic)
	if err != nil {
		return nil, errors.Wrapf(err, "bad characteristic uuid %q", ref.Characteristic)
	}

	services, err := p.device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		return nil, ErrCharacteristicNotFound
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		return nil, ErrCharacteristicNotFound
	}

	c := &tinygoCharacteristic{char: chars[0]}
	if p.chars == nil {
		p.chars = make(map[CharacteristicRef]*tinygoCharacteristic)
	}
	p.chars[ref] = c
	return c, nil
}

func (p *tinygoPeripheral) Disconnect() error {
	p.mu.Lock()
	p.chars = nil
	p.mu.Unlock()
	return p.device.Disconnect()
}

type tinygoCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

func (c *tinygoCharacteristic) Subscribe(h NotificationHandler) error {
	return c.char.EnableNotifications(func(buf []byte) {
		h(buf)
	})
}

func (c *tinygoCharacteristic) Unsubscribe() error {
	return c.char.EnableNotifications(nil)
}

func (c *tinygoCharacteristic) Read() ([]byte, error) {
	var buf [512]byte
	n, err := c.char.Read(buf[:])
	if err != nil {
		return nil, errors.Wrap(err, "characteristic read failed")
	}
	data := make([]byte, n)
	copy(data, buf[:n])
	return data, nil
}
