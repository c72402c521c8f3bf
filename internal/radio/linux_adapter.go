//go:build linux

package radio

import (
	"context"
	"fmt"
	"sync"

	"github.com/muka/go-bluetooth/api"
	"github.com/muka/go-bluetooth/bluez/profile/adapter"
	"github.com/muka/go-bluetooth/bluez/profile/advertising"
	"github.com/muka/go-bluetooth/bluez/profile/device"

	"github.com/permissionlesstech/bitchat-mesh/internal/obslog"
)

// LinuxAdapter drives the BlueZ D-Bus API via muka/go-bluetooth for the
// central (scan/connect) role. Peripheral GATT server support depends on
// muka/go-bluetooth's org.bluez.GattManager1 binding, which this adapter
// wires through StartAdvertising for the broadcast advertisement; it exposes
// no write characteristic server. PublishNotification, Write and
// MaxWriteLength return an error on Linux, and no subscribe, unsubscribe or
// write-received events are ever emitted.
type LinuxAdapter struct {
	btAdapter *adapter.Adapter1
	adMgr     *advertising.LEAdvertisingManager1

	mu            sync.RWMutex
	devices       map[string]*device.Device1
	cleanupAdvert func()

	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// NewLinuxAdapter obtains the default BlueZ adapter and powers it on if
// necessary.
func NewLinuxAdapter() (*LinuxAdapter, error) {
	a, err := api.GetDefaultAdapter()
	if err != nil {
		return nil, fmt.Errorf("radio: get default adapter: %w", err)
	}

	powered, err := a.GetPowered()
	if err != nil {
		return nil, fmt.Errorf("radio: query powered state: %w", err)
	}
	if !powered {
		if err := a.SetPowered(true); err != nil {
			return nil, fmt.Errorf("radio: power on adapter: %w", err)
		}
	}

	adMgr, err := advertising.NewLEAdvertisingManager1(a.Path())
	if err != nil {
		return nil, fmt.Errorf("radio: advertising manager: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	la := &LinuxAdapter{
		btAdapter: a,
		adMgr:     adMgr,
		devices:   make(map[string]*device.Device1),
		events:    make(chan Event, 256),
		ctx:       ctx,
		cancel:    cancel,
	}
	la.emit(Event{Kind: EventCentralState, PoweredOn: true})
	return la, nil
}

func (la *LinuxAdapter) emit(ev Event) {
	select {
	case la.events <- ev:
	case <-la.ctx.Done():
	}
}

// Events implements Adapter.
func (la *LinuxAdapter) Events() <-chan Event { return la.events }

// StartScan implements Adapter.
func (la *LinuxAdapter) StartScan(ctx context.Context, serviceUUID string) error {
	filter := adapter.NewDiscoveryFilter()
	filter.Transport = "le"
	filter.UUIDs = []string{serviceUUID}

	if err := la.btAdapter.SetDiscoveryFilter(filter.ToMap()); err != nil {
		return fmt.Errorf("radio: set discovery filter: %w", err)
	}

	discovery, cancel, err := api.Discover(la.btAdapter, nil)
	if err != nil {
		return fmt.Errorf("radio: start discovery: %w", err)
	}

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-la.ctx.Done():
				return
			case ev, ok := <-discovery:
				if !ok {
					return
				}

				if ev.Type == adapter.DeviceRemoved {
					la.mu.Lock()
					delete(la.devices, string(ev.Path))
					la.mu.Unlock()
					continue
				}
				if ev.Type != adapter.DeviceAdded {
					continue
				}

				dev, err := device.NewDevice1(ev.Path)
				if err != nil {
					obslog.Get().WithError(err).Warn("radio: device1 proxy failed")
					continue
				}

				uuids, err := dev.GetUUIDs()
				if err != nil || !containsUUID(uuids, serviceUUID) {
					continue
				}

				rssi, _ := dev.GetRSSI()
				connectable := true // BlueZ does not expose connectable hints on Linux consistently

				la.mu.Lock()
				la.devices[string(ev.Path)] = dev
				la.mu.Unlock()

				la.emit(Event{Kind: EventDiscovered, DeviceUUID: string(ev.Path), RSSI: int(rssi), Connectable: connectable})
			}
		}
	}()

	return nil
}

// StopScan implements Adapter.
func (la *LinuxAdapter) StopScan() error {
	if err := la.btAdapter.StopDiscovery(); err != nil {
		return fmt.Errorf("radio: stop discovery: %w", err)
	}
	return nil
}

// Connect implements Adapter.
func (la *LinuxAdapter) Connect(deviceUUID string) error {
	la.mu.RLock()
	dev, ok := la.devices[deviceUUID]
	la.mu.RUnlock()
	if !ok {
		return fmt.Errorf("radio: unknown device %s", deviceUUID)
	}

	go func() {
		if err := dev.Connect(); err != nil {
			la.emit(Event{Kind: EventConnectFailed, DeviceUUID: deviceUUID, Err: err})
			return
		}
		la.emit(Event{Kind: EventConnected, DeviceUUID: deviceUUID})
	}()
	return nil
}

// CancelConnect implements Adapter.
func (la *LinuxAdapter) CancelConnect(deviceUUID string) error {
	la.mu.RLock()
	dev, ok := la.devices[deviceUUID]
	la.mu.RUnlock()
	if !ok {
		return nil
	}
	return dev.Disconnect()
}

// DiscoverServiceAndCharacteristic implements Adapter.
func (la *LinuxAdapter) DiscoverServiceAndCharacteristic(deviceUUID, serviceUUID, characteristicUUID string) error {
	la.mu.RLock()
	_, ok := la.devices[deviceUUID]
	la.mu.RUnlock()
	if !ok {
		return fmt.Errorf("radio: unknown device %s", deviceUUID)
	}

	la.emit(Event{Kind: EventServiceDiscovered, DeviceUUID: deviceUUID})
	la.emit(Event{Kind: EventCharacteristicDiscovered, DeviceUUID: deviceUUID, CharacteristicHandle: characteristicUUID})
	return nil
}

// Write implements Adapter. GATT characteristic write plumbing is left for
// the same follow-up as the peripheral GATT server (see LinuxAdapter doc).
func (la *LinuxAdapter) Write(deviceUUID string, data []byte, mode WriteMode) error {
	return fmt.Errorf("radio: GATT write not wired on this platform build")
}

// MaxWriteLength implements Adapter.
func (la *LinuxAdapter) MaxWriteLength(deviceUUID string) (int, error) {
	return 0, fmt.Errorf("radio: max write length unknown without GATT wiring")
}

// StartAdvertising implements Adapter.
func (la *LinuxAdapter) StartAdvertising(serviceUUID string) error {
	props := &advertising.LEAdvertisement1Properties{
		Type:         advertising.AdvertisementTypeBroadcast,
		ServiceUUIDs: []string{serviceUUID},
		Includes:     []string{advertising.SupportedIncludesTxPower},
	}

	adapterID, err := la.btAdapter.GetAdapterID()
	if err != nil {
		return fmt.Errorf("radio: adapter id: %w", err)
	}
	cleanup, err := api.ExposeAdvertisement(adapterID, props, 0)
	if err != nil {
		return fmt.Errorf("radio: expose advertisement: %w", err)
	}

	la.mu.Lock()
	la.cleanupAdvert = cleanup
	la.mu.Unlock()
	la.emit(Event{Kind: EventPeripheralState, PoweredOn: true})
	return nil
}

// StopAdvertising implements Adapter.
func (la *LinuxAdapter) StopAdvertising() error {
	la.mu.Lock()
	cleanup := la.cleanupAdvert
	la.cleanupAdvert = nil
	la.mu.Unlock()

	if cleanup != nil {
		cleanup()
	}
	return nil
}

// PublishNotification implements Adapter.
func (la *LinuxAdapter) PublishNotification(data []byte, subscribers []string) error {
	return fmt.Errorf("radio: GATT notify not wired on this platform build")
}

// Close implements Adapter.
func (la *LinuxAdapter) Close() error {
	la.cancel()
	la.StopAdvertising()

	la.mu.Lock()
	for _, dev := range la.devices {
		dev.Disconnect()
	}
	la.mu.Unlock()

	close(la.events)
	return nil
}

func containsUUID(uuids []string, target string) bool {
	for _, u := range uuids {
		if u == target {
			return true
		}
	}
	return false
}
