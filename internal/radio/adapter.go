// Package radio defines the contract the mesh engine requires from a
// platform BLE stack, plus two implementations: a real Linux
// BlueZ adapter built on muka/go-bluetooth and godbus/dbus/v5, and an
// in-memory Simulator used by tests and non-Linux builds.
package radio

import "context"

// WriteMode selects whether a characteristic write expects an ack.
type WriteMode int

const (
	WriteWithResponse WriteMode = iota
	WriteWithoutResponse
)

// Adapter is everything the mesh engine needs from the platform BLE stack.
// All methods are expected to be fire-and-forget or fail fast; the engine
// never blocks waiting on a remote's reaction to a write.
type Adapter interface {
	// StartScan begins scanning for peripherals advertising serviceUUID.
	StartScan(ctx context.Context, serviceUUID string) error
	StopScan() error

	// Connect asks the OS to connect to a previously discovered device.
	Connect(deviceUUID string) error
	CancelConnect(deviceUUID string) error

	// DiscoverServiceAndCharacteristic resolves the mesh's service and
	// write/notify characteristic on an already-connected device.
	DiscoverServiceAndCharacteristic(deviceUUID, serviceUUID, characteristicUUID string) error

	// Write sends bytes to a connected device's characteristic.
	Write(deviceUUID string, data []byte, mode WriteMode) error

	// MaxWriteLength reports the largest single write-without-response
	// payload the device currently accepts.
	MaxWriteLength(deviceUUID string) (int, error)

	// StartAdvertising/StopAdvertising control the peripheral role.
	StartAdvertising(serviceUUID string) error
	StopAdvertising() error

	// PublishNotification updates the characteristic value for the given
	// subscribers (nil means all current subscribers).
	PublishNotification(data []byte, subscribers []string) error

	// Events returns the channel of asynchronous events the engine consumes.
	Events() <-chan Event

	// Close releases all OS resources.
	Close() error
}

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	EventCentralState EventKind = iota
	EventPeripheralState
	EventDiscovered
	EventConnected
	EventConnectFailed
	EventDisconnected
	EventServiceDiscovered
	EventCharacteristicDiscovered
	EventNotificationReceived
	EventSubscribe
	EventUnsubscribe
	EventWriteReceived
	EventReadyToUpdateSubscribers
)

// Event is the single envelope every radio callback is delivered as, so the
// engine's event loop can select over one channel regardless of kind.
type Event struct {
	Kind EventKind

	DeviceUUID  string // discovered/connected/disconnected/service/char/notification
	CentralUUID string // subscribe/unsubscribe/write-received

	RSSI        int
	Connectable bool

	CharacteristicHandle string
	Data                 []byte

	PoweredOn bool
	Err       error
}
