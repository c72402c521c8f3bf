package radio

import (
	"context"
	"sync"
)

// Simulator is an in-memory Adapter with no real BLE stack: Connect and
// Write succeed immediately against whatever peer Simulators are wired to it
// via Link. It exists so the mesh engine's logic can be exercised in tests
// without a Linux host or real radio hardware.
type Simulator struct {
	mu          sync.Mutex
	peers       map[string]*Simulator // deviceUUID -> peer simulator
	subscribers map[string]*Simulator // centralUUID -> peer simulator
	maxWrite    int

	events chan Event
}

// NewSimulator creates a Simulator advertising the given max write length.
// It immediately reports both radio roles powered on, the way a real
// adapter's init sequence would, so the mesh engine's startup settle logic
// has something to wait on.
func NewSimulator(maxWriteLength int) *Simulator {
	s := &Simulator{
		peers:       make(map[string]*Simulator),
		subscribers: make(map[string]*Simulator),
		maxWrite:    maxWriteLength,
		events:      make(chan Event, 256),
	}
	s.emit(Event{Kind: EventCentralState, PoweredOn: true})
	s.emit(Event{Kind: EventPeripheralState, PoweredOn: true})
	return s
}

// SimulateDiscovered emits a discovered event as if a scan had just found
// deviceUUID, letting tests drive the initiator role's admission checks
// without a real scan loop.
func (s *Simulator) SimulateDiscovered(deviceUUID string, rssi int, connectable bool) {
	s.emit(Event{Kind: EventDiscovered, DeviceUUID: deviceUUID, RSSI: rssi, Connectable: connectable})
}

// Link wires two simulators together under the given device/central uuid
// pair: a reaches b as aUUID (Connect, Write) and b reaches a as bUUID.
// Subscriptions are not recorded here; Subscribe does that separately.
func Link(a *Simulator, aUUID string, b *Simulator, bUUID string) {
	a.mu.Lock()
	a.peers[aUUID] = b
	a.mu.Unlock()

	b.mu.Lock()
	b.peers[bUUID] = a
	b.mu.Unlock()
}

func (s *Simulator) Events() <-chan Event { return s.events }

func (s *Simulator) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Simulator) StartScan(ctx context.Context, serviceUUID string) error { return nil }
func (s *Simulator) StopScan() error                                        { return nil }

func (s *Simulator) Connect(deviceUUID string) error {
	s.mu.Lock()
	_, ok := s.peers[deviceUUID]
	s.mu.Unlock()
	if !ok {
		s.emit(Event{Kind: EventConnectFailed, DeviceUUID: deviceUUID})
		return nil
	}
	s.emit(Event{Kind: EventConnected, DeviceUUID: deviceUUID})
	return nil
}

func (s *Simulator) CancelConnect(deviceUUID string) error {
	s.emit(Event{Kind: EventDisconnected, DeviceUUID: deviceUUID})
	return nil
}

func (s *Simulator) DiscoverServiceAndCharacteristic(deviceUUID, serviceUUID, characteristicUUID string) error {
	s.emit(Event{Kind: EventServiceDiscovered, DeviceUUID: deviceUUID})
	s.emit(Event{Kind: EventCharacteristicDiscovered, DeviceUUID: deviceUUID, CharacteristicHandle: characteristicUUID})
	return nil
}

// Write simulates a central writing to its connected peripheral's
// characteristic; the peripheral receives a write-received event, not a
// notification (that direction is PublishNotification's).
func (s *Simulator) Write(deviceUUID string, data []byte, mode WriteMode) error {
	s.mu.Lock()
	peer, ok := s.peers[deviceUUID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	peer.emit(Event{Kind: EventWriteReceived, CentralUUID: peer.labelFor(s), Data: data})
	return nil
}

// labelFor returns the uuid under which s itself refers to target, checking
// both the peers map (s acting as a central) and the subscribers map (s
// acting as a peripheral). Device-uuid and central-uuid are namespaced from
// each side's own point of view, so an event delivered to a peer must carry
// the identifier that peer gave this link, not the caller's own.
func (s *Simulator) labelFor(target *Simulator) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uuid, p := range s.peers {
		if p == target {
			return uuid
		}
	}
	for uuid, p := range s.subscribers {
		if p == target {
			return uuid
		}
	}
	return ""
}

func (s *Simulator) MaxWriteLength(deviceUUID string) (int, error) {
	return s.maxWrite, nil
}

func (s *Simulator) StartAdvertising(serviceUUID string) error { return nil }
func (s *Simulator) StopAdvertising() error                    { return nil }

func (s *Simulator) PublishNotification(data []byte, subscribers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := subscribers
	if targets == nil {
		targets = make([]string, 0, len(s.subscribers))
		for c := range s.subscribers {
			targets = append(targets, c)
		}
	}
	for _, central := range targets {
		if peer, ok := s.subscribers[central]; ok {
			peer.emit(Event{Kind: EventNotificationReceived, DeviceUUID: peer.labelFor(s), Data: data})
		}
	}
	return nil
}

// Subscribe simulates a remote central subscribing to this simulator's
// characteristic.
func (s *Simulator) Subscribe(centralUUID string, remote *Simulator) {
	s.mu.Lock()
	s.subscribers[centralUUID] = remote
	s.mu.Unlock()
	s.emit(Event{Kind: EventSubscribe, CentralUUID: centralUUID})
}

// Unsubscribe simulates a remote central unsubscribing.
func (s *Simulator) Unsubscribe(centralUUID string) {
	s.mu.Lock()
	delete(s.subscribers, centralUUID)
	s.mu.Unlock()
	s.emit(Event{Kind: EventUnsubscribe, CentralUUID: centralUUID})
}

func (s *Simulator) Close() error {
	close(s.events)
	return nil
}
