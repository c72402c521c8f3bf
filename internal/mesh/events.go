package mesh

import (
	"github.com/permissionlesstech/bitchat-mesh/internal/obslog"
	"github.com/permissionlesstech/bitchat-mesh/internal/radio"
)

// handleRadioEvent dispatches a single adapter event. It runs exclusively on
// the loop goroutine, the only place radio state is mutated.
func (e *Engine) handleRadioEvent(ev radio.Event) {
	switch ev.Kind {
	case radio.EventCentralState:
		e.centralReady = ev.PoweredOn
		e.maybeSettle()

	case radio.EventPeripheralState:
		e.peripheralReady = ev.PoweredOn
		e.maybeSettle()

	case radio.EventDiscovered:
		if e.link.TryConnect(ev.DeviceUUID, ev.RSSI, ev.Connectable) {
			if err := e.radio.Connect(ev.DeviceUUID); err != nil {
				obslog.Get().WithError(err).Debug("mesh: connect request failed")
			}
		}

	case radio.EventConnected:
		if err := e.radio.DiscoverServiceAndCharacteristic(ev.DeviceUUID, e.serviceUUID, e.characteristicUUID); err != nil {
			obslog.Get().WithError(err).Warn("mesh: service discovery request failed")
		}

	case radio.EventServiceDiscovered:
		// wait for the characteristic before marking the link Connected

	case radio.EventCharacteristicDiscovered:
		maxLen, err := e.radio.MaxWriteLength(ev.DeviceUUID)
		if err != nil || maxLen <= 0 {
			maxLen = e.cfg.DefaultFragmentSize
		}
		e.link.OnConnected(ev.DeviceUUID, ev.CharacteristicHandle, maxLen)
		obslog.Get().WithFields(obslog.Fields(struct {
			DeviceUUID     string
			MaxWriteLength int
		}{ev.DeviceUUID, maxLen})).Debug("mesh: outbound link connected")
		if e.scanner.Recompute(e.directConnectionCount()) {
			e.applyScanState()
		}
		e.scheduleAnnounceAfter(e.cfg.PostConnectSettle)

	case radio.EventConnectFailed, radio.EventDisconnected:
		peerID, had := e.link.RemoveOutbound(ev.DeviceUUID)
		if e.scanner.Recompute(e.directConnectionCount()) {
			e.applyScanState()
		}
		if had {
			obslog.Get().WithFields(obslog.Fields(struct {
				DeviceUUID string
				PeerID     string
			}{ev.DeviceUUID, peerID})).Debug("mesh: outbound link dropped")
			e.peers.Remove(peerID)
			e.delegate.PeerDisconnected(peerID)
			e.refreshSnapshot()
		}

	case radio.EventSubscribe:
		e.link.Subscribe(ev.CentralUUID)
		if e.scanner.Recompute(e.directConnectionCount()) {
			e.applyScanState()
		}
		e.scheduleAnnounceAfter(e.cfg.PostConnectSettle)

	case radio.EventUnsubscribe:
		peerID, had := e.link.Unsubscribe(ev.CentralUUID)
		if e.scanner.Recompute(e.directConnectionCount()) {
			e.applyScanState()
		}
		if had {
			e.peers.Remove(peerID)
			e.delegate.PeerDisconnected(peerID)
			e.refreshSnapshot()
		}

	case radio.EventNotificationReceived:
		e.onInboundFrame(ev.Data, source{kind: linkOutbound, id: ev.DeviceUUID})

	case radio.EventWriteReceived:
		e.onInboundFrame(ev.Data, source{kind: linkInbound, id: ev.CentralUUID})

	case radio.EventReadyToUpdateSubscribers:
		for _, pending := range e.link.DrainPending() {
			if err := e.radio.PublishNotification(pending.Data, pending.Subscribers); err != nil {
				obslog.Get().WithError(err).Debug("mesh: flush pending notification failed")
			}
		}
	}
}

// maybeSettle schedules the one-time post-startup announce once both radio
// roles have reported powered-on.
func (e *Engine) maybeSettle() {
	if e.announcedSettle || !e.centralReady || !e.peripheralReady {
		return
	}
	e.announcedSettle = true
	e.scheduleAnnounceAfter(e.cfg.EngineSettle)
}
