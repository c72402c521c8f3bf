package mesh

import (
	"time"

	"github.com/permissionlesstech/bitchat-mesh/internal/fragment"
	"github.com/permissionlesstech/bitchat-mesh/internal/obslog"
	"github.com/permissionlesstech/bitchat-mesh/internal/protocol"
	"github.com/permissionlesstech/bitchat-mesh/internal/radio"
)

// jitterMinDelay and jitterMaxDelay bound the uniform-random relay delay
// applied before a packet is rebroadcast.
const (
	jitterMinDelay = 10 * time.Millisecond
	jitterMaxDelay = 40 * time.Millisecond // + jitterMinDelay = 50ms ceiling
)

// broadcast is the single entry point for every locally-originated packet:
// it pre-marks the packet's own id in the packet deduplicator so a relay
// echoing it back can never loop, then transmits it.
func (e *Engine) broadcast(pkt *protocol.Packet) {
	e.packetDedup.MarkProcessed(pkt.DedupID())
	e.transmit(pkt)
}

// relayIfNeeded applies the density-dependent relay policy to an inbound
// packet that survived dedup and dispatch.
func (e *Engine) relayIfNeeded(pkt *protocol.Packet, wasFragmented bool) {
	if pkt.TTL <= 1 {
		return
	}

	direct := e.directConnectionCount()
	probability := relayProbability(pkt.Type, direct)
	if probability < 1.0 && e.rand.Float64() >= probability {
		return
	}

	relayed := *pkt
	relayed.TTL = pkt.TTL - 1

	delay := jitterMinDelay + time.Duration(e.rand.Int63n(int64(jitterMaxDelay)))
	time.AfterFunc(delay, func() {
		e.post(func() { e.transmitRelay(&relayed, wasFragmented) })
	})
}

func relayProbability(t protocol.PacketType, directConnections int) float64 {
	if directConnections <= 2 {
		return 1.0
	}
	if directConnections > 5 {
		if t == protocol.PacketTypeAnnounce {
			return 0.3
		}
		return 0.5
	}
	return 1.0
}

// transmitRelay re-broadcasts an already-decremented packet. A packet
// reassembled from fragments is re-fragmented if its encoding still exceeds
// default_fragment_size; a raw Fragment chunk being relayed never is, since
// Fragmenter.Split declines to fragment a Fragment.
func (e *Engine) transmitRelay(pkt *protocol.Packet, wasFragmented bool) {
	e.transmit(pkt)
	_ = wasFragmented // size comparison inside transmit already re-fragments when needed
}

// transmit encodes pkt, decides whether it needs fragmenting by comparing
// the encoded size against default_fragment_size, and writes the result to
// every connected outbound link and inbound subscriber.
func (e *Engine) transmit(pkt *protocol.Packet) {
	encoded, err := protocol.Encode(pkt, false, e.cfg.CompressionThresholdBytes)
	if err != nil {
		obslog.Get().WithError(err).Warn("mesh: encode failed, dropping outbound packet")
		return
	}

	if len(encoded) <= e.cfg.DefaultFragmentSize {
		e.writeRaw(encoded)
		return
	}

	effectiveWriteLen := e.link.EffectiveWriteLength(e.cfg.DefaultFragmentSize)
	frags, err := e.fragmenter.Split(pkt, encoded, effectiveWriteLen)
	if err != nil {
		obslog.Get().WithError(err).Warn("mesh: fragment split failed")
		return
	}
	if frags == nil {
		e.writeRaw(encoded)
		return
	}
	e.writeFragments(frags)
}

func (e *Engine) writeFragments(frags []*protocol.Packet) {
	spacing := fragment.SpacingFor(len(frags))
	for i, frag := range frags {
		encoded, err := protocol.Encode(frag, false, e.cfg.CompressionThresholdBytes)
		if err != nil {
			obslog.Get().WithError(err).Warn("mesh: encode fragment failed")
			continue
		}
		delay := time.Duration(i) * spacing
		time.AfterFunc(delay, func() {
			e.post(func() { e.writeRaw(encoded) })
		})
	}
}

func (e *Engine) writeRaw(encoded []byte) {
	for _, deviceUUID := range e.link.ConnectedDeviceUUIDs() {
		if err := e.radio.Write(deviceUUID, encoded, radio.WriteWithoutResponse); err != nil {
			obslog.Get().WithError(err).Debug("mesh: write to outbound link failed")
		}
	}

	subscribers := e.link.InboundSubscribers()
	if len(subscribers) == 0 {
		return
	}
	if err := e.radio.PublishNotification(encoded, subscribers); err != nil {
		if dropped := e.link.EnqueuePending(encoded, subscribers); dropped {
			obslog.Get().Warn("mesh: pending notification buffer full, dropped oldest")
		}
	}
}
