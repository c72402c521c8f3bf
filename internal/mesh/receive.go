package mesh

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/permissionlesstech/bitchat-mesh/internal/fragment"
	"github.com/permissionlesstech/bitchat-mesh/internal/obslog"
	"github.com/permissionlesstech/bitchat-mesh/internal/peer"
	"github.com/permissionlesstech/bitchat-mesh/internal/protocol"
)

// onInboundFrame is the entry point for every byte string the radio adapter
// delivers, whether via a notification on an outbound link or a write on an
// inbound subscription.
func (e *Engine) onInboundFrame(raw []byte, src source) {
	if e.scanner.OnPacketReceived(e.directConnectionCount()) {
		e.applyScanState()
	}

	pkt, err := protocol.Decode(raw)
	if err != nil {
		obslog.Get().WithError(err).Debug("mesh: dropping malformed packet")
		return
	}
	e.ingest(pkt, src, false)
}

// ingest runs the dedup/dispatch/relay steps on an
// already-decoded packet, whether it arrived directly or was just
// reassembled from a fragment group.
func (e *Engine) ingest(pkt *protocol.Packet, src source, wasFragmented bool) {
	if pkt.Type == protocol.PacketTypeFragment {
		e.handleFragment(pkt, src)
		return
	}

	id := pkt.DedupID()
	if e.packetDedup.IsDuplicate(id) {
		return
	}
	e.packetDedup.MarkProcessed(id)

	switch pkt.Type {
	case protocol.PacketTypeAnnounce:
		e.handleAnnounce(pkt, src)
	case protocol.PacketTypeMessage:
		e.handleMessage(pkt)
	case protocol.PacketTypeLeave:
		e.handleLeave(pkt)
	default:
		obslog.Get().WithField("type", pkt.Type).Debug("mesh: unknown packet type")
		return
	}

	e.relayIfNeeded(pkt, wasFragmented)
}

func (e *Engine) handleAnnounce(pkt *protocol.Packet, src source) {
	nickname, peerID, err := protocol.DecodeAnnounce(pkt.Payload)
	if err != nil {
		// Also the shape of an empty-payload cover-traffic announce: a
		// missing TLV is dropped silently, never logged as an error.
		return
	}

	direction := peer.DirectionUnknown
	switch src.kind {
	case linkOutbound:
		direction = peer.DirectionOutbound
	case linkInbound:
		direction = peer.DirectionInbound
	}
	e.peers.Upsert(peerID, nickname, direction)

	firstBinding := false
	switch src.kind {
	case linkOutbound:
		firstBinding = e.link.BindOutboundPeer(src.id, peerID)
	case linkInbound:
		firstBinding = e.link.BindInboundPeer(src.id, peerID)
	}
	if firstBinding {
		obslog.Get().WithFields(obslog.Fields(struct {
			PeerID    string
			Nickname  string
			Direction peer.DirectionHint
		}{peerID, nickname, direction})).Debug("mesh: peer bound to link")
		e.delegate.PeerConnected(peerID)
	}

	e.refreshSnapshot()
	time.AfterFunc(e.cfg.AnnounceReplyDelay, func() { e.post(e.maybeAnnounce) })
}

func (e *Engine) handleMessage(pkt *protocol.Packet) {
	if bytes.Equal(pkt.SenderID, e.senderID) {
		return // our own broadcast relayed back; never surfaced locally
	}

	peerID := hex.EncodeToString(pkt.SenderID)
	nickname := e.peers.Nickname(peerID, "anon")
	timestamp := time.UnixMilli(int64(pkt.TimestampMs))
	e.delegate.PublicMessage(peerID, nickname, string(pkt.Payload), timestamp)
}

func (e *Engine) handleLeave(pkt *protocol.Packet) {
	peerID := hex.EncodeToString(pkt.SenderID)

	if deviceUUID, ok := e.link.DisconnectByPeer(peerID); ok {
		if err := e.radio.CancelConnect(deviceUUID); err != nil {
			obslog.Get().WithError(err).Warn("mesh: cancel connect on leave")
		}
	}
	e.peers.Remove(peerID)
	e.delegate.PeerDisconnected(peerID)
	e.refreshSnapshot()
}

// handleFragment implements the reassembly side: fragment-level dedup,
// raw-fragment relay, and slot accumulation, feeding the original packet
// back into ingest once every index has arrived.
func (e *Engine) handleFragment(pkt *protocol.Packet, src source) {
	payload, err := fragment.DecodePayload(pkt.Payload)
	if err != nil {
		obslog.Get().WithError(err).Debug("mesh: dropping malformed fragment")
		return
	}

	if e.fragmenter.WasSent(payload.FragmentID) {
		return // our own fragment, reflected back by a relaying neighbor
	}

	key := fragmentDedupKey(pkt.SenderID, payload.FragmentID, payload.Index)
	if e.fragmentDedup.IsDuplicate(key) {
		return
	}
	e.fragmentDedup.MarkProcessed(key)

	e.relayIfNeeded(pkt, false) // forward the raw fragment chunk, never re-fragment it

	reassembled, err := e.reassembler.Add(pkt)
	if err != nil {
		obslog.Get().WithError(err).Debug("mesh: dropping unreassemblable fragment group")
		return
	}
	if reassembled == nil {
		return // group still incomplete
	}
	e.ingest(reassembled.Packet, source{}, reassembled.WasFragmented)
}

func fragmentDedupKey(senderID []byte, fragmentID [8]byte, index uint16) string {
	return hex.EncodeToString(senderID) + ":" + hex.EncodeToString(fragmentID[:]) + ":" + strconv.Itoa(int(index))
}
