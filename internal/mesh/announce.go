package mesh

import (
	"time"

	"github.com/permissionlesstech/bitchat-mesh/internal/obslog"
	"github.com/permissionlesstech/bitchat-mesh/internal/protocol"
)

// scheduleAnnounceAfter posts maybeAnnounce onto the loop after delay,
// covering the post-settle, post-connect and post-subscribe announce
// triggers, all of which fold into the same
// 2 s-throttled call.
func (e *Engine) scheduleAnnounceAfter(delay time.Duration) {
	time.AfterFunc(delay, func() { e.post(e.maybeAnnounce) })
}

// maybeAnnounce emits an announce unless one went out less than
// announce_min_interval_s ago.
func (e *Engine) maybeAnnounce() {
	now := e.now()
	if !e.lastAnnounceAt.IsZero() && now.Sub(e.lastAnnounceAt) < e.cfg.AnnounceMinInterval {
		return
	}
	e.lastAnnounceAt = now
	e.doAnnounce()
}

func (e *Engine) doAnnounce() {
	payload, err := protocol.EncodeAnnounce(e.nickname, e.identity.PeerID)
	if err != nil {
		obslog.Get().WithError(err).Warn("mesh: encode announce failed")
		return
	}
	e.broadcast(e.newPacket(protocol.PacketTypeAnnounce, payload))
}

func (e *Engine) doAnnounceLeave() {
	e.broadcast(e.newPacket(protocol.PacketTypeLeave, nil))
}

// onPeriodicAnnounceTick fires every periodic_announce_s while at least one
// link exists, and is also where the optional cover-traffic announce rides.
func (e *Engine) onPeriodicAnnounceTick() {
	if e.directConnectionCount() == 0 {
		return
	}
	e.maybeAnnounce()

	if e.coverTraffic && e.rand.Float64() < coverTrafficProbability {
		e.doCoverTraffic()
	}
}

// doCoverTraffic broadcasts a low-TTL, empty-payload Announce purely to make
// traffic timing analysis harder. Receivers fail to decode its TLVs and
// drop it silently, same as any malformed Announce.
func (e *Engine) doCoverTraffic() {
	pkt := e.newPacket(protocol.PacketTypeAnnounce, nil)
	pkt.TTL = 2
	e.broadcast(pkt)
}
