// Package mesh implements the single-writer orchestration layer:
// the receive pipeline (dedup → dispatch → relay), the broadcast path, the
// announce lifecycle and the maintenance sweep, wired against the Link
// Manager, Adaptive Scanner, Deduplicator and Fragmenter/Reassembler owned
// by their own packages.
package mesh

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/permissionlesstech/bitchat-mesh/internal/config"
	"github.com/permissionlesstech/bitchat-mesh/internal/dedup"
	"github.com/permissionlesstech/bitchat-mesh/internal/fragment"
	"github.com/permissionlesstech/bitchat-mesh/internal/identity"
	"github.com/permissionlesstech/bitchat-mesh/internal/link"
	"github.com/permissionlesstech/bitchat-mesh/internal/peer"
	"github.com/permissionlesstech/bitchat-mesh/internal/protocol"
	"github.com/permissionlesstech/bitchat-mesh/internal/radio"
	"github.com/permissionlesstech/bitchat-mesh/internal/scanner"
)

// linkKind distinguishes which role a packet arrived over, so the Announce
// handler knows whether to bind the sender's peer-id via the outbound or
// inbound link map.
type linkKind int

const (
	linkNone linkKind = iota
	linkOutbound
	linkInbound
)

// source identifies the link a decoded packet arrived over, if any. A zero
// value means the packet was produced locally (fed back after reassembly,
// for instance) and carries no direct link to bind.
type source struct {
	kind linkKind
	id   string
}

// command is a unit of work executed exclusively on the engine's loop
// goroutine, the single writer for every piece of mutable state below.
type command func()

// Config groups everything New needs to build an Engine.
type Config struct {
	Identity           *identity.Identity
	Nickname           string
	Defaults           config.Defaults
	ServiceUUID        string
	CharacteristicUUID string
	Radio              radio.Adapter
	Delegate           Delegate
	CoverTraffic       bool
	BatteryPressure    scanner.PressureOverride
}

// Engine is the mesh transport's orchestrator. Every field below is touched
// only from the loop goroutine started by StartServices; callers interact
// with it exclusively through the command methods in api.go, which post
// work onto cmds, and through the snapshot accessors, which are the only
// state guarded by their own mutex.
type Engine struct {
	identity           *identity.Identity
	senderID           []byte
	nickname           string
	cfg                config.Defaults
	serviceUUID        string
	characteristicUUID string
	coverTraffic       bool

	radio    radio.Adapter
	delegate Delegate

	link        *link.Manager
	scanner     *scanner.Scanner
	peers       *peer.Table
	reassembler *fragment.Reassembler
	fragmenter  *fragment.Fragmenter

	packetDedup   *dedup.Deduplicator
	fragmentDedup *dedup.Deduplicator

	centralReady    bool
	peripheralReady bool
	announcedSettle bool
	lastAnnounceAt  time.Time

	// scanning mirrors the radio's current scan on/off state, so
	// applyScanState only calls StartScan/StopScan on an actual transition.
	scanning bool

	now  func() time.Time
	rand *rand.Rand

	cmds     chan command
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	snapMu    sync.RWMutex
	snapIDs   []string
	snapNicks map[string]string
}

// coverTrafficProbability is the per-periodic-tick chance of emitting an
// empty-payload cover announce when cover traffic is enabled.
const coverTrafficProbability = 0.1

// New builds an Engine. It does not start any goroutine or radio operation;
// call StartServices for that.
func New(cfg Config) (*Engine, error) {
	if cfg.Identity == nil {
		return nil, fmt.Errorf("mesh: identity is required")
	}
	senderID, err := hex.DecodeString(cfg.Identity.PeerID)
	if err != nil {
		return nil, fmt.Errorf("mesh: decode local peer id: %w", err)
	}

	delegate := cfg.Delegate
	if delegate == nil {
		delegate = NoopDelegate{}
	}

	linkMgr := link.New(link.Config{
		LocalPeerID:      cfg.Identity.PeerID,
		MaxOutboundLinks: cfg.Defaults.MaxOutboundLinks,
		ConnectRateLimit: cfg.Defaults.ConnectRateLimit,
		RSSICutoffDBM:    cfg.Defaults.RSSICutoffDBM,
		ConnectTimeout:   cfg.Defaults.ConnectTimeout,
		PendingCap:       cfg.Defaults.PendingNotificationCap,
	})

	sc := scanner.New(cfg.Defaults.ScanDutyCycles)
	if cfg.BatteryPressure != nil {
		sc.SetPressureOverride(cfg.BatteryPressure)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		identity:            cfg.Identity,
		senderID:            senderID,
		nickname:            cfg.Nickname,
		cfg:                 cfg.Defaults,
		serviceUUID:         cfg.ServiceUUID,
		characteristicUUID:  cfg.CharacteristicUUID,
		coverTraffic:        cfg.CoverTraffic,
		radio:               cfg.Radio,
		delegate:            delegate,
		link:                linkMgr,
		scanner:             sc,
		peers:               peer.NewTable(),
		reassembler:         fragment.NewReassembler(cfg.Defaults.FragmentSlotLifetime),
		fragmenter:          fragment.NewFragmenter(),
		packetDedup:         dedup.New(cfg.Defaults.DedupWindowPackets, cfg.Defaults.DedupMaxPackets),
		fragmentDedup:       dedup.New(cfg.Defaults.DedupWindowFragments, cfg.Defaults.DedupMaxFragments),
		now:                 time.Now,
		rand:                rand.New(rand.NewSource(time.Now().UnixNano())),
		cmds:                make(chan command, 128),
		ctx:                 ctx,
		cancel:              cancel,
	}, nil
}

// post enqueues fn to run on the loop goroutine. It never blocks past the
// engine shutting down.
func (e *Engine) post(fn command) {
	select {
	case e.cmds <- fn:
	case <-e.ctx.Done():
	}
}

// StartServices begins scanning and advertising and starts the single
// engine loop goroutine.
func (e *Engine) StartServices(ctx context.Context) error {
	e.cancel() // release the placeholder context created in New
	e.ctx, e.cancel = context.WithCancel(ctx)

	if err := e.radio.StartAdvertising(e.serviceUUID); err != nil {
		return fmt.Errorf("mesh: start advertising: %w", err)
	}

	e.wg.Add(1)
	go e.loop()
	e.post(e.applyScanState)
	return nil
}

// StopServices broadcasts a best-effort leave, stops scanning/advertising,
// and waits for the loop goroutine to exit. Safe to call more than once;
// only the first call has any effect.
func (e *Engine) StopServices() {
	e.stopOnce.Do(func() {
		e.post(e.doAnnounceLeave)
		time.Sleep(20 * time.Millisecond) // give the loop a chance to flush the leave

		e.radio.StopScan()
		e.radio.StopAdvertising()
		e.cancel()
		e.wg.Wait()
		e.radio.Close()
	})
}

func (e *Engine) loop() {
	defer e.wg.Done()

	maintenance := time.NewTicker(e.cfg.MaintenanceInterval)
	defer maintenance.Stop()
	announceTicker := time.NewTicker(e.cfg.PeriodicAnnounce)
	defer announceTicker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case ev, ok := <-e.radio.Events():
			if !ok {
				return
			}
			e.handleRadioEvent(ev)
		case cmd := <-e.cmds:
			cmd()
		case <-maintenance.C:
			e.runMaintenance()
		case <-announceTicker.C:
			e.onPeriodicAnnounceTick()
		}
	}
}

func (e *Engine) directConnectionCount() int {
	return len(e.link.ConnectedDeviceUUIDs()) + len(e.link.InboundSubscribers())
}

func (e *Engine) refreshSnapshot() {
	ids := e.peers.ConnectedPeerIDs()
	nicks := e.peers.Nicknames()

	e.snapMu.Lock()
	e.snapIDs = ids
	e.snapNicks = nicks
	e.snapMu.Unlock()

	e.delegate.PeerListChanged(ids)
}

func (e *Engine) newPacket(t protocol.PacketType, payload []byte) *protocol.Packet {
	return &protocol.Packet{
		Version:     protocol.CurrentVersion,
		Type:        t,
		TTL:         e.cfg.MessageTTLDefault,
		TimestampMs: uint64(e.now().UnixMilli()),
		SenderID:    e.senderID,
		Payload:     payload,
	}
}
