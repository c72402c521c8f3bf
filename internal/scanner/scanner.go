// Package scanner implements the adaptive scan duty-cycle state machine:
// continuous scanning with zero direct connections, alternating
// on/off cycles once at least one connection exists, with the cycle mode
// recomputed from recent traffic and connection count.
package scanner

import (
	"time"

	"github.com/permissionlesstech/bitchat-mesh/internal/config"
)

// Mode is the cycled scanning mode, meaningful only when State is Cycled.
type Mode int

const (
	Normal Mode = iota
	Dense
	Sparse
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Dense:
		return "dense"
	case Sparse:
		return "sparse"
	default:
		return "unknown"
	}
}

// State is the scanner's top-level state.
type State int

const (
	Aggressive State = iota
	Cycled
)

func (s State) String() string {
	if s == Aggressive {
		return "aggressive"
	}
	return "cycled"
}

// trafficWindow bounds how far back received-packet timestamps are kept for
// the traffic estimate.
const trafficWindow = 10 * time.Second

// PressureOverride lets an external signal (e.g. a battery monitor) force
// Sparse mode regardless of the computed traffic/connection numbers. It is
// off (nil) by default; the mesh's battery-aware duty-cycling hook sets it
// when available.
type PressureOverride func() bool

// Scanner recomputes the duty-cycle mode on every received packet and
// exposes the current on/off periods for the radio adapter's scan loop.
type Scanner struct {
	cycles config.ScanDutyCycles

	state   State
	mode    Mode
	traffic []time.Time

	pressureOverride PressureOverride
	now              func() time.Time

	// generation increments every time the mode changes, so a caller holding
	// a cycle timer can detect it needs to cancel and restart it.
	generation int
}

// New creates a Scanner starting Aggressive (zero connections).
func New(cycles config.ScanDutyCycles) *Scanner {
	return &Scanner{
		cycles: cycles,
		state:  Aggressive,
		mode:   Normal,
		now:    time.Now,
	}
}

// SetPressureOverride installs or clears (nil) the battery-pressure hook.
func (s *Scanner) SetPressureOverride(f PressureOverride) {
	s.pressureOverride = f
}

// OnPacketReceived records a traffic sample and recomputes the mode given
// the current direct-connection count. It returns true if the mode or state
// changed, meaning the caller must cancel and restart its cycle timer.
func (s *Scanner) OnPacketReceived(directConnections int) bool {
	now := s.now()
	s.traffic = append(s.traffic, now)
	s.pruneTraffic(now)
	return s.recompute(directConnections)
}

// Recompute re-evaluates state/mode without adding a traffic sample, for use
// right after a connection count changes independent of receiving a packet.
func (s *Scanner) Recompute(directConnections int) bool {
	s.pruneTraffic(s.now())
	return s.recompute(directConnections)
}

func (s *Scanner) pruneTraffic(now time.Time) {
	cutoff := now.Add(-trafficWindow)
	i := 0
	for i < len(s.traffic) && s.traffic[i].Before(cutoff) {
		i++
	}
	s.traffic = s.traffic[i:]
}

func (s *Scanner) recompute(directConnections int) bool {
	prevState, prevMode := s.state, s.mode

	if directConnections == 0 {
		s.state = Aggressive
	} else {
		s.state = Cycled
		s.mode = s.computeMode(directConnections)
	}

	changed := s.state != prevState || (s.state == Cycled && s.mode != prevMode)
	if changed {
		s.generation++
	}
	return changed
}

func (s *Scanner) computeMode(directConnections int) Mode {
	if s.pressureOverride != nil && s.pressureOverride() {
		return Sparse
	}

	T := len(s.traffic)
	P := directConnections

	switch {
	case T > 10 || P > 5:
		return Dense
	case T < 2 && P < 2:
		return Sparse
	default:
		return Normal
	}
}

// State returns the current top-level state.
func (s *Scanner) State() State { return s.state }

// Mode returns the current cycled mode (meaningless while State is
// Aggressive).
func (s *Scanner) Mode() Mode { return s.mode }

// Generation returns a counter that increments every time State or Mode
// changes, letting a cycle-timer owner detect staleness cheaply.
func (s *Scanner) Generation() int { return s.generation }

// DutyCycle returns the on/off periods for the current mode. Meaningless
// while State is Aggressive (continuous scan applies instead).
func (s *Scanner) DutyCycle() config.ScanDutyCycle {
	switch s.mode {
	case Dense:
		return s.cycles.Dense
	case Sparse:
		return s.cycles.Sparse
	default:
		return s.cycles.Normal
	}
}
