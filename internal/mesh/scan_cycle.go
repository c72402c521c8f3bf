package mesh

import (
	"time"

	"github.com/permissionlesstech/bitchat-mesh/internal/config"
	"github.com/permissionlesstech/bitchat-mesh/internal/obslog"
	"github.com/permissionlesstech/bitchat-mesh/internal/scanner"
)

// applyScanState reconciles the radio's scan on/off with the scanner's
// current state. It runs on the loop goroutine, either right after
// StartServices or whenever OnPacketReceived/Recompute report a mode
// change, and is the only place that toggles radio scanning.
//
// Aggressive means continuous scan. Cycled alternates on/off per
// DutyCycle(). The generation captured when a leg is armed lets the timer
// notice the mode moved on underneath it and stop rescheduling itself,
// which is how a mode change cancels and restarts the cycle.
func (e *Engine) applyScanState() {
	if e.scanner.State() == scanner.Aggressive {
		e.setScanning(true)
		return
	}

	e.setScanning(true)
	e.armScanTimer(e.scanner.Generation(), e.scanner.DutyCycle(), true)
}

// armScanTimer schedules the next on/off transition. turningOff is true
// while scanning is currently on and the armed timer will switch it off;
// false while currently off and the timer will switch it back on.
func (e *Engine) armScanTimer(gen int, cycle config.ScanDutyCycle, turningOff bool) {
	delay := cycle.Off
	if turningOff {
		delay = cycle.On
	}
	time.AfterFunc(delay, func() {
		e.post(func() { e.fireScanTimer(gen, cycle, turningOff) })
	})
}

func (e *Engine) fireScanTimer(gen int, cycle config.ScanDutyCycle, turningOff bool) {
	if e.scanner.State() != scanner.Cycled || e.scanner.Generation() != gen {
		return // stale: the mode changed since this leg was armed
	}
	e.setScanning(!turningOff)
	e.armScanTimer(gen, cycle, !turningOff)
}

// setScanning toggles the radio's scan state, a no-op if it already matches.
func (e *Engine) setScanning(on bool) {
	if on == e.scanning {
		return
	}
	e.scanning = on

	var err error
	if on {
		err = e.radio.StartScan(e.ctx, e.serviceUUID)
	} else {
		err = e.radio.StopScan()
	}
	if err != nil {
		obslog.Get().WithError(err).Debug("mesh: toggle scan failed")
	}
}
