//go:build !linux

package radio

import "errors"

// ErrRadioUnavailable is returned by NewPlatformAdapter on platforms with no
// concrete Adapter implementation wired in yet.
var ErrRadioUnavailable = errors.New("radio: no BLE adapter available on this platform")

// NewPlatformAdapter reports ErrRadioUnavailable; only Linux has a concrete
// Adapter. Callers such as cmd/bitchat fall back to the in-memory Simulator.
func NewPlatformAdapter() (Adapter, error) {
	return nil, ErrRadioUnavailable
}
