//go:build linux

package radio

// NewPlatformAdapter builds the concrete Adapter for the host platform. On
// Linux that's the BlueZ-backed LinuxAdapter.
func NewPlatformAdapter() (Adapter, error) {
	return NewLinuxAdapter()
}
