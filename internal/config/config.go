// Package config holds the mesh's compile-time protocol tunables and the
// small set of runtime settings an operator can override (nickname, log
// level, which service UUID to advertise).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults enumerates every compile-time tunable governing protocol timing,
// resource caps and scan duty cycles. These are not meant to be changed at
// runtime; they are the numbers the rewrite consolidated the mesh's
// previously-scattered timers and limits onto.
type Defaults struct {
	CompressionThresholdBytes int
	DefaultFragmentSize       int
	MessageTTLDefault         uint8
	DedupWindowPackets        time.Duration
	DedupMaxPackets           int
	DedupWindowFragments      time.Duration
	DedupMaxFragments         int
	FragmentSlotLifetime      time.Duration
	PeerInactivity            time.Duration
	MaxOutboundLinks          int
	ConnectRateLimit          time.Duration
	ConnectTimeout            time.Duration
	RSSICutoffDBM             int
	AnnounceMinInterval       time.Duration
	PeriodicAnnounce          time.Duration
	MaintenanceInterval       time.Duration
	PostConnectSettle         time.Duration
	EngineSettle              time.Duration
	AnnounceReplyDelay        time.Duration
	PendingNotificationCap    int
	ScanDutyCycles            ScanDutyCycles
}

// ScanDutyCycle is a pair of on/off intervals the adaptive scanner alternates
// between while in Cycled mode.
type ScanDutyCycle struct {
	On  time.Duration
	Off time.Duration
}

// ScanDutyCycles is the table of on/off periods keyed by scanner mode.
type ScanDutyCycles struct {
	Normal ScanDutyCycle
	Dense  ScanDutyCycle
	Sparse ScanDutyCycle
}

// DefaultConfig returns the tunables named in the mesh's design.
func DefaultConfig() Defaults {
	return Defaults{
		CompressionThresholdBytes: 256,
		DefaultFragmentSize:       150,
		MessageTTLDefault:         8,
		DedupWindowPackets:        30 * time.Second,
		DedupMaxPackets:           1000,
		DedupWindowFragments:      60 * time.Second,
		DedupMaxFragments:         2000,
		FragmentSlotLifetime:      30 * time.Second,
		PeerInactivity:            30 * time.Second,
		MaxOutboundLinks:          10,
		ConnectRateLimit:          2 * time.Second,
		ConnectTimeout:            10 * time.Second,
		RSSICutoffDBM:             -80,
		AnnounceMinInterval:       2 * time.Second,
		PeriodicAnnounce:          30 * time.Second,
		MaintenanceInterval:       10 * time.Second,
		PostConnectSettle:         500 * time.Millisecond,
		EngineSettle:              1 * time.Second,
		AnnounceReplyDelay:        100 * time.Millisecond,
		PendingNotificationCap:    50,
		ScanDutyCycles: ScanDutyCycles{
			Normal: ScanDutyCycle{On: 10 * time.Second, Off: 5 * time.Second},
			Dense:  ScanDutyCycle{On: 5 * time.Second, Off: 10 * time.Second},
			Sparse: ScanDutyCycle{On: 5 * time.Second, Off: 15 * time.Second},
		},
	}
}

// MainnetServiceUUID and TestnetServiceUUID are the two fixed 128-bit service
// identifiers the radio adapter may advertise/scan for.
const (
	MainnetServiceUUID = "6E400001-B5A3-F393-E0A9-E50E24DCCA9E"
	TestnetServiceUUID = "6E400001-B5A3-F393-E0A9-E50E24DCCA9F"
	CharacteristicUUID = "6E400002-B5A3-F393-E0A9-E50E24DCCA9E"
)

// Runtime holds the operator-facing settings loaded from flags and
// environment variables via viper. Protocol tunables are deliberately absent here; they stay
// compile-time (see Defaults).
type Runtime struct {
	Nickname    string `mapstructure:"nickname"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	Testnet     bool   `mapstructure:"testnet"`
	ServiceUUID string `mapstructure:"-"`
}

// BindFlags registers the runtime flags on fs so a cobra command can expose
// them; Load then reads whichever of flags/env won.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("nickname", "", "display name announced to the mesh")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "text", "log format: text or json")
	fs.Bool("testnet", false, "advertise/scan the testnet service UUID instead of mainnet")
}

// Load resolves the Runtime settings from the bound flags and environment
// variables prefixed BITCHAT_. No config file is read.
func Load(fs *pflag.FlagSet) (*Runtime, error) {
	v := viper.New()
	v.SetEnvPrefix("BITCHAT")
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}

	rt := &Runtime{
		Nickname:  v.GetString("nickname"),
		LogLevel:  v.GetString("log-level"),
		LogFormat: v.GetString("log-format"),
		Testnet:   v.GetBool("testnet"),
	}

	if rt.Testnet {
		rt.ServiceUUID = TestnetServiceUUID
	} else {
		rt.ServiceUUID = MainnetServiceUUID
	}

	return rt, nil
}
