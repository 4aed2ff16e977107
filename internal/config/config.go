// Package config loads the device configuration stored on the card and the
// host settings of the simulator.
package config

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/lumiplay/internal/hal"
)

// FileName is the device configuration file at the card root.
const FileName = "CONFIG.INI"

// LightMode selects how the light sensor drives playback.
type LightMode uint8

const (
	LightDisabled LightMode = iota
	LightNormal
	LightReversed
)

func (m LightMode) String() string {
	switch m {
	case LightDisabled:
		return "disabled"
	case LightNormal:
		return "normal"
	case LightReversed:
		return "reversed"
	default:
		return fmt.Sprintf("light(%d)", uint8(m))
	}
}

// USBMode is the USB power rail policy.
type USBMode uint8

const (
	USBAlwaysOff USBMode = iota
	USBAlwaysOn
	USBOnPlayback
)

func (m USBMode) String() string {
	switch m {
	case USBAlwaysOff:
		return "always off"
	case USBAlwaysOn:
		return "always on"
	case USBOnPlayback:
		return "on playback"
	default:
		return fmt.Sprintf("usb(%d)", uint8(m))
	}
}

// SaveFlags selects what is persisted in the state file.
type SaveFlags uint8

const (
	SaveDirectory SaveFlags = 1 << iota
	SaveTrack
	SaveMode

	SaveDisabled SaveFlags = 0
)

// Has reports whether all flags in f are set.
func (s SaveFlags) Has(f SaveFlags) bool { return s&f == f }

// Config is the device configuration. It is not modified after Load.
type Config struct {
	RandomMode bool
	Seed       uint32
	LightMode  LightMode
	// Thresholds are in the inverted ADC domain: lower means brighter.
	OnThreshold       uint16
	OffThreshold      uint16
	USBMode           USBMode
	FadeIn            uint8 // ms per volume step
	FadeOut           uint8 // ms per volume step
	Save              SaveFlags
	JumpNextDir       bool
	InstantModeChange bool
}

// Default returns the configuration used when the card carries none.
func Default() Config {
	return Config{
		RandomMode:   true,
		LightMode:    LightNormal,
		OnThreshold:  0xAFF,
		OffThreshold: 0xCFF,
		USBMode:      USBOnPlayback,
		FadeIn:       50,
		FadeOut:      100,
		Save:         SaveDisabled,
	}
}

type keyHandler func(c *Config, value string)

var keyHandlers = map[string]keyHandler{
	"random_mode": func(c *Config, v string) { c.RandomMode = uint8(atoi(v)) != 0 },
	"seed":        func(c *Config, v string) { c.Seed = atoi(v) },
	"light_mode": func(c *Config, v string) {
		if n := atoi(v); n <= uint32(LightReversed) {
			c.LightMode = LightMode(n)
		}
	},
	"on_threshold":  func(c *Config, v string) { c.OnThreshold = invert(v) },
	"off_threshold": func(c *Config, v string) { c.OffThreshold = invert(v) },
	"usb_mode": func(c *Config, v string) {
		if n := atoi(v); n <= uint32(USBOnPlayback) {
			c.USBMode = USBMode(n)
		}
	},
	"fade_in":  func(c *Config, v string) { c.FadeIn = uint8(atoi(v)) },
	"fade_out": func(c *Config, v string) { c.FadeOut = uint8(atoi(v)) },
	"save_directory": func(c *Config, v string) {
		if atoi(v) != 0 {
			c.Save |= SaveDirectory
		}
	},
	"save_track": func(c *Config, v string) {
		if atoi(v) != 0 {
			c.Save |= SaveDirectory | SaveTrack
		}
	},
	"save_mode": func(c *Config, v string) {
		if atoi(v) != 0 {
			c.Save |= SaveMode
		}
	},
	"jump_next_dir":       func(c *Config, v string) { c.JumpNextDir = uint8(atoi(v)) != 0 },
	"instant_mode_change": func(c *Config, v string) { c.InstantModeChange = uint8(atoi(v)) != 0 },
}

// Load reads the configuration stored in name. It always returns a usable
// configuration: on error it is the default one.
func Load(fs FileReader, name string) (Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if err := k.Load(Provider(fs, name), INI()); err != nil {
		return cfg, fmt.Errorf("load %s: %w", name, err)
	}

	for _, key := range k.Keys() {
		if apply, ok := keyHandlers[key]; ok {
			apply(&cfg, k.String(key))
		}
	}
	return cfg, nil
}

// atoi scans leading ASCII digits. Anything else ends the number; an empty
// prefix is 0. Overflow wraps.
func atoi(s string) uint32 {
	var n uint32
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + uint32(s[i]-'0')
	}
	return n
}

func invert(s string) uint16 {
	return hal.ADCMax - uint16(atoi(s))
}

// FileReader reads a whole file from the card.
type FileReader interface {
	ReadFile(name string) ([]byte, error)
}

// CardProvider is a koanf.Provider reading a file from the card.
type CardProvider struct {
	fs   FileReader
	name string
}

// Provider returns a provider for name on fs.
func Provider(fs FileReader, name string) *CardProvider {
	return &CardProvider{fs: fs, name: name}
}

// ReadBytes implements koanf.Provider.
func (p *CardProvider) ReadBytes() ([]byte, error) {
	return p.fs.ReadFile(p.name)
}

// Read is not supported: the file needs a parser.
func (p *CardProvider) Read() (map[string]any, error) {
	return nil, errors.New("card provider does not support this method")
}

var (
	_ koanf.Provider = (*CardProvider)(nil)
	_ koanf.Parser   = (*INIParser)(nil)
)
