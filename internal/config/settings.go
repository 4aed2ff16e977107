package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "lumiplay"

// Settings configures the host simulator. The device itself only reads
// CONFIG.INI from the card.
type Settings struct {
	CardRoot        string        `koanf:"card_root"`        // directory served as the card
	LogLevel        string        `koanf:"log_level"`        // debug, info, warn, error
	Headless        bool          `koanf:"headless"`         // no front panel
	LightLevel      uint16        `koanf:"light_level"`      // initial sensor reading, 0 (bright) to 4095 (dark)
	SpeakerRate     int           `koanf:"speaker_rate"`     // host output sample rate
	WatchdogTimeout time.Duration `koanf:"watchdog_timeout"` // 0 disables the watchdog
	RemountDelay    time.Duration `koanf:"remount_delay"`
}

// DefaultSettings returns the settings used when no file overrides them.
func DefaultSettings() Settings {
	return Settings{
		CardRoot:        ".",
		LogLevel:        "info",
		LightLevel:      0x400,
		SpeakerRate:     44100,
		WatchdogTimeout: 2 * time.Second,
		RemountDelay:    time.Second,
	}
}

// LoadSettings reads the settings files, later files overriding earlier
// ones.
func LoadSettings() (Settings, error) {
	return loadSettingsFrom(getSettingsPaths())
}

func loadSettingsFrom(paths []string) (Settings, error) {
	k := koanf.New(".")
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return DefaultSettings(), err
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return DefaultSettings(), err
		}
	}

	s := DefaultSettings()
	if err := k.Unmarshal("", &s); err != nil {
		return DefaultSettings(), err
	}
	s.CardRoot = expandPath(s.CardRoot)
	if s.LightLevel > 0xFFF {
		s.LightLevel = 0xFFF
	}
	return s, nil
}

func getSettingsPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/lumiplay/settings.toml
		filepath.Join(xdg.ConfigHome, appName, "settings.toml"),
		// 2. ./lumiplay.toml (pwd, highest priority)
		appName + ".toml",
	}
}

// Level returns the slog level named by LogLevel, info when unknown.
func (s Settings) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// LogFile returns the path of the log file used while the front panel owns
// the terminal.
func LogFile() (string, error) {
	return xdg.StateFile(filepath.Join(appName, appName+".log"))
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
