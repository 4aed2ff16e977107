package playback

import (
	"context"
	"log/slog"
	"time"

	"github.com/llehouerou/lumiplay/internal/config"
	"github.com/llehouerou/lumiplay/internal/errmsg"
	"github.com/llehouerou/lumiplay/internal/hal"
	"github.com/llehouerou/lumiplay/internal/player"
	"github.com/llehouerou/lumiplay/internal/state"
)

// InitCard mounts the card and sets the mode baseline: saved mode when mode
// saving is on, else Sensor, or ForcedOff when the light feature is off.
// Outputs are switched off and the engine holds a single mute lock.
func (c *Controller) InitCard() error {
	c.mu.Lock()
	c.mounted = false
	c.light.Stop()
	c.fade.Stop()
	c.board.SetLED(false)
	c.board.SetUSBPower(false)
	c.playState = StateInvalid
	c.mu.Unlock()

	if err := c.nav.Init(); err != nil {
		return errmsg.Wrap(errmsg.OpMount, err)
	}
	c.eng.ResetMute()
	c.eng.SetVolumeShift(player.MaxVolumeShift)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = c.nav.Config()
	c.saveMode = c.nav.SaveEnabled(config.SaveMode)
	c.track = Track{}

	switch c.cfg.USBMode {
	case config.USBAlwaysOn:
		c.board.SetUSBPower(true)
	case config.USBAlwaysOff:
		c.board.SetUSBPower(false)
	}

	mode := state.ModeSensor
	if c.saveMode {
		mode = c.nav.State().Mode
	}
	if mode == state.ModeSensor && c.cfg.LightMode == config.LightDisabled {
		mode = state.ModeForcedOff
	}

	c.mounted = true
	c.setMode(mode, c.cfg.InstantModeChange)

	c.log.LogAttrs(context.Background(), slog.LevelInfo, "card mounted",
		slog.String("mode", mode.String()),
		slog.Bool("random", c.cfg.RandomMode),
		slog.String("light", c.cfg.LightMode.String()),
		slog.String("usb", c.cfg.USBMode.String()),
		slog.Uint64("save", uint64(c.cfg.Save)))
	return nil
}

// OnButton handles a decoded button press.
func (c *Controller) OnButton(b hal.Button) {
	switch b {
	case hal.ButtonPower:
		c.mu.Lock()
		if !c.mounted {
			c.mu.Unlock()
			return
		}
		next := nextMode(c.mode, c.cfg.LightMode != config.LightDisabled)
		c.setMode(next, c.cfg.InstantModeChange)
		save := c.saveMode
		c.mu.Unlock()
		if save {
			c.nav.RequestStateSave()
		}
	case hal.ButtonNext:
		c.eng.SetCommand(player.NextTrack)
	case hal.ButtonPrev:
		c.eng.SetCommand(player.PrevTrack)
	case hal.ButtonNextDir:
		c.eng.SetCommand(player.NextDirectory)
	}
}

// OnLight handles the light sensor watchdog. value is the conversion that
// left the armed window; lower values mean more light.
func (c *Controller) OnLight(value uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted || c.mode != state.ModeSensor {
		return
	}

	reversed := c.cfg.LightMode == config.LightReversed
	switch {
	case value < c.cfg.OnThreshold:
		if reversed {
			c.changePlayState(StateNotPlaying, false)
		} else {
			c.changePlayState(StatePlaying, false)
		}
	case value > c.cfg.OffThreshold:
		if reversed {
			c.changePlayState(StatePlaying, false)
		} else {
			c.changePlayState(StateNotPlaying, false)
		}
	}
	c.armThresholds()
}

// OnFadeTick moves the fade one step.
func (c *Controller) OnFadeTick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.playState {
	case StateFadeIn:
		shift := c.eng.VolumeShift() - 1
		c.eng.SetVolumeShift(shift)
		if shift <= 0 {
			c.fade.Stop()
			c.setState(StatePlaying)
		}
	case StateFadeOut:
		shift := c.eng.VolumeShift() + 1
		c.eng.SetVolumeShift(shift)
		if shift >= player.MaxVolumeShift {
			c.fade.Stop()
			c.setState(StateNotPlaying)
		}
	default:
		c.fade.Stop()
	}
}

// setMode applies m. The first mode after a mount starts from a silent
// NotPlaying baseline. Callers hold c.mu.
func (c *Controller) setMode(m state.Mode, instant bool) {
	prev := c.mode
	c.mode = m
	if c.playState == StateInvalid {
		c.changePlayState(StateNotPlaying, true)
	}

	switch m {
	case state.ModeForcedOff:
		c.light.Stop()
		c.changePlayState(StateNotPlaying, instant)
	case state.ModeForcedOn:
		c.light.Stop()
		c.changePlayState(StatePlaying, instant)
	case state.ModeSensor:
		c.armThresholds()
		c.light.Start()
	}
	c.nav.SetMode(m)

	c.log.LogAttrs(context.Background(), slog.LevelDebug, "mode",
		slog.String("from", prev.String()), slog.String("to", m.String()))
	c.each(func(s *Subscription) { s.sendMode(ModeChange{Previous: prev, Current: m}) })
}

// armThresholds arms the light watchdog for the edge that would change the
// current state. Callers hold c.mu.
func (c *Controller) armThresholds() {
	active := c.playState.Active()
	normal := c.cfg.LightMode == config.LightNormal
	reversed := c.cfg.LightMode == config.LightReversed
	if (active && normal) || (!active && reversed) {
		c.light.SetThresholds(0, c.cfg.OffThreshold)
		return
	}
	c.light.SetThresholds(c.cfg.OnThreshold, hal.ADCMax)
}

// changePlayState heads for StatePlaying or StateNotPlaying, fading unless
// instant is set or the fade duration is zero. A fade out interrupted by a
// fade in continues from the current volume. Callers hold c.mu.
func (c *Controller) changePlayState(target PlayState, instant bool) {
	switch target {
	case StatePlaying:
		if c.playState.Active() {
			return
		}
		if instant || c.cfg.FadeIn == 0 {
			c.fade.Stop()
			c.eng.SetVolumeShift(0)
			c.setState(StatePlaying)
			return
		}
		if c.playState != StateFadeOut {
			c.eng.SetVolumeShift(player.MaxVolumeShift)
		}
		c.setState(StateFadeIn)
		c.fade.Start(time.Duration(c.cfg.FadeIn) * time.Millisecond)
	case StateNotPlaying:
		if c.playState == StateNotPlaying || c.playState == StateFadeOut {
			return
		}
		if instant || c.cfg.FadeOut == 0 {
			c.fade.Stop()
			c.eng.SetVolumeShift(player.MaxVolumeShift)
			c.setState(StateNotPlaying)
			return
		}
		c.setState(StateFadeOut)
		c.fade.Start(time.Duration(c.cfg.FadeOut) * time.Millisecond)
	}
}

// setState switches the play state and its outputs. The NotPlaying mute lock
// is taken on entry and released on exit only. Callers hold c.mu.
func (c *Controller) setState(next PlayState) {
	prev := c.playState
	if prev == next {
		return
	}
	c.playState = next

	onPlayback := c.cfg.USBMode == config.USBOnPlayback
	if next.Active() && !prev.Active() {
		c.board.SetLED(true)
		if onPlayback {
			c.board.SetUSBPower(true)
		}
	}
	if next == StateNotPlaying {
		c.board.SetLED(false)
		if onPlayback {
			c.board.SetUSBPower(false)
		}
		c.eng.Mute()
	}
	if prev == StateNotPlaying {
		c.eng.Unmute()
	}

	c.log.LogAttrs(context.Background(), slog.LevelDebug, "play state",
		slog.String("from", prev.String()), slog.String("to", next.String()))
	c.each(func(s *Subscription) { s.sendState(StateChange{Previous: prev, Current: next}) })
}
