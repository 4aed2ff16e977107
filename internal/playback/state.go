package playback

import "github.com/llehouerou/lumiplay/internal/state"

// PlayState is the audio side of the controller. The order matters: states
// after StateFadeOut are audio active.
type PlayState int

const (
	StateInvalid PlayState = iota
	StateNotPlaying
	StateFadeOut
	StateFadeIn
	StatePlaying
)

// String returns the state name.
func (s PlayState) String() string {
	switch s {
	case StateInvalid:
		return "Invalid"
	case StateNotPlaying:
		return "NotPlaying"
	case StateFadeOut:
		return "FadeOut"
	case StateFadeIn:
		return "FadeIn"
	case StatePlaying:
		return "Playing"
	default:
		return "Unknown"
	}
}

// Active reports whether audio is heading to or at full volume.
func (s PlayState) Active() bool {
	return s >= StateFadeIn
}

// nextModes is the power button cycle.
var nextModes = map[state.Mode]state.Mode{
	state.ModeSensor:    state.ModeForcedOn,
	state.ModeForcedOn:  state.ModeForcedOff,
	state.ModeForcedOff: state.ModeSensor,
}

// nextMode returns the mode following m. Sensor is skipped when the light
// feature is off.
func nextMode(m state.Mode, lightEnabled bool) state.Mode {
	next, ok := nextModes[m]
	if !ok {
		next = state.ModeSensor
	}
	if next == state.ModeSensor && !lightEnabled {
		next = state.ModeForcedOn
	}
	return next
}
