package playback

import (
	"testing"

	"github.com/llehouerou/lumiplay/internal/state"
)

func TestPlayState_String(t *testing.T) {
	tests := []struct {
		state PlayState
		want  string
	}{
		{StateInvalid, "Invalid"},
		{StateNotPlaying, "NotPlaying"},
		{StateFadeOut, "FadeOut"},
		{StateFadeIn, "FadeIn"},
		{StatePlaying, "Playing"},
		{PlayState(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestPlayState_Active(t *testing.T) {
	tests := []struct {
		state PlayState
		want  bool
	}{
		{StateInvalid, false},
		{StateNotPlaying, false},
		{StateFadeOut, false},
		{StateFadeIn, true},
		{StatePlaying, true},
	}
	for _, tt := range tests {
		if got := tt.state.Active(); got != tt.want {
			t.Errorf("%v.Active() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestNextMode(t *testing.T) {
	tests := []struct {
		mode  state.Mode
		light bool
		want  state.Mode
	}{
		{state.ModeSensor, true, state.ModeForcedOn},
		{state.ModeForcedOn, true, state.ModeForcedOff},
		{state.ModeForcedOff, true, state.ModeSensor},
		{state.ModeForcedOff, false, state.ModeForcedOn},
		{state.ModeForcedOn, false, state.ModeForcedOff},
		{state.Mode(7), true, state.ModeSensor},
		{state.Mode(7), false, state.ModeForcedOn},
	}
	for _, tt := range tests {
		if got := nextMode(tt.mode, tt.light); got != tt.want {
			t.Errorf("nextMode(%v, %v) = %v, want %v", tt.mode, tt.light, got, tt.want)
		}
	}
}
