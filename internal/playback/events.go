package playback

import "github.com/llehouerou/lumiplay/internal/state"

// StateChange is emitted when the play state changes.
type StateChange struct {
	Previous PlayState
	Current  PlayState
}

// ModeChange is emitted when the power mode changes, by button or at mount.
type ModeChange struct {
	Previous state.Mode
	Current  state.Mode
}

// TrackChange is emitted when the navigator selects another track.
//
// Emitted by:
//   - Run: after restoring the state and after every advance
//
// The previous track is nil right after a mount.
type TrackChange struct {
	Previous *Track
	Current  Track
}

// ErrorEvent is emitted when a track is skipped or the card is remounted.
type ErrorEvent struct {
	Operation string // e.g., "play file", "mount card"
	Path      string // track path if applicable
	Err       error
}
