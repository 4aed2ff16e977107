// internal/player/interface.go
package player

import (
	"context"

	"github.com/llehouerou/lumiplay/internal/storage"
)

// Interface defines the engine contract used by the playback controller.
type Interface interface {
	PlayFile(ctx context.Context, vol *storage.Volume, entry storage.Entry, saver StateSaver) (Command, error)
	SetCommand(c Command)
	Command() Command
	Mute()
	Unmute()
	ResetMute()
	Muted() bool
	SetVolumeShift(shift int)
	VolumeShift() int
}

// Verify Engine implements Interface at compile time.
var _ Interface = (*Engine)(nil)
