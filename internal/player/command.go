package player

import "fmt"

// Command tells the engine what to do at its next polling point.
type Command uint32

const (
	KeepPlaying Command = iota
	NextTrack
	PrevTrack
	NextDirectory
)

// String returns the command name for logging.
func (c Command) String() string {
	switch c {
	case KeepPlaying:
		return "keep playing"
	case NextTrack:
		return "next track"
	case PrevTrack:
		return "previous track"
	case NextDirectory:
		return "next directory"
	default:
		return fmt.Sprintf("command(%d)", uint32(c))
	}
}

// SetCommand sets the pending command. It is safe from interrupt handlers;
// the engine reads it between frames and never preempts a decode.
func (e *Engine) SetCommand(c Command) { e.command.Store(uint32(c)) }

// Command returns the pending command.
func (e *Engine) Command() Command { return Command(e.command.Load()) }
