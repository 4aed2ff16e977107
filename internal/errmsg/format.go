// Package errmsg names the operations of the player that can fail and
// formats their errors consistently.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by policy.
const (
	// Fatal: the card is remounted
	OpMount        Op = "mount card"
	OpOpenRoot     Op = "open root directory"
	OpRestoreState Op = "restore playback state"
	OpNextTrack    Op = "select next track"
	OpPrevTrack    Op = "select previous track"
	OpNextDir      Op = "select next directory"

	// Per track: the next track is played
	OpPlayFile Op = "play file"

	// Fallback: defaults are used
	OpLoadConfig Op = "load config"
	OpLoadState  Op = "load playback state"
	OpSaveState  Op = "save playback state"
)

// Error is an error tagged with the operation that failed.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string { return Format(e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with op. It returns nil for a nil err.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
