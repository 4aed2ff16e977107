// Package keymap defines the key bindings of the front panel.
package keymap

// Action represents a user-triggerable action.
type Action string

const (
	// Global actions
	ActionQuit Action = "quit"
	ActionHelp Action = "help"

	// Buttons
	ActionPower   Action = "power"    // left button, short press
	ActionNextDir Action = "next_dir" // left button, long press
	ActionNext    Action = "next"     // right button, short press
	ActionPrev    Action = "prev"     // right button, long press

	// Light sensor
	ActionBrighter Action = "brighter"
	ActionDarker   Action = "darker"
)
