package hal

// Kind identifies the interrupt source of an Event.
type Kind uint8

const (
	KindButton Kind = iota
	KindLight
	KindTransferHalf
	KindTransferComplete
	KindFadeTick
	kindCount
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindButton:
		return "button"
	case KindLight:
		return "light"
	case KindTransferHalf:
		return "transfer-half"
	case KindTransferComplete:
		return "transfer-complete"
	case KindFadeTick:
		return "fade-tick"
	default:
		return "unknown"
	}
}

// Button identifies a decoded button press.
type Button uint8

const (
	ButtonPower   Button = iota // left button, short press
	ButtonNextDir               // left button, long press
	ButtonNext                  // right button, short press
	ButtonPrev                  // right button, long press
)

// String returns the button name for logging.
func (b Button) String() string {
	switch b {
	case ButtonPower:
		return "power"
	case ButtonNextDir:
		return "next-dir"
	case ButtonNext:
		return "next"
	case ButtonPrev:
		return "prev"
	default:
		return "unknown"
	}
}

// Event is the payload of one interrupt.
type Event struct {
	Kind   Kind
	Button Button // KindButton
	Value  uint16 // KindLight: the conversion that tripped the watchdog
}
