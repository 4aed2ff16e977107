// Package hal declares the hardware collaborators of the playback core.
//
// Every device is reduced to the handful of operations the core needs: the
// board's LED and USB power rail, the light sensor's analog watchdog, the fade
// timer, the audio DMA engine, the watchdog and the entropy source. Interrupts
// are delivered as Events through a Dispatcher.
package hal

import "time"

// ADCMax is the full scale of the 12-bit light sensor conversion.
const ADCMax = 0xFFF

// Watchdog is the independent hardware watchdog. Every unbounded loop must
// feed it.
type Watchdog interface {
	Feed()
}

// Entropy is a non-deterministic 32-bit source.
type Entropy interface {
	Next() uint32
}

// Board drives the simple outputs of the player.
type Board interface {
	SetLED(on bool)
	SetUSBPower(on bool)
}

// LightSensor is the ambient light ADC with its analog watchdog. Once
// started it raises a KindLight event whenever a conversion falls outside
// [low, high]. Lower values mean more light.
type LightSensor interface {
	Start()
	Stop()
	SetThresholds(low, high uint16)
}

// Timer is a periodic millisecond timer raising KindFadeTick events.
type Timer interface {
	Start(period time.Duration)
	Stop()
}

// DMA is the circular memory-to-PWM transfer feeding the audio output. It
// drains both channel buffers in lock step and raises KindTransferHalf and
// KindTransferComplete events at the half and end of the buffers.
type DMA interface {
	// SetSource swaps the buffers drained by the transfer without
	// stopping it. Both slices must have the same length.
	SetSource(left, right []int16)
	// EnableIRQ masks or unmasks the transfer interrupts. Events raised
	// while masked stay pending and are delivered on unmask.
	EnableIRQ(enabled bool)
	SetSampleRate(hz int)
}

// InterruptMask disables and re-enables interrupt delivery globally.
type InterruptMask interface {
	Disable()
	Enable()
}
