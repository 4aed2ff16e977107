package sim

import (
	"sync"

	"github.com/gopxl/beep/v2"

	"github.com/llehouerou/lumiplay/internal/hal"
)

// Output emulates the circular DMA transfer into the PWM output. It is a
// beep.Streamer: every sample pulled by the speaker advances the transfer
// by one position in the source buffers.
//
// The sources are read without synchronising with their writer, exactly as
// the DMA engine reads memory the CPU is filling.
type Output struct {
	mu     sync.Mutex
	raise  Raiser
	left   []int16
	right  []int16
	pos    int
	irq    bool
	halfP  bool // half transfer pending while masked
	doneP  bool // transfer complete pending while masked
	rate   int
	onRate func(hz int)
}

// NewOutput returns a transfer with no source and interrupts masked.
func NewOutput(r Raiser) *Output {
	return &Output{raise: r}
}

// OnSampleRate registers f to be called when the sample rate changes.
func (o *Output) OnSampleRate(f func(hz int)) {
	o.mu.Lock()
	o.onRate = f
	o.mu.Unlock()
}

func (o *Output) SetSource(left, right []int16) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.left, o.right = left, right
	if o.pos >= len(left) {
		o.pos = 0
	}
}

func (o *Output) EnableIRQ(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.irq = enabled
	if !enabled {
		return
	}
	if o.halfP {
		o.halfP = false
		o.raise.Raise(hal.Event{Kind: hal.KindTransferHalf})
	}
	if o.doneP {
		o.doneP = false
		o.raise.Raise(hal.Event{Kind: hal.KindTransferComplete})
	}
}

func (o *Output) SetSampleRate(hz int) {
	o.mu.Lock()
	o.rate = hz
	f := o.onRate
	o.mu.Unlock()
	if f != nil {
		f(hz)
	}
}

// SampleRate returns the last rate set.
func (o *Output) SampleRate() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rate
}

// Stream implements beep.Streamer. It never ends.
func (o *Output) Stream(samples [][2]float64) (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := len(o.left)
	for i := range samples {
		if n == 0 {
			samples[i] = [2]float64{}
			continue
		}
		samples[i][0] = float64(o.left[o.pos]) / 32768
		samples[i][1] = float64(o.right[o.pos]) / 32768
		o.pos++
		switch o.pos {
		case n / 2:
			o.fire(hal.KindTransferHalf, &o.halfP)
		case n:
			o.pos = 0
			o.fire(hal.KindTransferComplete, &o.doneP)
		}
	}
	return len(samples), true
}

// Err implements beep.Streamer.
func (o *Output) Err() error { return nil }

func (o *Output) fire(k hal.Kind, pending *bool) {
	if o.irq {
		o.raise.Raise(hal.Event{Kind: k})
		return
	}
	*pending = true
}

var (
	_ hal.DMA       = (*Output)(nil)
	_ beep.Streamer = (*Output)(nil)
)
