// Package sim implements the hal devices on a workstation.
package sim

import (
	"context"
	"encoding/binary"
	"hash/crc32"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/llehouerou/lumiplay/internal/hal"
)

// Raiser accepts interrupt events. *hal.Dispatcher implements it.
type Raiser interface {
	Raise(ev hal.Event) bool
}

// Board keeps the LED and USB rail state.
type Board struct {
	led atomic.Bool
	usb atomic.Bool
	log *slog.Logger
}

// NewBoard returns a board with both outputs off.
func NewBoard(log *slog.Logger) *Board {
	return &Board{log: log}
}

func (b *Board) SetLED(on bool) {
	if b.led.Swap(on) != on {
		b.log.LogAttrs(context.Background(), slog.LevelDebug, "led", slog.Bool("on", on))
	}
}

func (b *Board) SetUSBPower(on bool) {
	if b.usb.Swap(on) != on {
		b.log.LogAttrs(context.Background(), slog.LevelDebug, "usb power", slog.Bool("on", on))
	}
}

// LED reports the LED state.
func (b *Board) LED() bool { return b.led.Load() }

// USBPower reports the USB rail state.
func (b *Board) USBPower() bool { return b.usb.Load() }

// LightSensor is a light sensor whose level is set by hand. Like an analog
// watchdog it raises an event as soon as the level is outside the armed
// window, including when the window is armed around a level already outside
// it.
type LightSensor struct {
	mu      sync.Mutex
	raise   Raiser
	level   uint16
	low     uint16
	high    uint16
	running bool
}

// NewLightSensor returns a stopped sensor reading level.
func NewLightSensor(r Raiser, level uint16) *LightSensor {
	return &LightSensor{raise: r, level: min(level, hal.ADCMax), high: hal.ADCMax}
}

func (s *LightSensor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.check()
}

func (s *LightSensor) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *LightSensor) SetThresholds(low, high uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.low, s.high = low, high
	s.check()
}

// SetLevel changes the reading, clamped to the ADC range.
func (s *LightSensor) SetLevel(level uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = min(level, hal.ADCMax)
	s.check()
}

// Level returns the current reading.
func (s *LightSensor) Level() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Running reports whether the sensor is started.
func (s *LightSensor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *LightSensor) check() {
	if s.running && (s.level < s.low || s.level > s.high) {
		s.raise.Raise(hal.Event{Kind: hal.KindLight, Value: s.level})
	}
}

// FadeTimer raises KindFadeTick events from a ticker goroutine.
type FadeTimer struct {
	mu    sync.Mutex
	raise Raiser
	stop  chan struct{}
}

// NewFadeTimer returns a stopped timer.
func NewFadeTimer(r Raiser) *FadeTimer {
	return &FadeTimer{raise: r}
}

// Start (re)starts the timer with the given period.
func (t *FadeTimer) Start(period time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	if period <= 0 {
		period = time.Millisecond
	}
	stop := make(chan struct{})
	t.stop = stop
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.raise.Raise(hal.Event{Kind: hal.KindFadeTick})
			}
		}
	}()
}

func (t *FadeTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Running reports whether the timer is started.
func (t *FadeTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

func (t *FadeTimer) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// Watchdog expires when it is not fed for longer than its timeout.
type Watchdog struct {
	timeout time.Duration
	last    atomic.Int64
	log     *slog.Logger
}

// NewWatchdog returns a watchdog. A zero timeout disables expiry.
func NewWatchdog(timeout time.Duration, log *slog.Logger) *Watchdog {
	w := &Watchdog{timeout: timeout, log: log}
	w.Feed()
	return w
}

func (w *Watchdog) Feed() { w.last.Store(time.Now().UnixNano()) }

// Run checks the watchdog until ctx is done, calling onExpire each time it
// expires.
func (w *Watchdog) Run(ctx context.Context, onExpire func()) error {
	if w.timeout <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(w.timeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			starved := now.Sub(time.Unix(0, w.last.Load()))
			if starved < w.timeout {
				continue
			}
			w.log.LogAttrs(ctx, slog.LevelError, "watchdog expired",
				slog.Duration("starved", starved))
			w.Feed()
			onExpire()
		}
	}
}

// Entropy mixes a free-running clock through a CRC accumulator.
type Entropy struct {
	mu  sync.Mutex
	acc uint32
}

func (e *Entropy) Next() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(time.Now().UnixNano()))
	e.acc = crc32.Update(e.acc, crc32.IEEETable, b[:])
	return e.acc
}

var (
	_ hal.Board       = (*Board)(nil)
	_ hal.LightSensor = (*LightSensor)(nil)
	_ hal.Timer       = (*FadeTimer)(nil)
	_ hal.Watchdog    = (*Watchdog)(nil)
	_ hal.Entropy     = (*Entropy)(nil)
	_ Raiser          = (*hal.Dispatcher)(nil)
)
