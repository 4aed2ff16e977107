// Package player streams decoded audio into the circular DMA buffers.
//
// The engine owns two channel buffers of FullBuffer samples, drained in a
// loop by the DMA transfer. The decode loop is the only writer: it fills one
// half while the transfer plays the other, and synchronises with the
// transfer only at the half boundaries through two flags set from the
// transfer interrupts.
//
// Schedulability: a half buffer holds HalfBuffer (128) samples, which the
// transfer drains in 2.67 ms at 48 kHz and 2.90 ms at 44.1 kHz. Reading and
// decoding the frames filling a half must take less than that, or the
// transfer replays stale samples. Decoding runs with interrupts masked, so
// the same bound applies to interrupt latency.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/llehouerou/lumiplay/internal/codec"
	"github.com/llehouerou/lumiplay/internal/hal"
	"github.com/llehouerou/lumiplay/internal/storage"
)

const (
	// HalfBuffer is the number of samples per channel in one half of the
	// ring.
	HalfBuffer = codec.MaxFrameSamples
	// FullBuffer is the ring length per channel.
	FullBuffer = 2 * HalfBuffer
	// MaxVolumeShift attenuates to silence.
	MaxVolumeShift = 10

	// SilenceLevel is the sample value of the silence buffer.
	SilenceLevel = 0

	// spins before a poll loop starts sleeping between checks.
	spinLimit = 64
	pollSleep = 100 * time.Microsecond
)

// StateSaver performs deferred state saves from the poll loop.
type StateSaver interface {
	IsStateSaveRequested() bool
	HandleStateSave()
}

// Engine is the audio streaming engine.
type Engine struct {
	dec codec.Decoder
	dma hal.DMA
	irq hal.InterruptMask
	wdt hal.Watchdog
	log *slog.Logger

	left    [FullBuffer]int16
	right   [FullBuffer]int16
	silence [FullBuffer]int16

	halfTransfer     atomic.Bool
	transferComplete atomic.Bool
	command          atomic.Uint32
	volumeShift      atomic.Uint32

	muteMu  sync.Mutex
	muteRef int
}

// NewEngine returns an engine with the output muted once.
func NewEngine(dec codec.Decoder, dma hal.DMA, irq hal.InterruptMask, wdt hal.Watchdog, log *slog.Logger) *Engine {
	e := &Engine{dec: dec, dma: dma, irq: irq, wdt: wdt, log: log}
	for i := range e.silence {
		e.silence[i] = SilenceLevel
	}
	e.Mute()
	return e
}

// OnTransferHalf is the half-transfer interrupt handler.
func (e *Engine) OnTransferHalf() { e.halfTransfer.Store(true) }

// OnTransferComplete is the transfer-complete interrupt handler.
func (e *Engine) OnTransferComplete() { e.transferComplete.Store(true) }

// PlayFile plays entry until it ends or a command other than KeepPlaying is
// set, and returns that command. An error means the file could not be
// started; a read error once playing ends the file early without error.
// The output is muted again on return.
func (e *Engine) PlayFile(ctx context.Context, vol *storage.Volume, entry storage.Entry, saver StateSaver) (Command, error) {
	f, err := vol.Open(entry)
	if err != nil {
		return KeepPlaying, fmt.Errorf("open %s: %w", entry.Path, err)
	}

	format, err := e.dec.Probe(f)
	if err != nil {
		return KeepPlaying, fmt.Errorf("probe %s: %w", entry.Path, err)
	}
	if format.FrameSamples <= 0 || format.FrameSamples > HalfBuffer || HalfBuffer%format.FrameSamples != 0 {
		return KeepPlaying, fmt.Errorf("probe %s: %w: %d samples per frame",
			entry.Path, codec.ErrUnsupported, format.FrameSamples)
	}

	e.log.LogAttrs(ctx, slog.LevelDebug, "play",
		slog.String("path", entry.Path),
		slog.Int("rate", format.SampleRate),
		slog.Int("channels", format.Channels))

	e.dma.SetSampleRate(format.SampleRate)
	e.dec.Reset()
	e.halfTransfer.Store(false)
	e.transferComplete.Store(false)
	e.command.Store(uint32(KeepPlaying))

	e.Unmute()
	defer e.Mute()

	pos := 0
	for {
		e.wdt.Feed()
		if err := e.dec.ReadFrame(); err != nil {
			if !errors.Is(err, io.EOF) {
				e.log.LogAttrs(ctx, slog.LevelDebug, "read frame",
					slog.String("path", entry.Path), slog.Any("error", err))
			}
			break
		}

		e.irq.Disable()
		n := e.dec.Decode(e.left[pos:pos+format.FrameSamples], e.right[pos:pos+format.FrameSamples])
		e.irq.Enable()
		e.attenuate(pos, n)

		leftPart := pos < HalfBuffer
		pos += n

		if leftPart && pos >= HalfBuffer {
			if !e.wait(ctx, &e.transferComplete, vol, saver) {
				break
			}
		}
		if pos >= FullBuffer {
			if !e.wait(ctx, &e.halfTransfer, vol, saver) {
				break
			}
			pos = 0
		}

		if e.Command() != KeepPlaying {
			break
		}
	}

	return e.Command(), nil
}

func (e *Engine) attenuate(pos, n int) {
	shift := e.volumeShift.Load()
	if shift == 0 {
		return
	}
	for i := pos; i < pos+n; i++ {
		e.left[i] >>= shift
		e.right[i] >>= shift
	}
}

// wait polls flag until the transfer interrupt sets it, then clears it. It
// feeds the watchdog on every iteration and runs a requested state save when
// the output is muted, which is the only time the card is idle for long. It
// returns false if ctx is done first.
func (e *Engine) wait(ctx context.Context, flag *atomic.Bool, vol *storage.Volume, saver StateSaver) bool {
	for spins := 0; !flag.Load(); spins++ {
		e.wdt.Feed()
		if saver != nil && e.Muted() && saver.IsStateSaveRequested() {
			pos := vol.Snapshot()
			saver.HandleStateSave()
			vol.Restore(pos)
		}
		if ctx.Err() != nil {
			return false
		}
		if spins < spinLimit {
			runtime.Gosched()
		} else {
			time.Sleep(pollSleep)
		}
	}
	flag.Store(false)
	return true
}
