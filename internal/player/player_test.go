package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/lumiplay/internal/codec"
	"github.com/llehouerou/lumiplay/internal/storage"
)

// fakeDecoder produces one frame per byte of the file it probes.
type fakeDecoder struct {
	frameSamples int
	probeErr     error
	irq          *fakeIRQ

	r        io.Reader
	frame    int
	resets   int
	decodes  int
	unmasked int // decodes seen with interrupts enabled
	value    int16
	onDecode func(frame int)
}

func (d *fakeDecoder) Probe(r io.ReadSeeker) (codec.Format, error) {
	if d.probeErr != nil {
		return codec.Format{}, d.probeErr
	}
	d.r = r
	return codec.Format{SampleRate: 48000, Channels: 2, FrameSamples: d.frameSamples}, nil
}

func (d *fakeDecoder) Reset() { d.resets++ }

func (d *fakeDecoder) ReadFrame() error {
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return err
	}
	d.frame++
	return nil
}

func (d *fakeDecoder) Decode(left, right []int16) int {
	d.decodes++
	if !d.irq.disabled() {
		d.unmasked++
	}
	for i := range d.frameSamples {
		left[i] = d.value
		right[i] = -d.value
	}
	if d.onDecode != nil {
		d.onDecode(d.frame)
	}
	return d.frameSamples
}

type fakeIRQ struct {
	depth atomic.Int32
}

func (f *fakeIRQ) Disable()       { f.depth.Add(1) }
func (f *fakeIRQ) Enable()        { f.depth.Add(-1) }
func (f *fakeIRQ) disabled() bool { return f.depth.Load() > 0 }

type fakeDMA struct {
	mu   sync.Mutex
	src  []int16
	irq  bool
	rate int
}

func (d *fakeDMA) SetSource(left, _ []int16) {
	d.mu.Lock()
	d.src = left
	d.mu.Unlock()
}

// playsFrom reports whether the transfer drains buf.
func (d *fakeDMA) playsFrom(buf []int16) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.src) > 0 && &d.src[0] == &buf[0]
}

func (d *fakeDMA) EnableIRQ(enabled bool) {
	d.mu.Lock()
	d.irq = enabled
	d.mu.Unlock()
}

func (d *fakeDMA) SetSampleRate(hz int) {
	d.mu.Lock()
	d.rate = hz
	d.mu.Unlock()
}

func (d *fakeDMA) irqEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.irq
}

type fakeWatchdog struct{ feeds atomic.Int64 }

func (w *fakeWatchdog) Feed() { w.feeds.Add(1) }

type fakeSaver struct {
	vol       *storage.Volume
	requested atomic.Bool
	saves     atomic.Int32
}

func (s *fakeSaver) IsStateSaveRequested() bool { return s.requested.Load() }

func (s *fakeSaver) HandleStateSave() {
	_ = s.vol.WriteFile("STATE.BIN", []byte("saved"))
	s.requested.Store(false)
	s.saves.Add(1)
}

type fixture struct {
	eng *Engine
	dec *fakeDecoder
	dma *fakeDMA
	irq *fakeIRQ
	wdt *fakeWatchdog
	vol *storage.Volume
	mem *storage.MemMounter
}

func newFixture(t *testing.T, frames, frameSamples int) *fixture {
	t.Helper()
	mem := storage.NewMemMounter(map[string][]byte{
		"album/track.sbc": make([]byte, frames),
		"STATE.BIN":       make([]byte, 20),
	})
	vol, err := mem.Mount()
	require.NoError(t, err)

	irq := &fakeIRQ{}
	f := &fixture{
		dec: &fakeDecoder{frameSamples: frameSamples, irq: irq, value: 400},
		dma: &fakeDMA{},
		irq: irq,
		wdt: &fakeWatchdog{},
		vol: vol,
		mem: mem,
	}
	f.eng = NewEngine(f.dec, f.dma, irq, f.wdt, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func (f *fixture) live() bool {
	return f.dma.playsFrom(f.eng.left[:])
}

func (f *fixture) track() storage.Entry {
	return storage.Entry{Name: "track.sbc", Path: "album/track.sbc"}
}

// pump plays the part of the transfer: while its interrupts are unmasked it
// keeps signalling half and complete.
func (f *fixture) pump(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if f.dma.irqEnabled() {
				f.eng.OnTransferHalf()
				f.eng.OnTransferComplete()
			}
			time.Sleep(20 * time.Microsecond)
		}
	}()
	t.Cleanup(func() {
		close(done)
		wg.Wait()
	})
}

func TestPlayFile_PlaysToEnd(t *testing.T) {
	f := newFixture(t, 10, 64)
	f.pump(t)

	cmd, err := f.eng.PlayFile(context.Background(), f.vol, f.track(), nil)
	require.NoError(t, err)
	assert.Equal(t, KeepPlaying, cmd)

	assert.Equal(t, 10, f.dec.decodes)
	assert.Zero(t, f.dec.unmasked, "decode must run with interrupts masked")
	assert.False(t, f.irq.disabled())
	assert.Equal(t, 1, f.dec.resets)
	assert.GreaterOrEqual(t, f.wdt.feeds.Load(), int64(10))
	assert.Equal(t, 48000, f.dma.rate)
	assert.True(t, f.dma.playsFrom(f.eng.silence[:]))

	assert.Equal(t, 1, f.eng.MuteRefs(), "muted again on return")
	assert.False(t, f.dma.irqEnabled())
	assert.False(t, f.live())
}

func TestPlayFile_StopsOnCommand(t *testing.T) {
	f := newFixture(t, 50, 128)
	f.pump(t)
	f.dec.onDecode = func(frame int) {
		if frame == 3 {
			f.eng.SetCommand(NextDirectory)
		}
	}

	cmd, err := f.eng.PlayFile(context.Background(), f.vol, f.track(), nil)
	require.NoError(t, err)
	assert.Equal(t, NextDirectory, cmd)
	assert.Equal(t, 3, f.dec.decodes)
}

func TestPlayFile_ResetsStaleCommand(t *testing.T) {
	f := newFixture(t, 2, 128)
	f.pump(t)
	f.eng.SetCommand(PrevTrack)

	cmd, err := f.eng.PlayFile(context.Background(), f.vol, f.track(), nil)
	require.NoError(t, err)
	assert.Equal(t, KeepPlaying, cmd)
	assert.Equal(t, 2, f.dec.decodes)
}

func TestPlayFile_OpenError(t *testing.T) {
	f := newFixture(t, 1, 128)
	_, err := f.eng.PlayFile(context.Background(), f.vol, storage.Entry{Name: "x", Path: "album/missing.sbc"}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, f.eng.MuteRefs())
}

func TestPlayFile_ProbeError(t *testing.T) {
	f := newFixture(t, 1, 128)
	f.dec.probeErr = codec.ErrUnsupported
	_, err := f.eng.PlayFile(context.Background(), f.vol, f.track(), nil)
	require.ErrorIs(t, err, codec.ErrUnsupported)
	assert.Equal(t, 1, f.eng.MuteRefs())
}

func TestPlayFile_RejectsFrameSizeNotDividingHalf(t *testing.T) {
	f := newFixture(t, 1, 100)
	_, err := f.eng.PlayFile(context.Background(), f.vol, f.track(), nil)
	require.ErrorIs(t, err, codec.ErrUnsupported)
}

func TestPlayFile_EmptyFileEndsQuietly(t *testing.T) {
	f := newFixture(t, 0, 128)
	cmd, err := f.eng.PlayFile(context.Background(), f.vol, f.track(), nil)
	require.NoError(t, err)
	assert.Equal(t, KeepPlaying, cmd)
	assert.Zero(t, f.dec.decodes)
}

func TestPlayFile_AppliesVolumeShift(t *testing.T) {
	f := newFixture(t, 1, 128)
	f.pump(t)
	f.eng.SetVolumeShift(2)

	_, err := f.eng.PlayFile(context.Background(), f.vol, f.track(), nil)
	require.NoError(t, err)
	assert.Equal(t, int16(100), f.eng.left[0])
	assert.Equal(t, int16(-100), f.eng.right[127])
}

func TestPlayFile_PausedWhileMutedRunsDeferredSave(t *testing.T) {
	f := newFixture(t, 8, 128)
	f.pump(t)
	saver := &fakeSaver{vol: f.vol}

	// A second lock keeps the output muted once PlayFile releases its own.
	f.eng.Mute()

	type result struct {
		cmd Command
		err error
	}
	done := make(chan result, 1)
	go func() {
		cmd, err := f.eng.PlayFile(context.Background(), f.vol, f.track(), saver)
		done <- result{cmd, err}
	}()

	assert.Eventually(t, func() bool { return f.wdt.feeds.Load() > 100 }, time.Second, time.Millisecond,
		"the poll loop keeps feeding the watchdog while paused")
	select {
	case <-done:
		t.Fatal("playback must not progress while muted")
	default:
	}

	saver.requested.Store(true)
	assert.Eventually(t, func() bool { return saver.saves.Load() == 1 }, time.Second, time.Millisecond)
	data, ok := f.mem.File("STATE.BIN")
	require.True(t, ok)
	assert.Equal(t, "saved", string(data))

	f.eng.Unmute()
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, KeepPlaying, res.cmd)
	assert.Equal(t, 8, f.dec.decodes, "the track file survives the save")
}

func TestPlayFile_ContextCancelledWhilePaused(t *testing.T) {
	f := newFixture(t, 8, 128)
	f.eng.Mute()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.eng.PlayFile(ctx, f.vol, f.track(), nil)
		done <- err
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("PlayFile did not return after cancellation")
	}
	assert.Equal(t, 2, f.eng.MuteRefs())
}

func TestMute_ReferenceCounted(t *testing.T) {
	f := newFixture(t, 1, 128)
	assert.Equal(t, 1, f.eng.MuteRefs())
	assert.True(t, f.eng.Muted())

	f.eng.Unmute()
	assert.False(t, f.eng.Muted())
	assert.True(t, f.live())
	assert.True(t, f.dma.irqEnabled())

	f.eng.Unmute()
	assert.Equal(t, 0, f.eng.MuteRefs(), "unbalanced unmute is ignored")

	f.eng.Mute()
	f.eng.Mute()
	assert.False(t, f.live())
	assert.False(t, f.dma.irqEnabled())
	f.eng.Unmute()
	assert.True(t, f.eng.Muted())
	assert.False(t, f.live())

	f.eng.Mute()
	f.eng.Mute()
	f.eng.ResetMute()
	assert.Equal(t, 1, f.eng.MuteRefs())
	assert.False(t, f.live())
}

func TestVolumeShift_Clamped(t *testing.T) {
	f := newFixture(t, 1, 128)
	f.eng.SetVolumeShift(15)
	assert.Equal(t, MaxVolumeShift, f.eng.VolumeShift())
	f.eng.SetVolumeShift(-1)
	assert.Equal(t, 0, f.eng.VolumeShift())
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "next directory", NextDirectory.String())
	assert.Equal(t, "command(9)", Command(9).String())
}

func TestMock_ScriptAndBlock(t *testing.T) {
	m := NewMock(PlayResult{Command: NextTrack}, PlayResult{Err: errors.New("bad file")})
	cmd, err := m.PlayFile(context.Background(), nil, storage.Entry{Path: "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, NextTrack, cmd)
	_, err = m.PlayFile(context.Background(), nil, storage.Entry{Path: "b"}, nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.PlayFile(ctx, nil, storage.Entry{Path: "c"}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a", "b", "c"}, m.Plays())
}
