// Package wavframe decodes PCM WAV files in fixed frames of
// codec.MaxFrameSamples samples per channel.
package wavframe

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/llehouerou/lumiplay/internal/codec"
)

const pcmFormat = 1

// Decoder implements codec.Decoder for WAV files.
type Decoder struct {
	dec       *wav.Decoder
	format    codec.Format
	depth     int
	buf       audio.IntBuffer
	n         int // interleaved samples held by buf
	exhausted bool
}

// New returns a WAV frame decoder.
func New() *Decoder {
	return &Decoder{}
}

// Probe implements codec.Decoder.
func (d *Decoder) Probe(r io.ReadSeeker) (codec.Format, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return codec.Format{}, fmt.Errorf("%w: %w", codec.ErrUnsupported, err)
		}
		return codec.Format{}, fmt.Errorf("%w: not a wav file", codec.ErrUnsupported)
	}
	if dec.WavAudioFormat != pcmFormat {
		return codec.Format{}, fmt.Errorf("%w: wav format %d", codec.ErrUnsupported, dec.WavAudioFormat)
	}
	if dec.NumChans < 1 || dec.NumChans > 2 {
		return codec.Format{}, fmt.Errorf("%w: %d channels", codec.ErrUnsupported, dec.NumChans)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return codec.Format{}, fmt.Errorf("%w: %d bit samples", codec.ErrUnsupported, dec.BitDepth)
	}
	if err := dec.FwdToPCM(); err != nil {
		return codec.Format{}, fmt.Errorf("%w: %w", codec.ErrUnsupported, err)
	}

	d.dec = dec
	d.depth = int(dec.BitDepth)
	d.format = codec.Format{
		SampleRate:   int(dec.SampleRate),
		Channels:     int(dec.NumChans),
		FrameSamples: codec.MaxFrameSamples,
	}
	d.buf = audio.IntBuffer{
		Data:           make([]int, codec.MaxFrameSamples*d.format.Channels),
		Format:         dec.Format(),
		SourceBitDepth: d.depth,
	}
	d.Reset()
	return d.format, nil
}

// Reset implements codec.Decoder.
func (d *Decoder) Reset() {
	d.n = 0
	d.exhausted = false
}

// ReadFrame implements codec.Decoder. A short last frame is padded with
// silence by Decode.
func (d *Decoder) ReadFrame() error {
	if d.dec == nil {
		return fmt.Errorf("%w: not probed", codec.ErrUnsupported)
	}
	if d.exhausted {
		return io.EOF
	}
	n, err := d.dec.PCMBuffer(&d.buf)
	if err != nil {
		return err
	}
	if n == 0 {
		d.exhausted = true
		return io.EOF
	}
	if n < len(d.buf.Data) {
		d.exhausted = true
	}
	d.n = n
	return nil
}

// Decode implements codec.Decoder. Mono streams are duplicated on both
// channels.
func (d *Decoder) Decode(left, right []int16) int {
	ch := d.format.Channels
	frames := d.format.FrameSamples
	have := d.n / ch
	for i := range frames {
		if i >= have {
			left[i], right[i] = 0, 0
			continue
		}
		l := d.sample(d.buf.Data[i*ch])
		r := l
		if ch == 2 {
			r = d.sample(d.buf.Data[i*ch+1])
		}
		left[i], right[i] = l, r
	}
	return frames
}

func (d *Decoder) sample(v int) int16 {
	switch d.depth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

var _ codec.Decoder = (*Decoder)(nil)
