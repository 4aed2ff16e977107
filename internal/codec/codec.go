// Package codec defines the frame decoder contract used by the streaming
// engine.
package codec

import (
	"errors"
	"io"
)

// MaxFrameSamples is the largest number of samples per channel a decoder may
// produce for a single frame.
const MaxFrameSamples = 128

// ErrUnsupported is returned by Probe for streams the decoder cannot play.
var ErrUnsupported = errors.New("codec: unsupported stream")

// Format describes a probed stream.
type Format struct {
	SampleRate   int
	Channels     int
	FrameSamples int // samples per channel produced by each Decode
}

// Decoder decodes a stream one fixed-size frame at a time.
//
// The engine calls Probe once per file, then Reset, then alternates
// ReadFrame and Decode until ReadFrame fails. Decode runs with interrupts
// masked and must not block on I/O.
type Decoder interface {
	// Probe reads the stream header from r and keeps r for ReadFrame.
	Probe(r io.ReadSeeker) (Format, error)
	// Reset clears the decoding state kept across frames.
	Reset()
	// ReadFrame reads the bytes of the next frame. It returns io.EOF after
	// the last one.
	ReadFrame() error
	// Decode writes the last frame read into left and right, which are at
	// least Format.FrameSamples long, and returns the number of samples
	// written per channel.
	Decode(left, right []int16) int
}
