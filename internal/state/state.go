// Package state holds the playback position persisted on the card.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/llehouerou/lumiplay/internal/hal"
)

// NoIndex is the "before first" index: incrementing it yields 0.
const NoIndex uint32 = 0xFFFFFFFF

// Size is the length of the encoded record.
const Size = 5 * 4

// ErrCorrupt is returned when a stored record cannot be decoded.
var ErrCorrupt = errors.New("state: corrupt record")

// Mode is the persisted power mode.
type Mode uint32

const (
	ModeSensor Mode = iota
	ModeForcedOn
	ModeForcedOff
)

func (m Mode) String() string {
	switch m {
	case ModeSensor:
		return "sensor"
	case ModeForcedOn:
		return "forced on"
	case ModeForcedOff:
		return "forced off"
	default:
		return fmt.Sprintf("mode(%d)", uint32(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m <= ModeForcedOff }

// PlaybackState is the resume record.
type PlaybackState struct {
	DirIndex    uint32
	TrackIndex  uint32
	RandKey     uint32
	TracksInDir uint32
	Mode        Mode
}

// Initial returns a state positioned before the first track.
func Initial() PlaybackState {
	return PlaybackState{DirIndex: NoIndex, TrackIndex: NoIndex}
}

// Regenerate resets the position and draws a new permutation key.
func (s *PlaybackState) Regenerate(seed uint32, src hal.Entropy) {
	s.DirIndex = NoIndex
	s.TrackIndex = NoIndex
	s.TracksInDir = 0
	s.RegenerateKey(seed, src)
}

// RegenerateKey pins the key to seed, or draws one from src when seed is 0.
func (s *PlaybackState) RegenerateKey(seed uint32, src hal.Entropy) {
	if seed != 0 {
		s.RandKey = seed
		return
	}
	s.RandKey = src.Next()
}

// MarshalBinary encodes s as five little-endian uint32 values.
func (s PlaybackState) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, Size)
	b = binary.LittleEndian.AppendUint32(b, s.DirIndex)
	b = binary.LittleEndian.AppendUint32(b, s.TrackIndex)
	b = binary.LittleEndian.AppendUint32(b, s.RandKey)
	b = binary.LittleEndian.AppendUint32(b, s.TracksInDir)
	b = binary.LittleEndian.AppendUint32(b, uint32(s.Mode))
	return b, nil
}

// UnmarshalBinary decodes a record written by MarshalBinary. Trailing bytes
// are ignored.
func (s *PlaybackState) UnmarshalBinary(data []byte) error {
	if len(data) < Size {
		return fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	mode := Mode(binary.LittleEndian.Uint32(data[16:]))
	if !mode.Valid() {
		return fmt.Errorf("%w: %v", ErrCorrupt, mode)
	}
	*s = PlaybackState{
		DirIndex:    binary.LittleEndian.Uint32(data[0:]),
		TrackIndex:  binary.LittleEndian.Uint32(data[4:]),
		RandKey:     binary.LittleEndian.Uint32(data[8:]),
		TracksInDir: binary.LittleEndian.Uint32(data[12:]),
		Mode:        mode,
	}
	return nil
}

// Load reads the record stored in name. On error s is left untouched.
func (s *PlaybackState) Load(fs FileReader, name string) error {
	data, err := fs.ReadFile(name)
	if err != nil {
		return err
	}
	return s.UnmarshalBinary(data)
}

// Save writes s to name.
func (s *PlaybackState) Save(fs FileWriter, name string) error {
	data, _ := s.MarshalBinary()
	return fs.WriteFile(name, data)
}
