// internal/player/mock.go
package player

import (
	"context"
	"sync"

	"github.com/llehouerou/lumiplay/internal/storage"
)

// PlayResult is the scripted outcome of one Mock.PlayFile call.
type PlayResult struct {
	Command Command
	Err     error
}

// Mock is a test double for Engine. PlayFile consumes Script in order and
// blocks until its context is done once the script is exhausted.
type Mock struct {
	mu      sync.Mutex
	Script  []PlayResult
	plays   []string
	command Command
	muteRef int
	shift   int
	// OnPlay, when set, runs inside PlayFile before the result is returned.
	OnPlay func(entry storage.Entry, saver StateSaver)
}

// NewMock creates a mock engine holding one mute lock, like NewEngine.
func NewMock(script ...PlayResult) *Mock {
	return &Mock{Script: script, muteRef: 1}
}

func (m *Mock) PlayFile(ctx context.Context, _ *storage.Volume, entry storage.Entry, saver StateSaver) (Command, error) {
	m.mu.Lock()
	m.plays = append(m.plays, entry.Path)
	if len(m.Script) == 0 {
		m.mu.Unlock()
		<-ctx.Done()
		return KeepPlaying, ctx.Err()
	}
	res := m.Script[0]
	m.Script = m.Script[1:]
	onPlay := m.OnPlay
	m.mu.Unlock()

	if onPlay != nil {
		onPlay(entry, saver)
	}
	return res.Command, res.Err
}

// Plays returns the paths passed to PlayFile.
func (m *Mock) Plays() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.plays...)
}

func (m *Mock) SetCommand(c Command) {
	m.mu.Lock()
	m.command = c
	m.mu.Unlock()
}

func (m *Mock) Command() Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.command
}

func (m *Mock) Mute() {
	m.mu.Lock()
	m.muteRef++
	m.mu.Unlock()
}

func (m *Mock) Unmute() {
	m.mu.Lock()
	if m.muteRef > 0 {
		m.muteRef--
	}
	m.mu.Unlock()
}

func (m *Mock) ResetMute() {
	m.mu.Lock()
	m.muteRef = 1
	m.mu.Unlock()
}

func (m *Mock) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muteRef > 0
}

// MuteRefs returns the number of mute locks held.
func (m *Mock) MuteRefs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muteRef
}

func (m *Mock) SetVolumeShift(shift int) {
	m.mu.Lock()
	m.shift = min(max(shift, 0), MaxVolumeShift)
	m.mu.Unlock()
}

func (m *Mock) VolumeShift() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shift
}

var _ Interface = (*Mock)(nil)
