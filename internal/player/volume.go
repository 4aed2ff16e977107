package player

// Mute takes a mute lock. The first lock swaps the transfer onto the silence
// buffer and masks its interrupts; the transfer itself keeps running.
func (e *Engine) Mute() {
	e.muteMu.Lock()
	defer e.muteMu.Unlock()
	e.muteRef++
	if e.muteRef > 1 {
		return
	}
	e.dma.EnableIRQ(false)
	e.dma.SetSource(e.silence[:], e.silence[:])
}

// Unmute releases a mute lock. Releasing the last lock puts the live buffers
// back and unmasks the transfer interrupts. Unbalanced calls are ignored.
func (e *Engine) Unmute() {
	e.muteMu.Lock()
	defer e.muteMu.Unlock()
	if e.muteRef == 0 {
		return
	}
	e.muteRef--
	if e.muteRef > 0 {
		return
	}
	e.dma.SetSource(e.left[:], e.right[:])
	e.dma.EnableIRQ(true)
}

// ResetMute forgets every mute lock and takes a single one, the lock held
// while no file is playing.
func (e *Engine) ResetMute() {
	e.muteMu.Lock()
	e.muteRef = 0
	e.muteMu.Unlock()
	e.Mute()
}

// Muted reports whether at least one mute lock is held.
func (e *Engine) Muted() bool {
	e.muteMu.Lock()
	defer e.muteMu.Unlock()
	return e.muteRef > 0
}

// MuteRefs returns the number of mute locks held.
func (e *Engine) MuteRefs() int {
	e.muteMu.Lock()
	defer e.muteMu.Unlock()
	return e.muteRef
}

// SetVolumeShift sets the attenuation applied to decoded samples as a right
// shift, clamped to MaxVolumeShift.
func (e *Engine) SetVolumeShift(shift int) {
	shift = min(max(shift, 0), MaxVolumeShift)
	e.volumeShift.Store(uint32(shift))
}

// VolumeShift returns the current attenuation.
func (e *Engine) VolumeShift() int { return int(e.volumeShift.Load()) }
