package navigator

import (
	"errors"
	"fmt"

	"github.com/llehouerou/lumiplay/internal/config"
	"github.com/llehouerou/lumiplay/internal/state"
	"github.com/llehouerou/lumiplay/internal/storage"
)

// RestoreState positions the cursor on the saved track. When the saved
// state does not match the card it regenerates the state and selects the
// first track of the first populated directory. An error leaves the cursor
// unusable and calls for a remount.
func (n *Navigator) RestoreState() error {
	if err := n.ready(); err != nil {
		return err
	}
	ok, err := n.restore()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	n.st.Regenerate(n.cfg.Seed, n.rng)
	n.main.Rewind()
	if err := n.NextDir(); err != nil {
		return err
	}
	return n.NextTrack()
}

// restore replays the saved indices. It reports false on the first
// mismatch.
func (n *Navigator) restore() (bool, error) {
	if !n.SaveEnabled(config.SaveDirectory) {
		return false, nil
	}
	if n.cfg.Seed != 0 && n.st.RandKey != n.cfg.Seed {
		return false, nil
	}

	dir, err := n.main.Seek(n.st.DirIndex)
	if errors.Is(err, storage.ErrNoFile) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !dir.Dir {
		return false, nil
	}

	sub, err := n.vol.OpenDir(dir.Path)
	if err != nil {
		return false, err
	}
	n.sub = sub
	n.lastPos = state.NoIndex

	count := sub.Count()
	if count == 0 || count != n.st.TracksInDir {
		return false, nil
	}

	if n.SaveEnabled(config.SaveTrack) {
		if n.st.TrackIndex >= count {
			return false, nil
		}
		pos := n.TranslateTrackNumber(n.st.TrackIndex)
		e, err := sub.Seek(pos)
		if errors.Is(err, storage.ErrNoFile) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		n.lastPos = pos
		if e.Dir {
			return false, nil
		}
		n.current = e
		return true, nil
	}

	n.st.RegenerateKey(n.cfg.Seed, n.rng)
	n.st.TrackIndex = state.NoIndex
	if err := n.NextTrack(); err != nil {
		return false, err
	}
	return true, nil
}

// NextTrackInDir moves to the next file of the current directory. At the
// end of the directory it either reports nextDir, when configured to jump,
// or wraps to the first track.
func (n *Navigator) NextTrackInDir() (nextDir bool, err error) {
	if n.sub == nil {
		return false, fmt.Errorf("%w: no directory selected", ErrNotMounted)
	}
	wraps := 0
	for {
		n.st.TrackIndex++
		if n.st.TrackIndex >= n.st.TracksInDir {
			if n.cfg.JumpNextDir {
				return true, nil
			}
			wraps++
			if wraps >= 2 {
				return false, fmt.Errorf("%s: %w", n.sub.Path(), ErrNoPlayableFiles)
			}
			n.st.TrackIndex = state.NoIndex
			continue
		}

		pos := n.TranslateTrackNumber(n.st.TrackIndex)
		var e storage.Entry
		if n.lastPos+1 == pos {
			n.lastPos++
			e = n.sub.Read()
			if !e.Valid() {
				return false, fmt.Errorf("%s: entry %d: %w", n.sub.Path(), pos, storage.ErrNoFile)
			}
		} else {
			e, err = n.sub.Seek(pos)
			n.lastPos = pos
			if err != nil {
				return false, fmt.Errorf("%s: entry %d: %w", n.sub.Path(), pos, err)
			}
		}

		if !e.Dir {
			n.current = e
			return false, nil
		}
	}
}

// NextTrack moves to the next file, crossing into the next directory when
// the current one is exhausted and configured to jump.
func (n *Navigator) NextTrack() error {
	_, err := n.nextTrack()
	return err
}

func (n *Navigator) nextTrack() (jumped bool, err error) {
	var hops uint32
	for {
		jump, err := n.NextTrackInDir()
		if err != nil {
			return jumped, err
		}
		if !jump {
			return jumped, nil
		}
		hops++
		if n.main != nil && hops > n.main.Count()+1 {
			return jumped, ErrNoPlayableFiles
		}
		if err := n.NextDir(); err != nil {
			return jumped, err
		}
		jumped = true
	}
}

// NextTrackJumped is NextTrack reporting whether it moved to another
// directory.
func (n *Navigator) NextTrackJumped() (bool, error) {
	return n.nextTrack()
}

// PrevTrack moves to the previous track of the current directory, staying
// on the first one. It never crosses a directory boundary.
func (n *Navigator) PrevTrack() error {
	if n.sub == nil {
		return fmt.Errorf("%w: no directory selected", ErrNotMounted)
	}
	if n.st.TrackIndex == state.NoIndex {
		n.st.TrackIndex = 0
	} else if n.st.TrackIndex > 0 {
		n.st.TrackIndex--
	}

	pos := n.TranslateTrackNumber(n.st.TrackIndex)
	e, err := n.sub.Seek(pos)
	n.lastPos = pos
	if err != nil {
		return fmt.Errorf("%s: entry %d: %w", n.sub.Path(), pos, err)
	}
	n.current = e
	return nil
}

// NextDir moves to the next populated root directory, wrapping to the
// first one. The track cursor is reset before the first track and the
// permutation key is regenerated.
func (n *Navigator) NextDir() error {
	if err := n.ready(); err != nil {
		return err
	}
	wraps := 0
	for {
		var dir storage.Entry
		for {
			e := n.main.Read()
			if !e.Valid() {
				wraps++
				if wraps >= 2 {
					return ErrEmptyLibrary
				}
				n.main.Rewind()
				n.st.DirIndex = state.NoIndex
				continue
			}
			n.st.DirIndex++
			if e.Dir {
				dir = e
				break
			}
		}

		sub, err := n.vol.OpenDir(dir.Path)
		if err != nil {
			return err
		}
		n.sub = sub
		n.st.TracksInDir = sub.Count()
		if n.st.TracksInDir > 0 {
			break
		}
	}

	n.lastPos = state.NoIndex
	n.st.TrackIndex = state.NoIndex
	n.st.RegenerateKey(n.cfg.Seed, n.rng)
	return nil
}
