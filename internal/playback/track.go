package playback

import "github.com/llehouerou/lumiplay/internal/state"

// Track describes the selected file and its place in the library.
// It is a copy of the navigator's cursor.
type Track struct {
	Name        string
	Path        string
	Size        int64
	DirIndex    uint32
	TrackIndex  uint32
	TracksInDir uint32
}

func trackOf(lib Library) Track {
	e := lib.CurrentFile()
	st := lib.State()
	return Track{
		Name:        e.Name,
		Path:        e.Path,
		Size:        e.Size,
		DirIndex:    st.DirIndex,
		TrackIndex:  st.TrackIndex,
		TracksInDir: st.TracksInDir,
	}
}

// Position returns the one-based track number, or 0 before the first track.
func (t Track) Position() uint32 {
	if t.TrackIndex == state.NoIndex {
		return 0
	}
	return t.TrackIndex + 1
}
