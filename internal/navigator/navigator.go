// Package navigator walks the card library: root directories holding
// playable files, visited in linear or permuted order, with a resume state
// checked against the live listing.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/llehouerou/lumiplay/internal/config"
	"github.com/llehouerou/lumiplay/internal/errmsg"
	"github.com/llehouerou/lumiplay/internal/hal"
	"github.com/llehouerou/lumiplay/internal/permute"
	"github.com/llehouerou/lumiplay/internal/state"
	"github.com/llehouerou/lumiplay/internal/storage"
)

// StateFileName is the resume record at the card root. It must exist: the
// card driver cannot create files.
const StateFileName = "STATE.BIN"

var (
	// ErrNoPlayableFiles is returned when a directory counted as populated
	// holds no file.
	ErrNoPlayableFiles = errors.New("navigator: no playable files")
	// ErrEmptyLibrary is returned when no root directory holds any entry.
	ErrEmptyLibrary = errors.New("navigator: empty library")
	// ErrNotMounted is returned by operations needing a mounted card.
	ErrNotMounted = errors.New("navigator: card not mounted")
)

// Navigator owns the library cursor and the resume state.
//
// Everything but Mode, SetMode, RequestStateSave and IsStateSaveRequested
// must be called from the playback loop.
type Navigator struct {
	mounter storage.Mounter
	rng     hal.Entropy
	log     *slog.Logger

	vol  *storage.Volume
	cfg  config.Config
	save config.SaveFlags // effective policy for this mount
	st   state.PlaybackState

	mode          atomic.Uint32
	saveRequested atomic.Bool

	main    *storage.Dir
	sub     *storage.Dir
	current storage.Entry
	lastPos uint32 // last physical position read in sub
}

// New returns a navigator over the cards mounted by m.
func New(m storage.Mounter, rng hal.Entropy, log *slog.Logger) *Navigator {
	return &Navigator{
		mounter: m,
		rng:     rng,
		log:     log,
		st:      state.Initial(),
		lastPos: state.NoIndex,
	}
}

// Init mounts the card, loads its configuration and resume state. Only a
// failed mount is an error; a missing or broken config or state falls back
// to defaults. When the state cannot be loaded, saving is disabled for the
// session.
func (n *Navigator) Init() error {
	ctx := context.Background()

	vol, err := n.mounter.Mount()
	if err != nil {
		return err
	}
	n.vol = vol
	n.main, n.sub = nil, nil
	n.current = storage.Entry{}
	n.lastPos = state.NoIndex
	n.saveRequested.Store(false)

	cfg, err := config.Load(vol, config.FileName)
	if err != nil {
		n.log.LogAttrs(ctx, slog.LevelDebug, "using default config",
			slog.String("error", errmsg.Format(errmsg.OpLoadConfig, err)))
	}
	n.cfg = cfg
	n.save = cfg.Save

	st := state.Initial()
	if n.save == config.SaveDisabled {
		n.log.LogAttrs(ctx, slog.LevelDebug, "state saving disabled")
		st.Regenerate(cfg.Seed, n.rng)
	} else if err := st.Load(vol, StateFileName); err != nil {
		n.log.LogAttrs(ctx, slog.LevelWarn, "no usable state, saving disabled",
			slog.String("error", errmsg.Format(errmsg.OpLoadState, err)))
		st = state.Initial()
		st.Regenerate(cfg.Seed, n.rng)
		n.save = config.SaveDisabled
	}
	n.st = st
	n.mode.Store(uint32(st.Mode))
	return nil
}

// OpenMainDirectory opens the root listing.
func (n *Navigator) OpenMainDirectory() error {
	if n.vol == nil {
		return ErrNotMounted
	}
	main, err := n.vol.OpenDir("/")
	if err != nil {
		return err
	}
	n.main = main
	return nil
}

// Config returns the configuration loaded by Init.
func (n *Navigator) Config() config.Config { return n.cfg }

// SaveEnabled reports whether the effective save policy includes f.
func (n *Navigator) SaveEnabled(f config.SaveFlags) bool {
	return n.save != config.SaveDisabled && n.save.Has(f)
}

// Volume returns the mounted card.
func (n *Navigator) Volume() *storage.Volume { return n.vol }

// CurrentFile returns the selected track.
func (n *Navigator) CurrentFile() storage.Entry { return n.current }

// State returns the resume record, mode included.
func (n *Navigator) State() state.PlaybackState {
	st := n.st
	st.Mode = n.Mode()
	return st
}

// Mode returns the power mode. It is safe from interrupt handlers.
func (n *Navigator) Mode() state.Mode { return state.Mode(n.mode.Load()) }

// SetMode records the power mode. It is safe from interrupt handlers.
func (n *Navigator) SetMode(m state.Mode) { n.mode.Store(uint32(m)) }

// TranslateTrackNumber maps a logical track index to a position in the
// current directory.
func (n *Navigator) TranslateTrackNumber(track uint32) uint32 {
	if !n.cfg.RandomMode {
		return track
	}
	return permute.Permute(track, n.st.TracksInDir, n.st.RandKey, permute.DefaultRounds)
}

// RequestStateSave asks for a state save at the next safe point. It is safe
// from interrupt handlers.
func (n *Navigator) RequestStateSave() { n.saveRequested.Store(true) }

// IsStateSaveRequested reports whether a save is pending.
func (n *Navigator) IsStateSaveRequested() bool { return n.saveRequested.Load() }

// HandleStateSave writes the resume record and clears the pending request.
// It takes the card's file slot; callers in the middle of a file must
// snapshot and restore it around the call.
func (n *Navigator) HandleStateSave() {
	defer n.saveRequested.Store(false)
	if n.vol == nil || n.save == config.SaveDisabled {
		return
	}
	st := n.State()
	if err := st.Save(n.vol, StateFileName); err != nil {
		n.log.LogAttrs(context.Background(), slog.LevelWarn, "state not saved",
			slog.String("error", errmsg.Format(errmsg.OpSaveState, err)))
		return
	}
	n.log.LogAttrs(context.Background(), slog.LevelDebug, "state saved",
		slog.Uint64("dir", uint64(st.DirIndex)),
		slog.Uint64("track", uint64(st.TrackIndex)),
		slog.String("mode", st.Mode.String()))
}

func (n *Navigator) ready() error {
	if n.vol == nil || n.main == nil {
		return fmt.Errorf("%w: root directory not open", ErrNotMounted)
	}
	return nil
}
