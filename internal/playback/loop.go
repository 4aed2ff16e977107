package playback

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/llehouerou/lumiplay/internal/config"
	"github.com/llehouerou/lumiplay/internal/errmsg"
	"github.com/llehouerou/lumiplay/internal/player"
)

// Run plays the library until a storage operation fails or ctx is done.
// A failed track is skipped. After each advance the state is saved as the
// card's policy asks, or when a save is pending.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.nav.OpenMainDirectory(); err != nil {
		return errmsg.Wrap(errmsg.OpOpenRoot, err)
	}
	if err := c.nav.RestoreState(); err != nil {
		return errmsg.Wrap(errmsg.OpRestoreState, err)
	}
	c.publishTrack()

	for {
		entry := c.nav.CurrentFile()
		cmd, err := c.eng.PlayFile(ctx, c.nav.Volume(), entry, c.nav)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			c.log.LogAttrs(ctx, slog.LevelWarn, "skipping track",
				slog.String("error", errmsg.FormatWith(errmsg.OpPlayFile, entry.Path, err)))
			c.each(func(s *Subscription) {
				s.sendError(ErrorEvent{Operation: string(errmsg.OpPlayFile), Path: entry.Path, Err: err})
			})
			cmd = player.NextTrack
		}

		dirChanged, err := c.advance(cmd)
		if err != nil {
			return err
		}
		c.publishTrack()

		if c.nav.SaveEnabled(config.SaveTrack) ||
			(dirChanged && c.nav.SaveEnabled(config.SaveDirectory)) ||
			c.nav.IsStateSaveRequested() {
			c.nav.HandleStateSave()
		}
	}
}

// advance moves the navigator as cmd asks and reports whether the directory
// changed.
func (c *Controller) advance(cmd player.Command) (bool, error) {
	switch cmd {
	case player.PrevTrack:
		return false, errmsg.Wrap(errmsg.OpPrevTrack, c.nav.PrevTrack())
	case player.NextDirectory:
		if err := c.nav.NextDir(); err != nil {
			return true, errmsg.Wrap(errmsg.OpNextDir, err)
		}
		return true, errmsg.Wrap(errmsg.OpNextTrack, c.nav.NextTrack())
	default:
		jumped, err := c.nav.NextTrackJumped()
		return jumped, errmsg.Wrap(errmsg.OpNextTrack, err)
	}
}

func (c *Controller) publishTrack() {
	t := trackOf(c.nav)

	c.mu.Lock()
	prev := c.track
	c.track = t
	c.mu.Unlock()

	var previous *Track
	if prev.Path != "" {
		previous = &prev
	}
	c.log.LogAttrs(context.Background(), slog.LevelInfo, "track",
		slog.String("path", t.Path),
		slog.Uint64("dir", uint64(t.DirIndex)),
		slog.Uint64("track", uint64(t.Position())),
		slog.Uint64("of", uint64(t.TracksInDir)))
	c.each(func(s *Subscription) { s.sendTrack(TrackChange{Previous: previous, Current: t}) })
}

// Serve mounts the card and runs the library forever, remounting after any
// failure or Reset, until ctx is done.
func (c *Controller) Serve(ctx context.Context) error {
	for {
		cycle, cancel := context.WithCancel(ctx)
		c.cycleMu.Lock()
		c.cancel = cancel
		c.cycleMu.Unlock()

		err := c.InitCard()
		if err == nil {
			err = c.Run(cycle)
		}
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if errors.Is(err, context.Canceled) {
			c.log.LogAttrs(ctx, slog.LevelWarn, "player reset, remounting")
		} else {
			c.log.LogAttrs(ctx, slog.LevelError, "card failure, remounting",
				slog.String("error", err.Error()),
				slog.Duration("delay", c.remountDelay))
			c.each(func(s *Subscription) {
				s.sendError(ErrorEvent{Operation: string(errmsg.OpMount), Err: err})
			})
		}
		if !c.sleep(ctx, c.remountDelay) {
			return ctx.Err()
		}
	}
}

// Reset aborts the current mount cycle; Serve remounts.
func (c *Controller) Reset() {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// sleep waits d while feeding the watchdog. It reports false when ctx ends
// first.
func (c *Controller) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	feed := time.NewTicker(10 * time.Millisecond)
	defer feed.Stop()
	for {
		if c.wdt != nil {
			c.wdt.Feed()
		}
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case <-feed.C:
		}
	}
}
