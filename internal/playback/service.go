// Package playback runs the player. The Controller owns the power mode and
// the fade state machine, routes button and light events, and drives the
// navigator and the streaming engine from its top-level loop.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/llehouerou/lumiplay/internal/config"
	"github.com/llehouerou/lumiplay/internal/hal"
	"github.com/llehouerou/lumiplay/internal/navigator"
	"github.com/llehouerou/lumiplay/internal/player"
	"github.com/llehouerou/lumiplay/internal/state"
	"github.com/llehouerou/lumiplay/internal/storage"
)

// DefaultRemountDelay is the pause between two mount attempts.
const DefaultRemountDelay = time.Second

// Library is the navigator contract used by the controller.
type Library interface {
	player.StateSaver

	Init() error
	OpenMainDirectory() error
	RestoreState() error
	NextTrack() error
	NextTrackJumped() (bool, error)
	PrevTrack() error
	NextDir() error

	Volume() *storage.Volume
	CurrentFile() storage.Entry
	State() state.PlaybackState
	Config() config.Config
	SaveEnabled(f config.SaveFlags) bool
	SetMode(m state.Mode)
	RequestStateSave()
}

// Verify Navigator implements Library at compile time.
var _ Library = (*navigator.Navigator)(nil)

// Status is a snapshot of the controller.
type Status struct {
	Mode        state.Mode
	PlayState   PlayState
	VolumeShift int
	Muted       bool
	Mounted     bool
	Track       Track
}

// Option configures a Controller.
type Option func(*Controller)

// WithRemountDelay sets the pause between two mount attempts in Serve.
func WithRemountDelay(d time.Duration) Option {
	return func(c *Controller) { c.remountDelay = d }
}

// WithWatchdog makes Serve feed w while it waits to remount.
func WithWatchdog(w hal.Watchdog) Option {
	return func(c *Controller) { c.wdt = w }
}

// Controller is the player's state machine.
//
// OnButton, OnLight and OnFadeTick are interrupt handlers: they must be
// called from the dispatcher. InitCard, Run and Serve belong to the main
// loop.
type Controller struct {
	nav   Library
	eng   player.Interface
	board hal.Board
	light hal.LightSensor
	fade  hal.Timer
	log   *slog.Logger

	remountDelay time.Duration
	wdt          hal.Watchdog

	mu        sync.Mutex
	cfg       config.Config
	saveMode  bool
	mounted   bool
	mode      state.Mode
	playState PlayState
	track     Track

	cycleMu sync.Mutex
	cancel  func()

	subs   []*Subscription
	subsMu sync.RWMutex
	closed bool
}

// New creates a controller. It does nothing until InitCard or Serve is
// called.
func New(nav Library, eng player.Interface, board hal.Board, light hal.LightSensor, fade hal.Timer, log *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		nav:          nav,
		eng:          eng,
		board:        board,
		light:        light,
		fade:         fade,
		log:          log,
		remountDelay: DefaultRemountDelay,
		cfg:          config.Default(),
		mode:         state.ModeSensor,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the current snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Mode:        c.mode,
		PlayState:   c.playState,
		VolumeShift: c.eng.VolumeShift(),
		Muted:       c.eng.Muted(),
		Mounted:     c.mounted,
		Track:       c.track,
	}
}

// Subscribe creates a new event subscription.
func (c *Controller) Subscribe() *Subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	sub := newSubscription()
	if c.closed {
		sub.close()
		return sub
	}
	c.subs = append(c.subs, sub)
	return sub
}

// Close ends every subscription.
func (c *Controller) Close() error {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, sub := range c.subs {
		sub.close()
	}
	c.subs = nil
	return nil
}

func (c *Controller) each(send func(*Subscription)) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		send(sub)
	}
}
