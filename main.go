// Command lumiplay runs the light-driven audio player on a workstation: a
// directory stands for the card, the terminal for the buttons and the light
// sensor, and the sound card for the PWM output.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/lumiplay/internal/codec/wavframe"
	"github.com/llehouerou/lumiplay/internal/config"
	"github.com/llehouerou/lumiplay/internal/hal"
	"github.com/llehouerou/lumiplay/internal/hal/sim"
	"github.com/llehouerou/lumiplay/internal/navigator"
	"github.com/llehouerou/lumiplay/internal/playback"
	"github.com/llehouerou/lumiplay/internal/player"
	"github.com/llehouerou/lumiplay/internal/stderr"
	"github.com/llehouerou/lumiplay/internal/storage"
	"github.com/llehouerou/lumiplay/internal/ui/panel"
)

// errQuit ends the run group when the panel is closed.
var errQuit = errors.New("quit")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lumiplay: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if len(os.Args) > 1 {
		settings.CardRoot = os.Args[1]
	}

	logOut := io.Writer(os.Stderr)
	if !settings.Headless {
		path, err := config.LogFile()
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	level := new(slog.LevelVar)
	level.Set(settings.Level())
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	if !settings.Headless {
		capture, err := stderr.Start(log)
		if err != nil {
			log.LogAttrs(context.Background(), slog.LevelWarn, "stderr not captured",
				slog.String("error", err.Error()))
		} else {
			defer capture.Stop()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	disp := hal.NewDispatcher(log)
	board := sim.NewBoard(log)
	light := sim.NewLightSensor(disp, settings.LightLevel)
	fade := sim.NewFadeTimer(disp)
	out := sim.NewOutput(disp)
	wdt := sim.NewWatchdog(settings.WatchdogTimeout, log)

	eng := player.NewEngine(wavframe.New(), out, disp, wdt, log)
	nav := navigator.New(storage.DirMounter{Root: settings.CardRoot}, &sim.Entropy{}, log)
	ctrl := playback.New(nav, eng, board, light, fade, log,
		playback.WithRemountDelay(settings.RemountDelay),
		playback.WithWatchdog(wdt))
	defer ctrl.Close()

	disp.Handle(hal.KindButton, func(ev hal.Event) { ctrl.OnButton(ev.Button) })
	disp.Handle(hal.KindLight, func(ev hal.Event) { ctrl.OnLight(ev.Value) })
	disp.Handle(hal.KindFadeTick, func(hal.Event) { ctrl.OnFadeTick() })
	disp.Handle(hal.KindTransferHalf, func(hal.Event) { eng.OnTransferHalf() })
	disp.Handle(hal.KindTransferComplete, func(hal.Event) { eng.OnTransferComplete() })

	if err := startSpeaker(out, beep.SampleRate(settings.SpeakerRate)); err != nil {
		return err
	}
	defer speaker.Close()

	log.LogAttrs(ctx, slog.LevelInfo, "starting",
		slog.String("card", settings.CardRoot),
		slog.Int("speaker_rate", settings.SpeakerRate),
		slog.Duration("watchdog", settings.WatchdogTimeout))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return disp.Run(ctx) })
	g.Go(func() error { return wdt.Run(ctx, ctrl.Reset) })
	g.Go(func() error { return ctrl.Serve(ctx) })
	if !settings.Headless {
		g.Go(func() error {
			p := tea.NewProgram(panel.New(ctrl, disp, light, board),
				tea.WithContext(ctx), tea.WithAltScreen())
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			return errQuit
		})
	}

	err = g.Wait()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startSpeaker plays out through the host sound card, resampled from the
// rate of the file being played.
func startSpeaker(out *sim.Output, rate beep.SampleRate) error {
	resampler := beep.ResampleRatio(4, 1, out)
	out.OnSampleRate(func(hz int) {
		speaker.Lock()
		resampler.SetRatio(float64(hz) / float64(rate))
		speaker.Unlock()
	})
	if err := speaker.Init(rate, rate.N(time.Second/20)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(resampler)
	return nil
}
