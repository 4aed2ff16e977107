//go:build unix

// Package stderr captures output written straight to file descriptor 2 by
// the audio backend and forwards it to a logger, so it does not corrupt the
// front panel.
package stderr

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Capture is an active redirection of file descriptor 2.
type Capture struct {
	orig int
	r, w *os.File
	done chan struct{}
}

// Start redirects file descriptor 2 into log. The program can continue
// without capture when it fails.
func Start(log *slog.Logger) (*Capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	orig, err := unix.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}

	if err := unix.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		unix.Close(orig)
		r.Close()
		w.Close()
		return nil, err
	}

	c := &Capture{orig: orig, r: r, w: w, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				log.LogAttrs(context.Background(), slog.LevelWarn, "stderr", slog.String("line", line))
			}
		}
	}()
	return c, nil
}

// Stop restores the original stderr and waits for the captured lines to be
// logged.
func (c *Capture) Stop() {
	_ = unix.Dup2(c.orig, int(os.Stderr.Fd()))
	_ = unix.Close(c.orig)
	c.w.Close()
	<-c.done
	c.r.Close()
}
