//go:build windows

// Package stderr provides a no-op implementation for Windows.
// Windows audio backends don't write to the console.
package stderr

import "log/slog"

// Capture does nothing on Windows.
type Capture struct{}

// Start is a no-op on Windows.
func Start(*slog.Logger) (*Capture, error) {
	return &Capture{}, nil
}

// Stop is a no-op on Windows.
func (*Capture) Stop() {}
