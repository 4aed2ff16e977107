// Package panel is the terminal front panel of the simulated player: it
// shows the controller status and turns key presses into button and light
// sensor events.
package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/lumiplay/internal/hal"
	"github.com/llehouerou/lumiplay/internal/hal/sim"
	"github.com/llehouerou/lumiplay/internal/keymap"
	"github.com/llehouerou/lumiplay/internal/playback"
	"github.com/llehouerou/lumiplay/internal/player"
)

const (
	refreshInterval = 100 * time.Millisecond
	// lightStep is the sensor change per key press.
	lightStep = 0x100
	minWidth  = 40
)

// Controller is the part of the player the panel observes.
type Controller interface {
	Status() playback.Status
	Subscribe() *playback.Subscription
}

// Sensor is the simulated light sensor.
type Sensor interface {
	Level() uint16
	SetLevel(level uint16)
}

// Outputs exposes the board outputs.
type Outputs interface {
	LED() bool
	USBPower() bool
}

type tickMsg time.Time

type eventMsg struct{ event any }

type closedMsg struct{}

// Model is the bubbletea model of the panel.
type Model struct {
	ctrl   Controller
	sub    *playback.Subscription
	raise  sim.Raiser
	sensor Sensor
	board  Outputs
	keys   *keymap.Resolver
	help   help.Model

	status   playback.Status
	lastErr  string
	showHelp bool
	width    int
}

// New returns a panel driving raise and sensor and observing ctrl and board.
func New(ctrl Controller, raise sim.Raiser, sensor Sensor, board Outputs) Model {
	return Model{
		ctrl:   ctrl,
		sub:    ctrl.Subscribe(),
		raise:  raise,
		sensor: sensor,
		board:  board,
		keys:   keymap.Default(),
		help:   help.New(),
		status: ctrl.Status(),
		width:  64,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitEvent(m.sub))
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// waitEvent blocks on the next controller event.
func waitEvent(sub *playback.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-sub.StateChanged:
			return eventMsg{e}
		case e := <-sub.ModeChanged:
			return eventMsg{e}
		case e := <-sub.TrackChanged:
			return eventMsg{e}
		case e := <-sub.Error:
			return eventMsg{e}
		case <-sub.Done:
			return closedMsg{}
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, minWidth)
		m.help.Width = m.width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tickMsg:
		m.status = m.ctrl.Status()
		return m, tick()
	case eventMsg:
		if e, ok := msg.event.(playback.ErrorEvent); ok {
			m.lastErr = e.Err.Error()
		}
		if _, ok := msg.event.(playback.TrackChange); ok {
			m.lastErr = ""
		}
		m.status = m.ctrl.Status()
		return m, waitEvent(m.sub)
	case closedMsg:
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.keys.Resolve(msg.String()) {
	case keymap.ActionQuit:
		return m, tea.Quit
	case keymap.ActionHelp:
		m.showHelp = !m.showHelp
	case keymap.ActionPower:
		m.press(hal.ButtonPower)
	case keymap.ActionNext:
		m.press(hal.ButtonNext)
	case keymap.ActionPrev:
		m.press(hal.ButtonPrev)
	case keymap.ActionNextDir:
		m.press(hal.ButtonNextDir)
	case keymap.ActionBrighter:
		// Lower readings mean more light.
		level := m.sensor.Level()
		m.sensor.SetLevel(level - min(level, lightStep))
	case keymap.ActionDarker:
		m.sensor.SetLevel(min(m.sensor.Level()+lightStep, hal.ADCMax))
	}
	return m, nil
}

func (m Model) press(b hal.Button) {
	m.raise.Raise(hal.Event{Kind: hal.KindButton, Button: b})
}

func (m Model) View() string {
	s := m.status
	inner := m.width - 6

	title := gradient("lumiplay", true, colorPrimary, colorSecondary)
	state := titleStyle.Render(s.PlayState.String())
	if !s.Mounted {
		state = errorStyle.Render("no card")
	}
	header := row(title+"  "+mutedStyle.Render(s.Mode.String()), state, inner)

	lines := []string{header, "", m.trackLine(inner), "", m.meters(inner), m.outputs(inner)}
	if m.lastErr != "" {
		lines = append(lines, errorStyle.Render(truncate(m.lastErr, inner)))
	}
	lines = append(lines, "", m.helpView())

	return frameStyle(s.PlayState.Active()).Width(m.width - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) trackLine(width int) string {
	t := m.status.Track
	if t.Path == "" {
		return subtleStyle.Render("no track")
	}
	pos := mutedStyle.Render(fmt.Sprintf("%d/%d", t.Position(), t.TracksInDir))
	size := mutedStyle.Render(humanize.Bytes(uint64(max(t.Size, 0))))
	right := pos + "  " + size
	path := truncate(t.Path, width-lipgloss.Width(right)-2)
	return row(baseStyle.Render(path), right, width)
}

func (m Model) meters(width int) string {
	barWidth := max(width/2-10, 5)

	volume := player.MaxVolumeShift - m.status.VolumeShift
	if m.status.Muted {
		volume = 0
	}
	vol := "vol   " + meter(volume*barWidth/player.MaxVolumeShift, barWidth, colorSuccess, colorSecondary)

	light := int(hal.ADCMax - m.sensor.Level())
	lum := "light " + meter(light*barWidth/hal.ADCMax, barWidth, colorFgSubtle, colorSecondary)

	return row(vol, lum, width)
}

func (m Model) outputs(width int) string {
	led := subtleStyle.Render("○ led")
	if m.board.LED() {
		led = onStyle.Render("● led")
	}
	usb := subtleStyle.Render("○ usb")
	if m.board.USBPower() {
		usb = onStyle.Render("● usb")
	}
	level := mutedStyle.Render(fmt.Sprintf("adc %#03x", m.sensor.Level()))
	return row(led+"  "+usb, level, width)
}

func (m Model) helpView() string {
	if !m.showHelp {
		return m.help.ShortHelpView(m.bindings("buttons"))
	}
	return m.help.FullHelpView([][]key.Binding{
		m.bindings("buttons"),
		m.bindings("sensor"),
		m.bindings("global"),
	})
}

// bindings converts a keymap context to help entries.
func (m Model) bindings(context string) []key.Binding {
	var out []key.Binding
	for _, b := range keymap.ByContext(context) {
		keys := m.keys.KeysFor(b.Action)
		out = append(out, key.NewBinding(
			key.WithKeys(keys...),
			key.WithHelp(keys[0], b.Description),
		))
	}
	return out
}
