package panel

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// Palette of the panel.
var (
	colorPrimary   = lipgloss.Color("#a78bfa")
	colorSecondary = lipgloss.Color("#f1a208")
	colorFgBase    = lipgloss.Color("#c0c0c0")
	colorFgMuted   = lipgloss.Color("#808080")
	colorFgSubtle  = lipgloss.Color("#585858")
	colorSuccess   = lipgloss.Color("#42b883")
	colorError     = lipgloss.Color("#ff5555")
)

var (
	baseStyle   = lipgloss.NewStyle().Foreground(colorFgBase)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorFgMuted)
	subtleStyle = lipgloss.NewStyle().Foreground(colorFgSubtle)
	titleStyle  = baseStyle.Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
	onStyle     = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)

	idleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorFgSubtle).
			Padding(0, 2)

	activeBorder = idleBorder.BorderForeground(colorPrimary)
)

// frameStyle returns the border style, highlighted while audio is active.
func frameStyle(active bool) lipgloss.Style {
	if active {
		return activeBorder
	}
	return idleBorder
}

// gradient renders text with a horizontal color gradient.
func gradient(text string, bold bool, from, to lipgloss.Color) string {
	if text == "" {
		return ""
	}

	var clusters []string
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}

	colors := blendColors(len(clusters), from, to)

	var b strings.Builder
	for i, cluster := range clusters {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(colorToHex(colors[i])))
		if bold {
			style = style.Bold(true)
		}
		b.WriteString(style.Render(cluster))
	}
	return b.String()
}

// meter renders a bar of width cells with the first filled ones colored
// along the full gradient, so a short bar stays at the cold end.
func meter(filled, width int, from, to lipgloss.Color) string {
	filled = min(max(filled, 0), width)
	colors := blendColors(width, from, to)

	var b strings.Builder
	for i := range width {
		if i >= filled {
			b.WriteString(subtleStyle.Render("░"))
			continue
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(colorToHex(colors[i]))).Render("█"))
	}
	return b.String()
}

// blendColors returns size colors blended between from and to in HCL space.
func blendColors(size int, from, to lipgloss.Color) []color.Color {
	if size < 2 {
		return []color.Color{lipglossToColor(from)}
	}

	c1, _ := colorful.MakeColor(lipglossToColor(from))
	c2, _ := colorful.MakeColor(lipglossToColor(to))

	colors := make([]color.Color, size)
	for i := range size {
		t := float64(i) / float64(size-1)
		colors[i] = c1.BlendHcl(c2, t)
	}
	return colors
}

func lipglossToColor(c lipgloss.Color) color.Color {
	col, err := colorful.Hex(string(c))
	if err == nil {
		return col
	}
	// ANSI colors: neutral gray
	return color.RGBA{R: 128, G: 128, B: 128, A: 255}
}

func colorToHex(c color.Color) string {
	if cf, ok := c.(colorful.Color); ok {
		return cf.Hex()
	}
	r, g, b, _ := c.RGBA()
	return colorful.Color{
		R: float64(r) / 65535.0,
		G: float64(g) / 65535.0,
		B: float64(b) / 65535.0,
	}.Hex()
}
