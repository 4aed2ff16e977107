package keymap

// Binding describes a single key binding.
type Binding struct {
	Action      Action
	Keys        []string
	Description string
	Context     string // "global", "buttons", "sensor"
}

// All contains all key bindings for help generation.
var All = []Binding{
	// Global
	{ActionQuit, []string{"q", "ctrl+c"}, "Quit", "global"},
	{ActionHelp, []string{"?"}, "Toggle help", "global"},

	// Buttons
	{ActionPower, []string{"p", " "}, "Power (cycle mode)", "buttons"},
	{ActionNext, []string{"n", "right"}, "Next track", "buttons"},
	{ActionPrev, []string{"b", "left"}, "Previous track", "buttons"},
	{ActionNextDir, []string{"d", "down"}, "Next directory", "buttons"},

	// Sensor
	{ActionBrighter, []string{"+", "="}, "More light", "sensor"},
	{ActionDarker, []string{"-", "_"}, "Less light", "sensor"},
}

// ByContext returns key bindings filtered by context.
func ByContext(context string) []Binding {
	var result []Binding
	for _, kb := range All {
		if kb.Context == context {
			result = append(result, kb)
		}
	}
	return result
}
