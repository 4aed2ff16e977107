package config

import (
	"bufio"
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/knadh/koanf/maps"
)

// MaxLineLen is the longest line the device reads; the rest of a longer line
// is dropped.
const MaxLineLen = 127

// INIParser parses the device's flat key=value files.
type INIParser struct{}

// INI returns the device config parser.
func INI() *INIParser { return &INIParser{} }

// Unmarshal parses b into a flat map of string values. Blank lines, lines
// starting with ';' and lines without '=' are skipped. A repeated key keeps
// its last value.
func (p *INIParser) Unmarshal(b []byte) (map[string]any, error) {
	out := map[string]any{}
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 4096), len(b)+1)
	sc.Split(scanLines)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) > MaxLineLen {
			line = line[:MaxLineLen]
		}
		s := strings.TrimLeft(string(line), " \t")
		if s == "" || s[0] == ';' {
			continue
		}
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, sc.Err()
}

// Marshal writes m back as sorted key=value lines. Nested maps are
// flattened with '.'.
func (p *INIParser) Marshal(m map[string]any) ([]byte, error) {
	flat, _ := maps.Flatten(m, nil, ".")
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%v\n", k, flat[k])
	}
	return buf.Bytes(), nil
}

// scanLines splits on '\n' or '\r', the way the device does; empty tokens
// from "\r\n" are harmless.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
