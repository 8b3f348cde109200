package preset

import (
	"fmt"
	"slices"
	"strings"
)

// Preset is an x264 speed/quality trade-off, ordered from fastest (largest
// output) to slowest (smallest output).
type Preset string

// Known presets, fastest first.
const (
	Ultrafast Preset = "ultrafast"
	Superfast Preset = "superfast"
	Veryfast  Preset = "veryfast"
	Faster    Preset = "faster"
	Fast      Preset = "fast"
	Medium    Preset = "medium"
	Slow      Preset = "slow"
	Slower    Preset = "slower"
	Veryslow  Preset = "veryslow"
)

// Default is used for segment extraction when nothing is configured.
const Default = Ultrafast

// ordered must stay sorted from fastest to slowest; Rank relies on it.
var ordered = []Preset{
	Ultrafast, Superfast, Veryfast, Faster, Fast, Medium, Slow, Slower, Veryslow,
}

// Names returns a comma-separated list for help text and error messages.
func Names() string {
	names := make([]string, len(ordered))
	for i, p := range ordered {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// Parse normalizes and validates a preset name.
// Empty input yields Default.
func Parse(s string) (Preset, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Default, nil
	}
	p := Preset(s)
	if !slices.Contains(ordered, p) {
		return "", fmt.Errorf("unknown preset %q (valid: %s): %w", s, Names(), ErrInvalid)
	}
	return p, nil
}

// Valid reports whether s names a known preset (case-insensitive).
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil && strings.TrimSpace(s) != ""
}

// Rank returns the position of p from fastest (0) to slowest, or -1.
func (p Preset) Rank() int {
	return slices.Index(ordered, p)
}

// String implements fmt.Stringer and pflag.Value.
func (p Preset) String() string {
	return string(p)
}

// Set implements pflag.Value so a Preset can back a cobra flag directly.
func (p *Preset) Set(s string) error {
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Type implements pflag.Value.
func (p *Preset) Type() string {
	return "preset"
}
