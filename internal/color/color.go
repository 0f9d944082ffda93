// Package color provides ANSI colour helpers for terminal output.
// A Palette with Enabled=false returns every string unchanged, so callers need
// not guard their output. Use Detect once at program start.
package color

import "os"

// Palette renders status text. The zero value is colourless.
type Palette struct {
	Enabled bool
}

// Detect returns a Palette for f, with colour disabled when:
//   - NO_COLOR env var is set (https://no-color.org)
//   - TERM=dumb
//   - f is not a character device (piped, redirected, etc.)
func Detect(f *os.File) Palette {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" || f == nil {
		return Palette{}
	}
	stat, err := f.Stat()
	if err != nil {
		return Palette{}
	}
	return Palette{Enabled: stat.Mode()&os.ModeCharDevice != 0}
}

func (p Palette) seq(code, s string) string {
	if !p.Enabled || s == "" {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func (p Palette) Bold(s string) string      { return p.seq("1", s) }
func (p Palette) Dim(s string) string       { return p.seq("2", s) }
func (p Palette) Red(s string) string       { return p.seq("31", s) }
func (p Palette) Green(s string) string     { return p.seq("32", s) }
func (p Palette) Yellow(s string) string    { return p.seq("33", s) }
func (p Palette) BoldRed(s string) string   { return p.seq("1;31", s) }
func (p Palette) BoldGreen(s string) string { return p.seq("1;32", s) }
func (p Palette) BoldCyan(s string) string  { return p.seq("1;36", s) }
