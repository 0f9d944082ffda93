package actions

import (
	"fmt"
	"io"

	"github.com/atomikpanda/blazesetup/internal/color"
)

// Printer writes the human-readable status lines of an action.
// The zero value discards output.
type Printer struct {
	Out   io.Writer
	Color color.Palette
}

func (p Printer) line(s string) {
	if p.Out == nil {
		return
	}
	fmt.Fprintf(p.Out, "    %s\n", s)
}

// OK reports a satisfied or completed condition.
func (p Printer) OK(format string, args ...any) {
	p.line(p.Color.Green(fmt.Sprintf(format, args...)))
}

// Info reports progress.
func (p Printer) Info(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

// Warn reports something unexpected that does not stop the action.
func (p Printer) Warn(format string, args ...any) {
	p.line(p.Color.Yellow(fmt.Sprintf(format, args...)))
}

// DryRun reports what would have been done.
func (p Printer) DryRun(format string, args ...any) {
	p.line(p.Color.Dim("[dry-run] " + fmt.Sprintf(format, args...)))
}
