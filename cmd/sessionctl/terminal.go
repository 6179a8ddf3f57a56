package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jrsteele09/go-session-client/gateway"
	"github.com/jrsteele09/go-session-client/internal/ui"
)

var (
	_ gateway.Notifier  = (*terminal)(nil)
	_ gateway.Navigator = (*terminal)(nil)
)

// terminal shows gateway notices and redirects on the command line.
type terminal struct {
	out    io.Writer
	colour bool
}

func (t *terminal) Error(message string) {
	fmt.Fprintln(t.out, ui.Colourise(t.colour, ui.Red, "✗ "+message))
}

func (t *terminal) Warn(message string, _ time.Duration) {
	fmt.Fprintln(t.out, ui.Colourise(t.colour, ui.Yellow, "! "+message))
}

func (t *terminal) RedirectToLogin(route string) {
	fmt.Fprintln(t.out, ui.Colourise(t.colour, ui.Cyan, "→ "+route))
}

func (t *terminal) request(method, path string) {
	fmt.Fprintf(t.out, "[%s] %s\n", ui.Method(t.colour, method), path)
}
