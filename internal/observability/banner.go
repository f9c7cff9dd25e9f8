package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset    = "\033[0m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

// termMu serialises log lines and status lines written to the terminal.
var termMu sync.Mutex

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// IsTerminal reports whether f is attached to a terminal. Colours are only
// emitted when it is.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type termWriter struct {
	w io.Writer
}

func (tw termWriter) Write(p []byte) (n int, err error) {
	termMu.Lock()
	defer termMu.Unlock()
	return tw.w.Write(p)
}

// NewTermWriter returns an io.Writer suitable for log.SetOutput().
func NewTermWriter() io.Writer {
	return termWriter{w: os.Stderr}
}

func PrintBanner() {
	if !IsTerminal(os.Stdout) {
		return
	}
	banner := `
   ______________________  ____  ________________ __
  / ___/_  __/ ____/ __ \/ __ \/ ____/ ____/ //_/
  \__ \ / / / __/ / /_/ / / / / __/ / /   / ,<
 ___/ // / / /___/ ____/ /_/ / /___/ /___/ /| |
/____//_/ /_____/_/   /_____/_____/\____/_/ |_|

        >> recipes in, jobs out <<
`
	width := termWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Printf("%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
}

// StatusLine renders the current status in one line.
func StatusLine() string {
	state, command, lastHB := GetStatus()

	pulse := "HEALTHY"
	pulseColor := colorNeonCyan
	if delta := time.Since(lastHB); delta >= 90*time.Second {
		pulse = "OFFLINE"
		pulseColor = colorNeonMag
	} else if delta >= 40*time.Second {
		pulse = "LAGGING"
		pulseColor = colorPurple
	}

	if command == "" {
		command = "waiting..."
	}
	if len(command) > 25 {
		command = command[:22] + "..."
	}

	return fmt.Sprintf("%s[%s] %s%-8s%s | %-8s | %s | up %v",
		colorReset,
		lastHB.Format("15:04:05"),
		pulseColor, pulse, colorReset,
		state,
		command,
		time.Since(startTime).Round(time.Second),
	)
}

// PrintStatus writes StatusLine to stderr without interleaving log output.
func PrintStatus() {
	line := StatusLine()
	termMu.Lock()
	defer termMu.Unlock()
	fmt.Fprintln(os.Stderr, line)
}
