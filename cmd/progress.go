// progress.go - Fortschrittsanzeige fuer Merge-Ereignisse
// Hauptfunktionen: newProgress, progressBar.Update, renderProgress
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/loramerge/loramerge/merge"
)

const barWidth = 20

type progressBar struct {
	w     io.Writer
	tty   bool
	width int
}

func newProgress(w io.Writer) *progressBar {
	p := &progressBar{w: w, width: 80}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			p.width = width
		}
	}
	return p
}

// Update zeichnet die Zeile neu. Ohne Terminal wird nur das Ende eines
// Abschnitts ausgegeben.
func (p *progressBar) Update(ev merge.Progress) {
	done := ev.Completed >= ev.Total
	if !p.tty {
		if done {
			fmt.Fprintln(p.w, renderProgress(ev, p.width))
		}
		return
	}

	fmt.Fprintf(p.w, "\r\033[K%s", renderProgress(ev, p.width))
	if done {
		fmt.Fprintln(p.w)
	}
}

func renderProgress(ev merge.Progress, width int) string {
	filled := barWidth
	if ev.Total > 0 {
		filled = min(barWidth, barWidth*ev.Completed/ev.Total)
	}

	bar := "[" + strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled) + "]"
	counts := fmt.Sprintf(" %d/%d", ev.Completed, ev.Total)

	label := string(ev.Stage)
	if ev.Name != "" {
		label += " " + ev.Name
	}

	room := max(10, width-len(bar)-len(counts)-1)
	label = runewidth.FillRight(runewidth.Truncate(label, room, "..."), room)
	return label + " " + bar + counts
}
