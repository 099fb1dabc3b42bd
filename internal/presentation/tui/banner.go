package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the nodegraph banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"                  _                              _     ", "#818cf8"},
		{"  _ __   ___   __| | ___  __ _ _ __ __ _ _ __ | |__  ", "#a78bfa"},
		{" | '_ \\ / _ \\ / _` |/ _ \\/ _` | '__/ _` | '_ \\| '_ \\ ", "#c084fc"},
		{" | | | | (_) | (_| |  __/ (_| | | | (_| | |_) | | | |", "#e879f9"},
		{" |_| |_|\\___/ \\__,_|\\___|\\__, |_|  \\__,_| .__/|_| |_|", "#f472b6"},
		{"                         |___/          |_|          ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
