package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  ___ _   _ _ __  _ __   ___  _ __| |_ / _| | _____      __", "#818cf8"},
	{" / __| | | | '_ \\| '_ \\ / _ \\| '__| __| |_| |/ _ \\ \\ /\\ / /", "#a78bfa"},
	{" \\__ \\ |_| | |_) | |_) | (_) | |  | |_|  _| | (_) \\ V  V / ", "#c084fc"},
	{" |___/\\__,_| .__/| .__/ \\___/|_|   \\__|_| |_|\\___/ \\_/\\_/  ", "#e879f9"},
	{"           |_|   |_|                                         ", "#f472b6"},
}

// PrintBanner writes the ASCII banner, colored when w supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
