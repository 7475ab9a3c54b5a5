package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"

	"github.com/pders01/feedagg/internal/feed"
)

type styles struct {
	source lipgloss.Style
	title  lipgloss.Style
	link   lipgloss.Style
	muted  lipgloss.Style
	header lipgloss.Style
}

// newStyles binds styles to w so color is dropped when w is not a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		source: r.NewStyle().Foreground(lipgloss.Color("#4ECDC4")),
		title:  r.NewStyle().Bold(true),
		link:   r.NewStyle().Foreground(lipgloss.Color("#95E1D3")).Underline(true),
		muted:  r.NewStyle().Faint(true),
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA86B")),
	}
}

// writeItems prints one two-line block per item:
//
//	- [source] title
//	  link (published)
func writeItems(w io.Writer, items []feed.Item) error {
	st := newStyles(w)
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		title := strings.TrimSpace(strings.ReplaceAll(it.Title, "\n", " "))
		fmt.Fprintf(&b, "- %s %s\n  %s",
			st.source.Render("["+it.Source+"]"),
			st.title.Render(title),
			st.link.Render(it.Link))
		if it.Published != nil {
			b.WriteString(" " + st.muted.Render("("+it.Published.Format(time.RFC3339)+")"))
		}
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeItemsAs(w io.Writer, items []feed.Item, asJSON bool) error {
	if asJSON {
		return writeJSON(w, items)
	}
	return writeItems(w, items)
}

func showBanner(w io.Writer) {
	st := newStyles(w)
	colors := []lipgloss.Color{"#FF6B6B", "#FFA86B", "#95E1D3", "#4ECDC4"}
	word := "feedagg"

	var letters []string
	for i, r := range word {
		letters = append(letters, st.title.Foreground(colors[i%len(colors)]).Render(string(r)))
	}

	box := lipgloss.NewRenderer(w).NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("#4ECDC4")).
		Padding(0, 3)

	fmt.Fprintln(w, box.Render(lipgloss.JoinVertical(lipgloss.Center,
		strings.Join(letters, " "),
		st.muted.Render("RSS/Atom aggregator "+Version),
	)))
}
