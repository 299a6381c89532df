package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/raphaelgruber/scout/internal/models"
)

func printAnalysis(w io.Writer, a models.AnalysisResult) {
	fmt.Fprintf(w, "%s %s\n", defaultTheme.statusStyle().Render("intent:"), a.Intent)
	if a.Query != "" {
		fmt.Fprintf(w, "%s %s\n", defaultTheme.statusStyle().Render("query: "), a.Query)
	}
	if a.MediaRequested {
		fmt.Fprintf(w, "%s yes\n", defaultTheme.statusStyle().Render("media: "))
	}
	if a.Reason != "" {
		fmt.Fprintln(w, defaultTheme.hintStyle().Render(a.Reason))
	}
}

func printContext(w io.Writer, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		fmt.Fprintln(w, defaultTheme.hintStyle().Render("(no search context)"))
		return
	}
	fmt.Fprintln(w, defaultTheme.boxStyle().Render(text))
}

func printCandidate(w io.Writer, c *models.Candidate) {
	if c == nil {
		fmt.Fprintln(w, defaultTheme.hintStyle().Render("nothing to share"))
		return
	}
	fmt.Fprintf(w, "%s %s\n", defaultTheme.successStyle().Render(c.Platform.DisplayName()+":"), c.Title)
	fmt.Fprintf(w, "  %s\n", c.URL)
	meta := []string{c.WindowLabel}
	if c.PublishedAt != nil {
		meta = append(meta, "posted "+c.PublishedAt.Format("2006-01-02"))
	}
	if c.Source != "" {
		meta = append(meta, "via "+c.Source)
	}
	fmt.Fprintln(w, defaultTheme.hintStyle().Render("  "+strings.Join(meta, " · ")))
}
