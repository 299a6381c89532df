package service

import (
	"fmt"
	"time"

	"github.com/raphaelgruber/scout/internal/models"
)

const dateLayout = "January 2, 2006"

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func generalContext(query, summary string, now time.Time) string {
	return fmt.Sprintf("\n\n[Search results: '%s']\n%s\n\n[Note] Today's date: %s\n", query, summary, formatDate(now))
}

func termInstruction(query string) string {
	return fmt.Sprintf("\n[Instruction] Answer naturally using the search results above. "+
		"Do not repeat the search term ('%s') verbatim; speak as someone who already understands what it means.\n", query)
}

func socialContext(c *models.Candidate, now time.Time) string {
	posted := ""
	if c.PublishedAt != nil {
		posted = fmt.Sprintf("Posted: %s\n", formatDate(c.PublishedAt.In(now.Location())))
	}
	return fmt.Sprintf("\n\n[%s post]\nTitle: %s\n%s\n[Note] Today's date: %s\n",
		c.Platform.DisplayName(), c.Title, posted, formatDate(now))
}
