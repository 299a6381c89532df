package models

import "time"

// Platform identifies the kind of content a candidate points to.
type Platform string

const (
	PlatformSocialPost Platform = "social_post"
	PlatformVideo      Platform = "video"
)

// DisplayName is the user-facing platform name.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformSocialPost:
		return "Instagram"
	case PlatformVideo:
		return "YouTube"
	default:
		return string(p)
	}
}

// Candidate is a single discovered item. URL is its identity.
type Candidate struct {
	Platform     Platform   `json:"platform"`
	URL          string     `json:"url"`
	Title        string     `json:"title,omitempty"`
	Thumbnail    string     `json:"thumbnail,omitempty"`
	WindowLabel  string     `json:"window_label"`
	PriorityRank int        `json:"priority_rank"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	Source       string     `json:"source,omitempty"`
}

// InWindow returns a copy tagged with w's label and rank.
func (c Candidate) InWindow(w TimeWindow) Candidate {
	c.WindowLabel = w.Label
	c.PriorityRank = w.PriorityRank
	return c
}
