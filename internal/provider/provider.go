// Package provider implements the external content providers queried during
// discovery, plus the general web lookup used for factual questions.
package provider

import (
	"context"
	"errors"

	"github.com/raphaelgruber/scout/internal/models"
)

// Provider names, also recorded on every candidate as Source.
const (
	NameImages  = "serpapi_images"
	NameYouTube = "youtube"
	NameWeb     = "serpapi_web"
)

// ErrMissingAPIKey is returned by constructors when credentials are absent.
var ErrMissingAPIKey = errors.New("missing api key")

// Provider fetches candidates for one query restricted to one time window.
// An empty result is a nil error with no candidates; transport and decoding
// failures are returned so the caller can retry them.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, query string, window models.TimeWindow) ([]models.Candidate, error)
}
