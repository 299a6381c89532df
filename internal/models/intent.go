package models

import (
	"encoding/json"
	"strings"
)

// Intent is the search strategy chosen for a single user turn.
type Intent int

const (
	IntentNoSearch Intent = iota
	IntentTermSearch
	IntentSocialSearch
	IntentGeneralSearch
)

var intentNames = map[Intent]string{
	IntentNoSearch:      "NO_SEARCH",
	IntentTermSearch:    "TERM_SEARCH",
	IntentSocialSearch:  "SOCIAL_SEARCH",
	IntentGeneralSearch: "GENERAL_SEARCH",
}

func (i Intent) String() string {
	if s, ok := intentNames[i]; ok {
		return s
	}
	return "NO_SEARCH"
}

// ParseIntent maps a classifier label onto an Intent. Unknown labels are
// treated as NO_SEARCH. SNS_SEARCH is accepted as an alias of SOCIAL_SEARCH.
func ParseIntent(s string) Intent {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TERM_SEARCH":
		return IntentTermSearch
	case "SOCIAL_SEARCH", "SNS_SEARCH":
		return IntentSocialSearch
	case "GENERAL_SEARCH":
		return IntentGeneralSearch
	default:
		return IntentNoSearch
	}
}

func (i Intent) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

func (i *Intent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*i = ParseIntent(s)
	return nil
}

// AnalysisResult is the classifier verdict for one turn.
type AnalysisResult struct {
	Intent         Intent `json:"intent"`
	Query          string `json:"query,omitempty"`
	MediaRequested bool   `json:"media_requested"`
	DetectedTerm   string `json:"detected_term,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// NoSearch returns a NO_SEARCH result carrying reason.
func NoSearch(reason string) AnalysisResult {
	return AnalysisResult{Intent: IntentNoSearch, Reason: reason}
}

// Normalize enforces that a searching intent always has a query. A blank
// query downgrades the result to NO_SEARCH; MediaRequested is left alone.
func (r AnalysisResult) Normalize() AnalysisResult {
	r.Query = strings.TrimSpace(r.Query)
	if r.Intent == IntentNoSearch {
		r.Query = ""
		return r
	}
	if r.Query == "" {
		r.Intent = IntentNoSearch
		if r.Reason == "" {
			r.Reason = "classifier returned no query"
		}
	}
	return r
}

// NeedsSearch reports whether any provider should be consulted.
func (r AnalysisResult) NeedsSearch() bool {
	return r.Intent != IntentNoSearch
}

// ClassifyRequest is the input to a question classifier.
type ClassifyRequest struct {
	Question     string
	PersonaName  string
	History      []Turn
	SharedTopics []string
}
