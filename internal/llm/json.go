package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errEmptyResponse = errors.New("empty model response")

// parseJSONResponse decodes a JSON object from model output, tolerating a
// surrounding ``` or ```json fence and prose around the object.
func parseJSONResponse(text string, v any) error {
	s := strings.TrimSpace(text)
	if s == "" {
		return errEmptyResponse
	}

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no json object in model response: %.80q", s)
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("decode model json: %w", err)
	}
	return nil
}
