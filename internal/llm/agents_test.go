package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/scout/internal/models"
)

// scriptedGen returns a fixed reply and records the prompts it was given.
type scriptedGen struct {
	reply  string
	err    error
	calls  int
	system string
	user   string
	op     string
}

func (s *scriptedGen) GenerateWithSystem(_ context.Context, op, system, user string) (string, error) {
	s.calls++
	s.op, s.system, s.user = op, system, user
	return s.reply, s.err
}

func TestParseJSONResponse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"plain", `{"a":"x"}`, "x", false},
		{"json fence", "```json\n{\"a\":\"y\"}\n```", "y", false},
		{"bare fence", "```\n{\"a\":\"z\"}\n```", "z", false},
		{"prose around", "Sure! {\"a\":\"w\"} hope that helps", "w", false},
		{"empty", "   ", "", true},
		{"no object", "I cannot help", "", true},
		{"broken", "{\"a\":", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				A string `json:"a"`
			}
			err := parseJSONResponse(tt.text, &out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.A)
		})
	}
}

func TestPromptsLoad(t *testing.T) {
	for _, name := range []string{"classifier", "relevance", "reply"} {
		t.Run(name, func(t *testing.T) {
			p, err := LoadPrompt(name)
			require.NoError(t, err)
			assert.Equal(t, name, p.Name)
			assert.NotEmpty(t, p.Description)
		})
	}

	_, err := LoadPrompt("missing")
	assert.Error(t, err)
}

func TestParsePromptRequiresSections(t *testing.T) {
	_, err := parsePrompt("x", "## System\nonly system\n")
	assert.ErrorContains(t, err, "missing User section")
}

func TestClassifierClassify(t *testing.T) {
	gen := &scriptedGen{reply: "```json\n" + `{"analysis_type":"SNS_SEARCH","search_term":"성수동 카페","detected_term":null,"is_daily_life":true,"is_media_requested":false,"reason":"daily life"}` + "\n```"}
	c, err := NewClassifier(gen, nil)
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), models.ClassifyRequest{
		Question:    "요즘 성수동 카페 어때?",
		PersonaName: "Mina",
		History: []models.Turn{
			{Role: models.RoleUser, Content: "hi"},
			{Role: models.RoleAssistant, Content: "hello!"},
		},
		SharedTopics: []string{"hongdae bakery"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.IntentSocialSearch, got.Intent)
	assert.Equal(t, "성수동 카페", got.Query)
	assert.False(t, got.MediaRequested)
	assert.Equal(t, "daily life", got.Reason)

	assert.Equal(t, "classify", gen.op)
	assert.Contains(t, gen.system, `"Mina"`)
	assert.Contains(t, gen.user, "User: hi")
	assert.Contains(t, gen.user, "AI: hello!")
	assert.Contains(t, gen.user, "hongdae bakery")
	assert.Contains(t, gen.user, "요즘 성수동 카페 어때?")
}

func TestClassifierEmptyQuestion(t *testing.T) {
	gen := &scriptedGen{}
	c, err := NewClassifier(gen, nil)
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), models.ClassifyRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.IntentNoSearch, got.Intent)
	assert.Zero(t, gen.calls)
}

func TestClassifierNoHistory(t *testing.T) {
	gen := &scriptedGen{reply: `{"analysis_type":"NO_SEARCH"}`}
	c, err := NewClassifier(gen, nil)
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), models.ClassifyRequest{Question: "how are you"})
	require.NoError(t, err)
	assert.Equal(t, models.IntentNoSearch, got.Intent)
	assert.Contains(t, gen.user, "(none)")
}

func TestClassifierDowngradesMissingQuery(t *testing.T) {
	gen := &scriptedGen{reply: `{"analysis_type":"GENERAL_SEARCH","search_term":null,"is_media_requested":true}`}
	c, err := NewClassifier(gen, nil)
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), models.ClassifyRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, models.IntentNoSearch, got.Intent)
	assert.True(t, got.MediaRequested)
}

func TestClassifierErrors(t *testing.T) {
	t.Run("model error", func(t *testing.T) {
		c, err := NewClassifier(&scriptedGen{err: errors.New("overloaded")}, nil)
		require.NoError(t, err)
		_, err = c.Classify(context.Background(), models.ClassifyRequest{Question: "q"})
		assert.ErrorContains(t, err, "overloaded")
	})

	t.Run("unparseable reply", func(t *testing.T) {
		c, err := NewClassifier(&scriptedGen{reply: "no json here"}, nil)
		require.NoError(t, err)
		_, err = c.Classify(context.Background(), models.ClassifyRequest{Question: "q"})
		assert.Error(t, err)
	})
}

func TestRelevanceChecker(t *testing.T) {
	t.Run("missing fields are relevant without a call", func(t *testing.T) {
		gen := &scriptedGen{}
		r, err := NewRelevanceChecker(gen, nil)
		require.NoError(t, err)

		for _, tc := range []struct{ q, title string }{{"", "t"}, {"q", ""}} {
			ok, err := r.CheckRelevance(context.Background(), tc.q, tc.title, models.PlatformVideo, "s")
			require.NoError(t, err)
			assert.True(t, ok)
		}
		ok, err := r.CheckRelevance(context.Background(), "q", "t", "", "s")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, gen.calls)
	})

	t.Run("model verdict", func(t *testing.T) {
		gen := &scriptedGen{reply: `{"is_relevant": false, "reason": "different topic"}`}
		r, err := NewRelevanceChecker(gen, nil)
		require.NoError(t, err)

		ok, err := r.CheckRelevance(context.Background(), "show me cats", "Dog training 101", models.PlatformSocialPost, "cats")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "relevance", gen.op)
		assert.Contains(t, gen.user, "Platform: Instagram")
		assert.Contains(t, gen.user, "Title: Dog training 101")
		assert.Contains(t, gen.user, "Search term: cats")
	})

	t.Run("model error is returned", func(t *testing.T) {
		r, err := NewRelevanceChecker(&scriptedGen{err: errors.New("timeout")}, nil)
		require.NoError(t, err)
		_, err = r.CheckRelevance(context.Background(), "q", "t", models.PlatformVideo, "s")
		assert.Error(t, err)
	})
}

func TestReplierReply(t *testing.T) {
	gen := &scriptedGen{reply: "sounds fun!"}
	r, err := NewReplier(gen)
	require.NoError(t, err)

	got, err := r.Reply(context.Background(), ReplyRequest{
		Persona:  "Mina",
		Question: "any cafe tips?",
		Context:  "[Search results: 'cafe']\n✓ try Onion",
		Shared:   &models.Candidate{Platform: models.PlatformSocialPost, Title: "Onion Seongsu"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sounds fun!", got)
	assert.Equal(t, "llm_generate", gen.op)
	assert.Contains(t, gen.system, "You are Mina")
	assert.Contains(t, gen.system, "✓ try Onion")
	assert.Contains(t, gen.system, `Instagram post titled "Onion Seongsu"`)
	assert.Contains(t, gen.user, "any cafe tips?")
}

func TestReplierWithoutContext(t *testing.T) {
	gen := &scriptedGen{reply: "hey"}
	r, err := NewReplier(gen)
	require.NoError(t, err)

	_, err = r.Reply(context.Background(), ReplyRequest{Question: "hi"})
	require.NoError(t, err)
	assert.NotContains(t, gen.system, "Do not mention that you searched")
	assert.NotContains(t, gen.system, "post titled")
}
