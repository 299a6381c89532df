package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/scout/internal/discovery"
	"github.com/raphaelgruber/scout/internal/metrics"
	"github.com/raphaelgruber/scout/internal/models"
	"github.com/raphaelgruber/scout/internal/provider"
	"github.com/raphaelgruber/scout/internal/retry"
	"github.com/raphaelgruber/scout/internal/session"
)

var fixedNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

type stubClassifier struct {
	result models.AnalysisResult
	err    error
	panic  bool
	last   models.ClassifyRequest
	calls  int
}

func (s *stubClassifier) Classify(_ context.Context, req models.ClassifyRequest) (models.AnalysisResult, error) {
	s.calls++
	s.last = req
	if s.panic {
		panic("boom")
	}
	return s.result, s.err
}

type stubWeb struct {
	summary string
	fails   int
	calls   atomic.Int32
}

func (s *stubWeb) Lookup(_ context.Context, _ string) (string, error) {
	n := s.calls.Add(1)
	if int(n) <= s.fails {
		return "", errors.New("serpapi: 503")
	}
	return s.summary, nil
}

type stubDiscovery struct {
	found *models.Candidate
	err   error
	calls int
}

func (s *stubDiscovery) Discover(_ context.Context, _, _ string) (*models.Candidate, error) {
	s.calls++
	return s.found, s.err
}

// countingProvider counts fetches and never finds anything.
type countingProvider struct {
	calls atomic.Int32
}

func (c *countingProvider) Name() string { return "counting" }

func (c *countingProvider) Fetch(context.Context, string, models.TimeWindow) ([]models.Candidate, error) {
	c.calls.Add(1)
	return nil, nil
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.LookupRetry = retry.Policy{MaxAttempts: 2, Delay: time.Millisecond}
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func analyzed(t *testing.T, o *SearchOrchestrator, question string) models.AnalysisResult {
	t.Helper()
	return o.AnalyzeQuestion(context.Background(), question, "Mina")
}

func TestGeneralSearchContext(t *testing.T) {
	web := &stubWeb{summary: "✓ Seoul: sunny, 18°C"}
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentGeneralSearch, Query: "seoul weather"}}
	o := NewSearchOrchestrator(cls, nil, web, session.NewMemory(), testOptions())

	analyzed(t, o, "what's the weather in seoul?")
	require.True(t, o.NeedsSearch())

	text, cand := o.ExecuteSearch(context.Background(), "what's the weather in seoul?")
	assert.Nil(t, cand)
	assert.Equal(t,
		"\n\n[Search results: 'seoul weather']\n✓ Seoul: sunny, 18°C\n\n[Note] Today's date: March 14, 2026\n",
		text)
}

func TestTermSearchAddsInstruction(t *testing.T) {
	web := &stubWeb{summary: "✓ a slang word for awkward"}
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentTermSearch, Query: "킹받네", DetectedTerm: "킹받네"}}
	o := NewSearchOrchestrator(cls, nil, web, session.NewMemory(), testOptions())

	analyzed(t, o, "킹받네가 뭐야?")
	text, cand := o.ExecuteSearch(context.Background(), "킹받네가 뭐야?")

	assert.Nil(t, cand)
	assert.Contains(t, text, "[Search results: '킹받네']")
	assert.Contains(t, text, "[Instruction] Answer naturally")
	assert.Contains(t, text, "Do not repeat the search term ('킹받네') verbatim")
}

func TestSocialSearchFound(t *testing.T) {
	published := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)
	found := &models.Candidate{
		Platform:    models.PlatformVideo,
		URL:         "https://www.youtube.com/watch?v=abc",
		Title:       "Seongsu cafe vlog",
		PublishedAt: &published,
	}
	store := session.NewMemory()
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentSocialSearch, Query: "seongsu cafe"}}
	o := NewSearchOrchestrator(cls, &stubDiscovery{found: found}, &stubWeb{}, store, testOptions())

	analyzed(t, o, "any good cafes in seongsu?")
	text, cand := o.ExecuteSearch(context.Background(), "any good cafes in seongsu?")

	require.NotNil(t, cand)
	assert.Equal(t, found.URL, cand.URL)
	assert.Equal(t,
		"\n\n[YouTube post]\nTitle: Seongsu cafe vlog\nPosted: February 1, 2026\n\n[Note] Today's date: March 14, 2026\n",
		text)

	topics, err := store.SharedTopics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"seongsu cafe"}, topics)
}

func TestSocialSearchRequestedMediaDoesNotRecordTopic(t *testing.T) {
	store := session.NewMemory()
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentSocialSearch, Query: "cats", MediaRequested: true}}
	disc := &stubDiscovery{found: &models.Candidate{Platform: models.PlatformSocialPost, URL: "u", Title: "cat"}}
	o := NewSearchOrchestrator(cls, disc, nil, store, testOptions())

	analyzed(t, o, "show me a cat video")
	_, cand := o.ExecuteSearch(context.Background(), "show me a cat video")
	require.NotNil(t, cand)

	topics, err := store.SharedTopics(context.Background())
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestSocialSearchFallsBackWhenProvidersAreEmpty(t *testing.T) {
	ctx := context.Background()
	engine := discovery.New([]provider.Provider{&countingProvider{}, &countingProvider{}}, nil, discovery.Options{
		Retry: retry.Policy{MaxAttempts: 1},
	})
	web := &stubWeb{summary: "✓ Han river: picnic spots"}
	store := session.NewMemory()

	social := NewSearchOrchestrator(
		&stubClassifier{result: models.AnalysisResult{Intent: models.IntentSocialSearch, Query: "han river picnic"}},
		engine, web, store, testOptions())
	analyzed(t, social, "picnic ideas?")
	socialText, cand := social.ExecuteSearch(ctx, "picnic ideas?")

	general := NewSearchOrchestrator(
		&stubClassifier{result: models.AnalysisResult{Intent: models.IntentGeneralSearch, Query: "han river picnic"}},
		nil, web, session.NewMemory(), testOptions())
	analyzed(t, general, "picnic ideas?")
	generalText, _ := general.ExecuteSearch(ctx, "picnic ideas?")

	assert.Nil(t, cand)
	assert.NotEmpty(t, socialText)
	assert.Equal(t, generalText, socialText)

	topics, err := store.SharedTopics(ctx)
	require.NoError(t, err)
	assert.Empty(t, topics, "nothing was shared")
}

func TestSocialSearchFallsBackOnDiscoveryError(t *testing.T) {
	web := &stubWeb{summary: "✓ result"}
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentSocialSearch, Query: "q"}}
	o := NewSearchOrchestrator(cls, &stubDiscovery{err: context.DeadlineExceeded}, web, session.NewMemory(), testOptions())

	analyzed(t, o, "question")
	text, cand := o.ExecuteSearch(context.Background(), "question")
	assert.Nil(t, cand)
	assert.Contains(t, text, "[Search results: 'q']")
}

func TestUnsolicitedShareOnCooldown(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemory()
	require.NoError(t, store.AppendTurn(ctx, models.Turn{
		Role:   models.RoleAssistant,
		Social: &models.Candidate{URL: "https://www.instagram.com/p/old/"},
	}))
	for range 3 {
		require.NoError(t, store.AppendTurn(ctx, models.Turn{Role: models.RoleUser, Content: "hm"}))
	}

	fetcher := &countingProvider{}
	engine := discovery.New([]provider.Provider{fetcher}, nil, discovery.Options{})
	web := &stubWeb{summary: "unused"}
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentSocialSearch, Query: "seongsu cafe"}}
	o := NewSearchOrchestrator(cls, engine, web, store, testOptions())

	analyzed(t, o, "just had coffee")
	text, cand := o.ExecuteSearch(ctx, "just had coffee")

	assert.Empty(t, text)
	assert.Nil(t, cand)
	assert.Zero(t, fetcher.calls.Load())
	assert.Zero(t, web.calls.Load())
}

func TestRequestedMediaIgnoresCooldown(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemory()
	require.NoError(t, store.AppendTurn(ctx, models.Turn{Role: models.RoleAssistant, Social: &models.Candidate{URL: "old"}}))

	disc := &stubDiscovery{found: &models.Candidate{Platform: models.PlatformVideo, URL: "new", Title: "t"}}
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentSocialSearch, Query: "q", MediaRequested: true}}
	o := NewSearchOrchestrator(cls, disc, nil, store, testOptions())

	analyzed(t, o, "show me a video")
	_, cand := o.ExecuteSearch(ctx, "show me a video")
	require.NotNil(t, cand)
	assert.Equal(t, 1, disc.calls)
}

func TestCooldownDisabled(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemory()
	require.NoError(t, store.AppendTurn(ctx, models.Turn{Role: models.RoleAssistant, Social: &models.Candidate{URL: "old"}}))

	opts := testOptions()
	opts.CooldownTurns = 0
	disc := &stubDiscovery{found: &models.Candidate{URL: "new", Title: "t"}}
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentSocialSearch, Query: "q"}}
	o := NewSearchOrchestrator(cls, disc, nil, store, opts)

	analyzed(t, o, "q")
	_, cand := o.ExecuteSearch(ctx, "q")
	assert.NotNil(t, cand)
}

// failingStore errors on every read.
type failingStore struct {
	session.Store
}

func (failingStore) HasSocialContentInLastNTurns(context.Context, int) (bool, error) {
	return false, errors.New("db down")
}

func (failingStore) RecentTurns(context.Context, int) ([]models.Turn, error) {
	return nil, errors.New("db down")
}

func (failingStore) SharedTopics(context.Context) ([]string, error) {
	return nil, errors.New("db down")
}

func TestCooldownCheckFailureSuppressesShare(t *testing.T) {
	disc := &stubDiscovery{found: &models.Candidate{URL: "u"}}
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentSocialSearch, Query: "q"}}
	o := NewSearchOrchestrator(cls, disc, nil, failingStore{session.NewMemory()}, testOptions())

	res := analyzed(t, o, "q")
	assert.Equal(t, models.IntentSocialSearch, res.Intent, "classification proceeds without history")

	text, cand := o.ExecuteSearch(context.Background(), "q")
	assert.Empty(t, text)
	assert.Nil(t, cand)
	assert.Zero(t, disc.calls)
}

func TestAnalyzeQuestionPassesHistoryAndTopics(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemory()
	for _, c := range []string{"one", "two", "three", "four", "five"} {
		require.NoError(t, store.AppendTurn(ctx, models.Turn{Role: models.RoleUser, Content: c}))
	}
	require.NoError(t, store.RecordSharedTopic(ctx, "hongdae bakery"))

	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentNoSearch}}
	o := NewSearchOrchestrator(cls, nil, nil, store, testOptions())
	analyzed(t, o, "hello")

	require.Len(t, cls.last.History, DefaultHistoryTurns)
	assert.Equal(t, "two", cls.last.History[0].Content)
	assert.Equal(t, []string{"hongdae bakery"}, cls.last.SharedTopics)
	assert.Equal(t, "Mina", cls.last.PersonaName)
}

func TestAnalyzeQuestionDegradesToNoSearch(t *testing.T) {
	tests := []struct {
		name string
		cls  *stubClassifier
		q    string
	}{
		{"classifier error", &stubClassifier{err: errors.New("rate limited")}, "q"},
		{"classifier panic", &stubClassifier{panic: true}, "q"},
		{"empty question", &stubClassifier{result: models.AnalysisResult{Intent: models.IntentGeneralSearch, Query: "x"}}, "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			web := &stubWeb{summary: "s"}
			o := NewSearchOrchestrator(tt.cls, nil, web, session.NewMemory(), testOptions())

			res := analyzed(t, o, tt.q)
			assert.Equal(t, models.IntentNoSearch, res.Intent)
			assert.False(t, o.NeedsSearch())

			text, cand := o.ExecuteSearch(context.Background(), tt.q)
			assert.Empty(t, text)
			assert.Nil(t, cand)
			assert.Zero(t, web.calls.Load())
		})
	}
}

func TestAnalyzeQuestionNormalizesMissingQuery(t *testing.T) {
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentGeneralSearch, MediaRequested: true}}
	o := NewSearchOrchestrator(cls, nil, &stubWeb{}, session.NewMemory(), testOptions())

	analyzed(t, o, "q")
	assert.False(t, o.NeedsSearch())
	assert.True(t, o.MediaRequested())
	assert.Equal(t, models.IntentNoSearch, o.Analysis().Intent)
}

func TestGeneralLookupRetriesThenFails(t *testing.T) {
	web := &stubWeb{summary: "ok", fails: 1}
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentGeneralSearch, Query: "q"}}
	col := metrics.NewCollector()
	opts := testOptions()
	opts.Metrics = col
	o := NewSearchOrchestrator(cls, nil, web, session.NewMemory(), opts)

	analyzed(t, o, "q")
	text, _ := o.ExecuteSearch(context.Background(), "q")
	assert.Contains(t, text, "ok")
	assert.EqualValues(t, 2, web.calls.Load())
	require.NotNil(t, col.Snapshot().WebLookup)

	failing := &stubWeb{fails: 10}
	o = NewSearchOrchestrator(cls, nil, failing, session.NewMemory(), testOptions())
	analyzed(t, o, "q")
	text, cand := o.ExecuteSearch(context.Background(), "q")
	assert.Empty(t, text)
	assert.Nil(t, cand)
	assert.EqualValues(t, 2, failing.calls.Load())
}

func TestGeneralSearchWithoutWebProvider(t *testing.T) {
	cls := &stubClassifier{result: models.AnalysisResult{Intent: models.IntentGeneralSearch, Query: "q"}}
	o := NewSearchOrchestrator(cls, nil, nil, session.NewMemory(), testOptions())

	analyzed(t, o, "q")
	text, cand := o.ExecuteSearch(context.Background(), "q")
	assert.Empty(t, text)
	assert.Nil(t, cand)
}

func TestExecuteSearchBeforeAnalyze(t *testing.T) {
	o := NewSearchOrchestrator(&stubClassifier{}, nil, &stubWeb{}, nil, testOptions())
	text, cand := o.ExecuteSearch(context.Background(), "q")
	assert.Empty(t, text)
	assert.Nil(t, cand)
}
