//go:build integration

package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/raphaelgruber/scout/internal/metrics"
	"github.com/raphaelgruber/scout/internal/models"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = Open(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func newStore(t *testing.T, opts ...StoreOption) *SessionStore {
	t.Helper()
	s, err := testDB.Session(context.Background(), uuid.NewString(), "Mina", opts...)
	require.NoError(t, err)
	return s
}

func TestEnsureConversation(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(testDB, uuid.NewString())

	_, err := s.GetConversation(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := s.EnsureConversation(ctx, "Mina")
	require.NoError(t, err)
	assert.Equal(t, "Mina", first.Persona)

	id, err := models.RecordIDString(first.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ConversationID(), id)

	again, err := s.EnsureConversation(ctx, "Jun")
	require.NoError(t, err)
	assert.Equal(t, "Jun", again.Persona)
	assert.True(t, again.CreatedAt.Equal(first.CreatedAt), "created_at survives upsert")

	got, err := s.GetConversation(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jun", got.Persona)
}

func TestAppendAndRecentTurns(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	for i := range 6 {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		require.NoError(t, s.AppendTurn(ctx, models.Turn{
			Role:      role,
			Content:   fmt.Sprintf("turn %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := s.RecentTurns(ctx, 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "turn 2", got[0].Content)
	assert.Equal(t, "turn 5", got[3].Content)
	assert.Equal(t, models.RoleAssistant, got[3].Role)
	assert.Equal(t, s.ConversationID(), got[0].ConversationID)
	assert.NotEmpty(t, got[0].ID)

	none, err := s.RecentTurns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTurnsAreScopedToConversation(t *testing.T) {
	ctx := context.Background()
	a, b := newStore(t), newStore(t)

	require.NoError(t, a.AppendTurn(ctx, models.Turn{Role: models.RoleUser, Content: "only in a"}))

	got, err := b.RecentTurns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSocialCooldownWindow(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	published := base.Add(-48 * time.Hour)

	require.NoError(t, s.AppendTurn(ctx, models.Turn{
		Role:    models.RoleAssistant,
		Content: "look at this",
		Social: &models.Candidate{
			Platform:    models.PlatformVideo,
			URL:         "https://www.youtube.com/watch?v=abc",
			Title:       "vlog",
			PublishedAt: &published,
		},
		CreatedAt: base,
	}))

	has, err := s.HasSocialContentInLastNTurns(ctx, 10)
	require.NoError(t, err)
	assert.True(t, has)

	recent, err := s.RecentTurns(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, recent[0].Social)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", recent[0].Social.URL)
	assert.Equal(t, models.PlatformVideo, recent[0].Social.Platform)

	for i := range 10 {
		require.NoError(t, s.AppendTurn(ctx, models.Turn{
			Role:      models.RoleUser,
			Content:   "hm",
			CreatedAt: base.Add(time.Duration(i+1) * time.Minute),
		}))
	}

	has, err = s.HasSocialContentInLastNTurns(ctx, 10)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSharedTopics(t *testing.T) {
	ctx := context.Background()
	col := metrics.NewCollector()
	s := newStore(t, WithMetrics(col))

	require.NoError(t, s.RecordSharedTopic(ctx, "seongsu cafe"))
	require.NoError(t, s.RecordSharedTopic(ctx, "seongsu cafe"))
	require.NoError(t, s.RecordSharedTopic(ctx, "  "))
	require.NoError(t, s.RecordSharedTopic(ctx, "han river picnic"))

	got, err := s.SharedTopics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"seongsu cafe", "han river picnic"}, got)

	snap := col.Snapshot()
	require.NotNil(t, snap.SessionQuery)
	assert.Positive(t, snap.SessionQuery.Count)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.AppendTurn(ctx, models.Turn{Role: models.RoleUser, Content: "x"}))

	require.NoError(t, testDB.Reset(ctx))

	got, err := s.RecentTurns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
