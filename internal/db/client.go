// Package db provides the SurrealDB-backed conversation store: a reconnecting
// client that owns the session schema, and per-conversation SessionStores.
package db

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/raphaelgruber/scout/internal/config"
)

func init() {
	// WebSocket upgrades fail when wss negotiates HTTP/2 via ALPN.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// Auth levels accepted by Config.AuthLevel.
const (
	AuthRoot     = "root"
	AuthDatabase = "database"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultReconnectAttempts = 10
)

// Config holds connection settings for the session database.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string

	// Zero values pick 5s and 10.
	DialTimeout       time.Duration
	ReconnectAttempts int
}

// ConfigFrom maps application settings to connection settings.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}
}

func (c Config) validate() error {
	if !strings.HasPrefix(c.URL, "ws://") && !strings.HasPrefix(c.URL, "wss://") {
		return fmt.Errorf("surrealdb url must use ws:// or wss://, got %q", c.URL)
	}
	if c.Namespace == "" || c.Database == "" {
		return errors.New("surrealdb namespace and database are required")
	}
	switch c.AuthLevel {
	case "", AuthRoot, AuthDatabase:
	default:
		return fmt.Errorf("surrealdb auth level must be %q or %q, got %q", AuthRoot, AuthDatabase, c.AuthLevel)
	}
	return nil
}

// rpcBaseURL strips the /rpc suffix; gorillaws appends it itself.
func (c Config) rpcBaseURL() string {
	return strings.TrimSuffix(strings.TrimSuffix(c.URL, "/"), "/rpc")
}

// credentials scopes the sign-in to the database for database users and to
// the root otherwise.
func (c Config) credentials() surrealdb.Auth {
	auth := surrealdb.Auth{Username: c.Username, Password: c.Password}
	if c.AuthLevel == AuthDatabase {
		auth.Namespace = c.Namespace
		auth.Database = c.Database
	}
	return auth
}

// Client is a reconnecting connection to the session database.
type Client struct {
	conn *rews.Connection[*gorillaws.Connection]
	db   *surrealdb.DB
	log  *slog.Logger
}

// Open connects, signs in, selects the namespace and applies the session
// schema. The returned client is ready for NewSessionStore.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.AuthLevel == "" {
		cfg.AuthLevel = AuthRoot
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = defaultReconnectAttempts
	}

	sdkLogger := logger.New(log.Handler())
	codec := surrealcbor.New()
	base := cfg.rpcBaseURL()

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			return gorillaws.New(&connection.Config{
				BaseURL:     base,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			}), nil
		},
		cfg.DialTimeout,
		codec,
		sdkLogger,
	)
	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = cfg.ReconnectAttempts
	conn.Retryer = retryer

	log.Info("connecting to session database", "url", cfg.URL, "namespace", cfg.Namespace, "database", cfg.Database)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	c := &Client{conn: conn, log: log}
	if err := c.init(ctx, cfg); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	return c, nil
}

func (c *Client) init(ctx context.Context, cfg Config) error {
	db, err := surrealdb.FromConnection(ctx, c.conn)
	if err != nil {
		return fmt.Errorf("from connection: %w", err)
	}
	if _, err := db.SignIn(ctx, cfg.credentials()); err != nil {
		return fmt.Errorf("signin as %s user: %w", cfg.AuthLevel, err)
	}
	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return fmt.Errorf("use %s/%s: %w", cfg.Namespace, cfg.Database, err)
	}
	c.db = db

	start := time.Now()
	if _, err := surrealdb.Query[any](ctx, db, SchemaSQL, nil); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	c.log.Debug("session schema applied", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Session returns the store for conversationID, creating the conversation
// record for persona when it does not exist yet.
func (c *Client) Session(ctx context.Context, conversationID, persona string, opts ...StoreOption) (*SessionStore, error) {
	s := NewSessionStore(c, conversationID, opts...)
	if _, err := s.EnsureConversation(ctx, persona); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the connection.
func (c *Client) Close(ctx context.Context) error {
	c.log.Info("closing session database connection")
	return c.conn.Close(ctx)
}

// Reset deletes every conversation, turn and shared topic while keeping the
// schema. Tests only.
func (c *Client) Reset(ctx context.Context) error {
	for _, table := range sessionTables {
		if _, err := surrealdb.Query[any](ctx, c.db, "DELETE "+table, nil); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	c.log.Warn("session database reset", "tables", sessionTables)
	return nil
}
