package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/lastbite/internal/cart"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createStateTable = `
CREATE TABLE IF NOT EXISTS client_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// CartIDStore persists the storefront's cart identifier in PostgreSQL. It
// implements cart.IDStore.
type CartIDStore struct {
	pool   *pgxpool.Pool
	key    string
	logger apt.Logger
	config *apt.Config
}

var _ cart.IDStore = (*CartIDStore)(nil)

func NewCartIDStore(config *apt.Config, logger apt.Logger) *CartIDStore {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &CartIDStore{
		key:    config.GetStringOrDef("store.key", cart.DefaultStoreKey),
		logger: logger,
		config: config,
	}
}

// Start opens the pool and makes sure the state table exists.
func (s *CartIDStore) Start(ctx context.Context) error {
	connStr, _ := s.config.GetString("db.postgres.url")
	if connStr == "" {
		connStr = "postgres://postgres@localhost:5432/lastbite"
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return fmt.Errorf("cannot create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("cannot ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createStateTable); err != nil {
		pool.Close()
		return fmt.Errorf("cannot create client_state table: %w", err)
	}

	s.pool = pool
	s.logger.Info("Connected to PostgreSQL", "table", "client_state")
	return nil
}

func (s *CartIDStore) Stop(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("Disconnected from PostgreSQL")
	}
	return nil
}

func (s *CartIDStore) Load(ctx context.Context) (string, bool, error) {
	if s.pool == nil {
		return "", false, errors.New("cart id store not started")
	}

	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM client_state WHERE key = $1`, s.key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("could not load cart id: %w", err)
	}
	return value, value != "", nil
}

func (s *CartIDStore) Save(ctx context.Context, cartID string) error {
	if s.pool == nil {
		return errors.New("cart id store not started")
	}
	if cartID == "" {
		return errors.New("cart id is required")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO client_state (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			value = $2,
			updated_at = now()`,
		s.key, cartID,
	)
	if err != nil {
		return fmt.Errorf("could not save cart id: %w", err)
	}
	return nil
}
