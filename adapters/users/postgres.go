package users

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sparksclub/walletauth/core"
	"github.com/sparksclub/walletauth/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const upsertUserQuery = `
INSERT INTO users (id, wallet_address, wallet_kind, role, created_at, last_login_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (wallet_address) DO UPDATE
SET wallet_kind = EXCLUDED.wallet_kind, last_login_at = EXCLUDED.last_login_at
RETURNING id, wallet_address, wallet_kind, username, role, created_at, last_login_at`

const selectUserByIDQuery = `
SELECT id, wallet_address, wallet_kind, username, role, created_at, last_login_at
FROM users WHERE id = $1`

// PostgresStore persists users in PostgreSQL
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresStore wraps an open connection
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// OpenPostgres connects to dsn and applies pending migrations
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresStore(db), nil
}

// Migrate applies the embedded schema migrations
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

var _ ports.UserStore = (*PostgresStore)(nil)

type userRow struct {
	ID            string         `db:"id"`
	WalletAddress string         `db:"wallet_address"`
	WalletKind    string         `db:"wallet_kind"`
	Username      sql.NullString `db:"username"`
	Role          string         `db:"role"`
	CreatedAt     time.Time      `db:"created_at"`
	LastLoginAt   time.Time      `db:"last_login_at"`
}

func (r userRow) toUser() *core.User {
	return &core.User{
		ID:            r.ID,
		WalletAddress: r.WalletAddress,
		WalletKind:    core.WalletKind(r.WalletKind),
		Username:      r.Username.String,
		Role:          r.Role,
		CreatedAt:     r.CreatedAt,
		LastLoginAt:   r.LastLoginAt,
	}
}

// FindOrCreateByWalletAddress upserts on the unique wallet_address column
func (s *PostgresStore) FindOrCreateByWalletAddress(ctx context.Context, address string, kind core.WalletKind) (*core.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, upsertUserQuery,
		uuid.NewString(), address, string(kind), DefaultRole, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return row.toUser(), nil
}

// GetByID returns core.ErrUserNotFound for unknown ids
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*core.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, selectUserByIDQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return row.toUser(), nil
}

// Close closes the underlying connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
