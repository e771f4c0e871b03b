package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

const setClaimsQuery = `SELECT set_config('request.jwt.claims', $1, true), set_config('request.jwt.claim.sub', $2, true)`

// Postgres represents a PostgreSQL database connection
type Postgres struct {
	DB      *sql.DB
	rlsRole string
}

// Querier is the subset of *sql.DB and *sql.Tx used by repositories.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Claims are exposed to row-level security policies through
// current_setting('request.jwt.claims').
type Claims struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role"`
}

// Handle is a request-scoped view of the database. A handle created with
// Scoped runs every call inside a transaction that carries the caller's
// claims and switches to the row-level security role. A handle created with
// Admin runs with the privileges of the connection user.
type Handle struct {
	db     *sql.DB
	claims *Claims
	role   string
}

// NewPostgres creates a new PostgreSQL connection. rlsRole is the role
// scoped handles assume; an empty role keeps the connection user.
func NewPostgres(dsn, rlsRole string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{DB: db, rlsRole: rlsRole}, nil
}

// NewPostgresFromDB wraps an already opened pool.
func NewPostgresFromDB(db *sql.DB, rlsRole string) *Postgres {
	return &Postgres{DB: db, rlsRole: rlsRole}
}

// Close closes the database connection
func (p *Postgres) Close() error {
	return p.DB.Close()
}

// Ping checks if the database is available
func (p *Postgres) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

// Admin returns a handle with service privileges. It is used where no caller
// token exists, such as billing webhooks.
func (p *Postgres) Admin() *Handle {
	return &Handle{db: p.DB}
}

// Scoped returns a handle bound to the caller identified by claims.
func (p *Postgres) Scoped(claims Claims) *Handle {
	if claims.Role == "" {
		claims.Role = "authenticated"
	}
	return &Handle{db: p.DB, claims: &claims, role: p.rlsRole}
}

// IsScoped reports whether the handle carries caller claims.
func (h *Handle) IsScoped() bool {
	return h.claims != nil
}

// Do runs fn against the handle.
func (h *Handle) Do(ctx context.Context, fn func(q Querier) error) error {
	if h.claims == nil {
		return fn(h.db)
	}

	payload, err := json.Marshal(h.claims)
	if err != nil {
		return fmt.Errorf("failed to encode claims: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin scoped transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, setClaimsQuery, string(payload), h.claims.Subject); err != nil {
		return fmt.Errorf("failed to set request claims: %w", err)
	}

	if h.role != "" {
		if _, err := tx.ExecContext(ctx, "SET LOCAL ROLE "+pq.QuoteIdentifier(h.role)); err != nil {
			return fmt.Errorf("failed to assume role %s: %w", h.role, err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scoped transaction: %w", err)
	}
	return nil
}
