package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizdesk/bizdesk/internal/platform/db"
	"github.com/bizdesk/bizdesk/internal/shared"
)

// PGProvider keeps accounts in the usuarios table with bcrypt hashes.
type PGProvider struct {
	pool *pgxpool.Pool
	cost int
}

// NewPGProvider constructs a PostgreSQL provider.
func NewPGProvider(pool *pgxpool.Pool) *PGProvider {
	return &PGProvider{pool: pool, cost: bcrypt.DefaultCost}
}

// SignIn implements Provider.
func (p *PGProvider) SignIn(ctx context.Context, email, password string) (User, error) {
	var (
		user User
		hash string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id::text, email, password_hash FROM usuarios WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email),
	).Scan(&user.ID, &user.Email, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("auth: find user: %w: %v", shared.ErrBackend, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// SignUp implements Provider.
func (p *PGProvider) SignUp(ctx context.Context, email, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return User{}, shared.Invalid("Password", "Senha inválida.")
	}
	var user User
	err = db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM usuarios WHERE lower(email) = lower($1))`, email,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return shared.ErrDuplicate
		}
		return tx.QueryRow(ctx,
			`INSERT INTO usuarios (email, password_hash) VALUES ($1, $2) RETURNING id::text, email`,
			email, string(hash),
		).Scan(&user.ID, &user.Email)
	})
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, shared.ErrDuplicate), errors.As(err, &pgErr) && pgErr.Code == "23505":
		return User{}, fmt.Errorf("auth: sign up: %w", shared.ErrDuplicate)
	default:
		return User{}, fmt.Errorf("auth: sign up: %w: %v", shared.ErrBackend, err)
	}
}

var _ Provider = (*PGProvider)(nil)
