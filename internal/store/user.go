package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (name, api_key_hash) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		u.Name, u.APIKeyHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *UserStore) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, api_key_hash, created_at, updated_at
		 FROM users WHERE api_key_hash = $1`,
		apiKeyHash,
	).Scan(&u.ID, &u.Name, &u.APIKeyHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
