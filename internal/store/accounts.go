package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Account struct {
	ID           string
	Name         string
	PasswordHash string
	CreatedAt    string
}

// CreateAccount stores a new account. Names are unique regardless of case.
func (s *Store) CreateAccount(ctx context.Context, name, passwordHash string) (Account, error) {
	a := Account{ID: uuid.NewString(), Name: name, PasswordHash: passwordHash}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, name, password_hash)
		VALUES (?, ?, ?)
		RETURNING created_at
	`, a.ID, a.Name, a.PasswordHash).Scan(&a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrNameTaken
		}
		return Account{}, fmt.Errorf("inserting account: %w", err)
	}
	return a, nil
}

func (s *Store) AccountByName(ctx context.Context, name string) (Account, error) {
	return s.account(ctx, `WHERE name = ?`, name)
}

func (s *Store) AccountByID(ctx context.Context, id string) (Account, error) {
	return s.account(ctx, `WHERE id = ?`, id)
}

func (s *Store) account(ctx context.Context, where string, arg any) (Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, password_hash, created_at FROM accounts `+where, arg,
	).Scan(&a.ID, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("loading account: %w", err)
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
