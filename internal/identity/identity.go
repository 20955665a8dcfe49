// Package identity issues and verifies session tokens for guests and
// registered accounts.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/coup/internal/game"
	"github.com/playperu/coup/internal/store"
)

var (
	ErrInvalidToken       = errors.New("invalid session token")
	ErrInvalidCredentials = errors.New("invalid name or password")
	ErrInvalidName        = errors.New("name must be 1-24 characters")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

const (
	issuer         = "coup"
	maxNameLength  = 24
	minPasswordLen = 8
)

// Accounts is the slice of the store the service needs.
type Accounts interface {
	CreateAccount(ctx context.Context, name, passwordHash string) (store.Account, error)
	AccountByName(ctx context.Context, name string) (store.Account, error)
}

type Service struct {
	accounts Accounts
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewService(accounts Accounts, secret string, ttl time.Duration) *Service {
	return &Service{accounts: accounts, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Session is a signed token and the identity it carries.
type Session struct {
	Token    string        `json:"token"`
	Identity game.Identity `json:"identity"`
}

type claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Guest bool   `json:"guest,omitempty"`
}

// Guest mints a throwaway identity. Guests never accumulate lifetime stats.
func (s *Service) Guest(name string) (Session, error) {
	name, err := cleanName(name)
	if err != nil {
		return Session{}, err
	}
	return s.issue(game.Identity{ID: "guest-" + uuid.NewString(), Name: name, Guest: true})
}

func (s *Service) Register(ctx context.Context, name, password string) (Session, error) {
	name, err := cleanName(name)
	if err != nil {
		return Session{}, err
	}
	if len(password) < minPasswordLen {
		return Session{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hashing password: %w", err)
	}
	a, err := s.accounts.CreateAccount(ctx, name, string(hash))
	if err != nil {
		return Session{}, err
	}
	return s.issue(game.Identity{ID: a.ID, Name: a.Name})
}

func (s *Service) Login(ctx context.Context, name, password string) (Session, error) {
	a, err := s.accounts.AccountByName(ctx, strings.TrimSpace(name))
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(game.Identity{ID: a.ID, Name: a.Name})
}

// Resolve verifies a token and returns the identity it was issued for.
func (s *Service) Resolve(token string) (game.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return game.Identity{}, ErrInvalidToken
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || c.Subject == "" {
		return game.Identity{}, ErrInvalidToken
	}
	return game.Identity{ID: c.Subject, Name: c.Name, Guest: c.Guest}, nil
}

func (s *Service) issue(id game.Identity) (Session, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name:  id.Name,
		Guest: id.Guest,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("signing token: %w", err)
	}
	return Session{Token: token, Identity: id}, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
