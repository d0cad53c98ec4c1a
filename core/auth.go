package core

import (
	"context"
	"fmt"
	"strings"
)

// AuthService defines registration and login behaviour.
type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error)
}

// RepositoryAuthService implements AuthService on a credential repository, a hasher and a token issuer.
type RepositoryAuthService struct {
	users  CredentialRepository
	hasher PasswordHasher
	tokens *TokenIssuer
}

func NewRepositoryAuthService(users CredentialRepository, hasher PasswordHasher, tokens *TokenIssuer) *RepositoryAuthService {
	return &RepositoryAuthService{users: users, hasher: hasher, tokens: tokens}
}

// Register stores a new credential. It fails with ErrDuplicateUser when the username exists.
func (s *RepositoryAuthService) Register(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return ErrInvalidInput
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateUser
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.Create(ctx, username, hash)
}

// Login checks the password and returns a signed session token.
// Unknown usernames fail with ErrNotRegistered, mismatches with ErrWrongPassword.
func (s *RepositoryAuthService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrNotRegistered
	}

	ok, err := s.hasher.Verify(u.PasswordHash, password)
	if err != nil {
		return "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", ErrWrongPassword
	}

	token, err := s.tokens.Issue(u.Username)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
