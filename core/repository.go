package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// CredentialRecord is a stored username with its password hash.
type CredentialRecord struct {
	Username     string
	PasswordHash string
}

// CredentialRepository defines persistence operations for credentials.
type CredentialRepository interface {
	// FindByUsername returns nil without error when the username is unknown.
	FindByUsername(ctx context.Context, username string) (*CredentialRecord, error)
	// Create returns ErrDuplicateUser when the username is already taken.
	Create(ctx context.Context, username, passwordHash string) error
}

// PgCredentialRepository implements CredentialRepository on the register table.
type PgCredentialRepository struct {
	db *pgxpool.Pool
}

func NewPgCredentialRepository(db *pgxpool.Pool) *PgCredentialRepository {
	return &PgCredentialRepository{db: db}
}

func (r *PgCredentialRepository) FindByUsername(ctx context.Context, username string) (*CredentialRecord, error) {
	const q = `SELECT usuario, senha FROM register WHERE usuario=$1`
	var u CredentialRecord
	if err := r.db.QueryRow(ctx, q, username).Scan(&u.Username, &u.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return &u, nil
}

func (r *PgCredentialRepository) Create(ctx context.Context, username, passwordHash string) error {
	const q = `INSERT INTO register (usuario, senha) VALUES ($1,$2)`
	if _, err := r.db.Exec(ctx, q, username, passwordHash); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateUser
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// MemoryCredentialRepository keeps credentials in process memory.
type MemoryCredentialRepository struct {
	mu    sync.RWMutex
	users map[string]string
}

func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{users: make(map[string]string)}
}

func (r *MemoryCredentialRepository) FindByUsername(_ context.Context, username string) (*CredentialRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hash, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	return &CredentialRecord{Username: username, PasswordHash: hash}, nil
}

func (r *MemoryCredentialRepository) Create(_ context.Context, username, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; ok {
		return ErrDuplicateUser
	}
	r.users[username] = passwordHash
	return nil
}
