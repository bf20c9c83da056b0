package auth

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"
)

type Account struct {
	Email        string
	PasswordHash string
	Role         string
	Name         string
	Department   string
	IsDisabled   bool
	CreatedAt    time.Time
}

type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	Delete(ctx context.Context, email string) (int64, error)
	List(ctx context.Context) ([]Account, error)
}

// ---------- SQL ----------

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) AccountStore {
	return &Store{db: db}
}

// 見つからない場合は (nil, nil)
func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	const q = `
SELECT email, password_hash, role, name, department, is_disabled, created_at
FROM auth_accounts
WHERE email = ?
LIMIT 1
`
	var a Account
	var isDisabledInt int
	err := s.db.QueryRowContext(ctx, q, email).Scan(
		&a.Email,
		&a.PasswordHash,
		&a.Role,
		&a.Name,
		&a.Department,
		&isDisabledInt,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.IsDisabled = isDisabledInt != 0
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO auth_accounts (email, password_hash, role, name, department, is_disabled, created_at)
VALUES (?, ?, ?, ?, ?, 0, ?)
`
	_, err := s.db.ExecContext(ctx, q, a.Email, a.PasswordHash, a.Role, a.Name, a.Department, a.CreatedAt.UTC())
	return err
}

func (s *Store) Delete(ctx context.Context, email string) (int64, error) {
	const q = `DELETE FROM auth_accounts WHERE email = ?`
	res, err := s.db.ExecContext(ctx, q, email)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) List(ctx context.Context) ([]Account, error) {
	const q = `
SELECT email, password_hash, role, name, department, is_disabled, created_at
FROM auth_accounts
ORDER BY email
`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		var isDisabledInt int
		if err := rows.Scan(&a.Email, &a.PasswordHash, &a.Role, &a.Name, &a.Department, &isDisabledInt, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.IsDisabled = isDisabledInt != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---------- memory ----------

// MemoryStore は storage.driver=memory とテスト用
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]Account)}
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[email]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MemoryStore) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.Email]; ok {
		return ErrAlreadyExists
	}
	m.accounts[a.Email] = *a
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[email]; !ok {
		return 0, nil
	}
	delete(m.accounts, email)
	return 1, nil
}

func (m *MemoryStore) List(_ context.Context) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
