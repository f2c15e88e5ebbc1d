package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: make(map[string]Account)}
}

func (m *memoryStore) Create(_ context.Context, acc Account) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == normalizeEmail(acc.Email) {
			return User{}, ErrEmailTaken
		}
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	acc.Email = normalizeEmail(acc.Email)
	now := time.Now().UTC()
	acc.CreatedAt, acc.UpdatedAt = now, now
	m.accounts[acc.ID] = acc
	return acc.User, nil
}

func (m *memoryStore) GetByEmail(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if acc.Email == normalizeEmail(email) {
			return acc, nil
		}
	}
	return Account{}, ErrUserNotFound
}

func (m *memoryStore) GetByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return acc.User, nil
}

func (m *memoryStore) List(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]User, 0, len(m.accounts))
	for _, acc := range m.accounts {
		users = append(users, acc.User)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (m *memoryStore) Deactivate(_ context.Context, id string) error {
	return m.update(id, func(acc *Account) { acc.IsActive = false })
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *memoryStore) UpdatePassword(_ context.Context, id, hash string) error {
	return m.update(id, func(acc *Account) { acc.PasswordHash = hash })
}

func (m *memoryStore) update(id string, fn func(*Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return ErrUserNotFound
	}
	fn(&acc)
	acc.UpdatedAt = time.Now().UTC()
	m.accounts[id] = acc
	return nil
}

func (m *memoryStore) hash(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].PasswordHash
}
