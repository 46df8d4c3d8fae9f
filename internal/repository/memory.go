package repository

import (
	"context"
	"sync"
	"time"

	"github.com/mmeshcher/shipping-admin/internal/model"
)

// MemoryStore хранит сеансы в памяти процесса.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]model.Session)}
}

// Save сохраняет копию сеанса.
func (m *MemoryStore) Save(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

// Get возвращает копию сеанса.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// Delete удаляет сеанс.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// DeleteExpired удаляет сеансы, срок действия которых истёк до указанного момента.
func (m *MemoryStore) DeleteExpired(_ context.Context, before time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, s := range m.sessions {
		if s.Expired(before) {
			ids = append(ids, id)
			delete(m.sessions, id)
		}
	}
	return ids, nil
}

// Close ничего не делает и нужен для единообразия с другими хранилищами.
func (m *MemoryStore) Close() error { return nil }
