package order

import (
	"sync"

	"github.com/mmeshcher/shipping-admin/internal/model"
)

// Factory создаёт контроллер для нового сеанса.
type Factory func(s *model.Session) *Controller

// Registry хранит контроллеры заказов по идентификатору сеанса.
type Registry struct {
	factory Factory

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:     factory,
		controllers: make(map[string]*Controller),
	}
}

// Get возвращает контроллер сеанса, создавая его при первом обращении.
func (r *Registry) Get(s *model.Session) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[s.ID]; ok {
		return c
	}
	c := r.factory(s)
	r.controllers[s.ID] = c
	return c
}

// Drop удаляет состояние экрана сеанса. Вызывается при уничтожении сеанса.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.controllers, sessionID)
}

// Len возвращает число активных контроллеров.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// IDs возвращает идентификаторы сеансов, для которых есть контроллер.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.controllers))
	for id := range r.controllers {
		ids = append(ids, id)
	}
	return ids
}
