package orchestrator

import (
	"showservice/internal/model"
	"showservice/internal/retry"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Route binds a queue to the handler that consumes it
type Route struct {
	Queue     string
	Operation model.OperationType
	Handler   retry.Handler
}

// Registry is a central registry of queue handlers
type Registry struct {
	routes map[string]Route
	mu     sync.RWMutex
}

func NewRegistry(routes ...Route) *Registry {
	registry := &Registry{
		routes: make(map[string]Route),
	}

	for _, route := range routes {
		registry.Register(route)
	}

	return registry
}

// Register adds or replaces the route for a queue
func (r *Registry) Register(route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[route.Queue] = route

	log.Info().
		Str("queue", route.Queue).
		Str("operationType", string(route.Operation)).
		Msg("Registered queue handler")
}

// Get retrieves the route for a queue
func (r *Registry) Get(queue string) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	route, exists := r.routes[queue]
	return route, exists
}

// Queues returns every registered queue name, sorted
func (r *Registry) Queues() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	queues := make([]string, 0, len(r.routes))
	for queue := range r.routes {
		queues = append(queues, queue)
	}
	sort.Strings(queues)

	return queues
}
