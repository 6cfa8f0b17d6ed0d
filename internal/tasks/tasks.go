// Package tasks holds the task functions the worker binary can run.
package tasks

import (
	"errors"
	"fmt"
	"sort"

	"redis-queue-executor/internal/queue"
)

// ErrUnknownHandler is returned by Registry.Get for an unregistered name.
var ErrUnknownHandler = errors.New("unknown task handler")

// Registry maps handler names to task functions.
type Registry struct {
	handlers map[string]queue.TaskFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]queue.TaskFunc)}
}

func (r *Registry) Register(name string, fn queue.TaskFunc) {
	r.handlers[name] = fn
}

func (r *Registry) Get(name string) (queue.TaskFunc, error) {
	fn, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandler, name)
	}
	return fn, nil
}

// Names returns the registered handler names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
