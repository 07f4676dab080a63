// Package di provides a minimal service container with typed tokens.
// Factories are registered per token and resolved lazily, memoized on
// first access.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get returns a registered value or resolved token instance by name.
	// Panics if the name is unknown (missing registrations are wiring bugs).
	Get(name string) any
}

// Container is the write side: values and token factories are registered
// during application startup.
type Container interface {
	ServiceRegistry
	Register(name string, value any)
	registerFactory(name string, factory func(ServiceRegistry) any)
}

// Token identifies a typed service registration.
type Token[T any] struct {
	name string
}

// NewToken creates a token with a unique name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registration name of the token.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a typed factory for the token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.registerFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves the token's instance from the registry.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	v, ok := sr.Get(token.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: token %q resolved to unexpected type", token.name))
	}
	return v
}

type container struct {
	mu        sync.Mutex
	values    map[string]any
	factories map[string]func(ServiceRegistry) any
	resolving map[string]bool
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		values:    make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
		resolving: make(map[string]bool),
	}
}

func (c *container) Register(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

func (c *container) registerFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[name]; exists {
		panic(fmt.Sprintf("di: duplicate registration for %q", name))
	}
	c.factories[name] = factory
}

func (c *container) Get(name string) any {
	c.mu.Lock()
	if v, ok := c.values[name]; ok {
		c.mu.Unlock()
		return v
	}
	factory, ok := c.factories[name]
	if !ok {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: no registration for %q", name))
	}
	if c.resolving[name] {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: circular dependency resolving %q", name))
	}
	c.resolving[name] = true
	c.mu.Unlock()

	v := factory(c)

	c.mu.Lock()
	c.values[name] = v
	delete(c.resolving, name)
	c.mu.Unlock()

	return v
}
