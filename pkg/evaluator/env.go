package evaluator

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrRedeclared is wrapped by Declare when the name is already bound in the same scope.
	ErrRedeclared = errors.New("already declared in this scope")
	// ErrUndefined is wrapped by Assign and Lookup when no scope binds the name.
	ErrUndefined = errors.New("undefined variable")
)

// Env is a scoped environment for variable bindings.
// Lookup walks the parent chain; the global scope has no parent.
type Env struct {
	bindings map[string]Value
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]Value),
		parent:   parent,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Parent returns the enclosing scope, or nil for the global scope.
func (e *Env) Parent() *Env {
	return e.parent
}

// Depth returns the number of scopes above this one.
func (e *Env) Depth() int {
	d := 0
	for p := e.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Declare binds name in this scope. Names bound in enclosing scopes may be
// shadowed; a second declaration in the same scope fails.
func (e *Env) Declare(name string, val Value) error {
	if _, ok := e.bindings[name]; ok {
		return fmt.Errorf("variable '%s' %w (use = to update)", name, ErrRedeclared)
	}
	e.bindings[name] = val
	return nil
}

// Assign rebinds the nearest scope that declares name.
func (e *Env) Assign(name string, val Value) error {
	for s := e; s != nil; s = s.parent {
		if _, ok := s.bindings[name]; ok {
			s.bindings[name] = val
			return nil
		}
	}
	return fmt.Errorf("cannot assign to '%s': %w (declare it first with :=)", name, ErrUndefined)
}

// Lookup resolves name from this scope outward.
func (e *Env) Lookup(name string) (Value, error) {
	for s := e; s != nil; s = s.parent {
		if val, ok := s.bindings[name]; ok {
			return val, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUndefined, name)
}

// Local returns the binding for name in this scope only.
func (e *Env) Local(name string) (Value, bool) {
	val, ok := e.bindings[name]
	return val, ok
}

// Names returns the names bound in this scope, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
