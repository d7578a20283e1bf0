package routine

import (
	"fmt"
	"sync"
)

// Spec describes a configured routine.
type Spec struct {
	Selector Selector
	Kind     string
	Path     string
	Args     []string
	Env      []string
}

// Factory builds a Routine from a Spec.
type Factory func(spec Spec) (Routine, error)

var (
	kindMu   sync.RWMutex
	kinds    = map[string]Factory{}
	kindsReg sync.Once
)

func ensureKinds() {
	kindsReg.Do(func() {
		kinds["exec"] = newExec
		kinds["linked"] = newLinked
	})
}

// RegisterKind registers a factory under kind, replacing any previous one.
func RegisterKind(kind string, factory Factory) {
	ensureKinds()

	kindMu.Lock()
	defer kindMu.Unlock()

	kinds[kind] = factory
}

// KnownKind reports whether a factory is registered under kind. The empty
// kind is always known.
func KnownKind(kind string) bool {
	if kind == "" {
		return true
	}
	ensureKinds()

	kindMu.RLock()
	defer kindMu.RUnlock()

	_, ok := kinds[kind]
	return ok
}

// Build creates the routine described by spec. An empty kind means "linked"
// when that selector is compiled in, and "exec" otherwise.
func Build(spec Spec) (Routine, error) {
	ensureKinds()

	kind := spec.Kind
	if kind == "" {
		kind = "exec"
		if _, ok := Linked(spec.Selector); ok {
			kind = "linked"
		}
	}

	kindMu.RLock()
	f, ok := kinds[kind]
	kindMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("routine: %s: unknown kind %q", spec.Selector, kind)
	}

	return f(spec)
}
