package funchain

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Registry errors.
var (
	ErrNameTaken   = errors.New("name is already registered")
	ErrInvalidName = errors.New("invalid chain name")
)

// validSegment accepts one dotted-name segment: a letter followed by word
// characters, with optional single "_" or "-" separators.
var validSegment = regexp.MustCompile(`(?i)^[a-z](?:\w+[_-]?)*?$`)

// registry holds chains published under dot-separated hierarchical names.
// Values are stored untyped because chains of different element types share
// one namespace; Lookup recovers the concrete type.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]any)
)

// Register publishes chain under its own name so distant parts of a program
// can Lookup it instead of threading the value through. Registration is
// always explicit: building a chain never registers it.
//
// Names are hierarchical: "app.orders.normalize" lives under the
// "app.orders" group. Each dot-separated segment must start with a letter
// and contain only letters, digits, underscores, and hyphens. Register
// rejects names already taken, including conflicts across levels: once
// "app.orders" names a chain, nothing can register below it, and once
// anything lives under "app.orders", that name cannot name a chain.
//
// Returned errors wrap ErrInvalidName or ErrNameTaken.
func Register[T any](chain *Chain[T]) error {
	name := chain.Name()
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	segments := strings.Split(name, ".")
	for _, segment := range segments {
		if !validSegment.MatchString(segment) {
			return fmt.Errorf("%w: segment %q in %q", ErrInvalidName, segment, name)
		}
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		return fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	for registered := range registry {
		if strings.HasPrefix(registered, name+".") {
			return fmt.Errorf("%w: %q is a group containing %q", ErrNameTaken, name, registered)
		}
		if strings.HasPrefix(name, registered+".") {
			return fmt.Errorf("%w: %q is registered as a chain, not a group", ErrNameTaken, registered)
		}
	}

	registry[name] = chain
	return nil
}

// MustRegister is Register panicking on error, for registrations fixed at
// compile time, typically in package init.
func MustRegister[T any](chain *Chain[T]) {
	if err := Register(chain); err != nil {
		panic(err)
	}
}

// Lookup retrieves a registered chain by its full name. The second return
// is false when no chain is registered under name or when the registered
// chain's element type is not T.
func Lookup[T any](name Name) (*Chain[T], bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	chain, ok := registry[name].(*Chain[T])
	return chain, ok
}

// Names returns the registered names under prefix, sorted. An empty prefix
// returns every registered name; otherwise a name matches when it equals
// prefix or lives below it ("app" matches "app" and "app.orders.normalize"
// but not "application").
func Names(prefix string) []Name {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var names []Name
	for name := range registry {
		if prefix == "" || name == prefix || strings.HasPrefix(name, prefix+".") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Unregister removes the chain registered under name, reporting whether
// one was there.
func Unregister(name Name) bool {
	registryMu.Lock()
	defer registryMu.Unlock()

	_, ok := registry[name]
	delete(registry, name)
	return ok
}
