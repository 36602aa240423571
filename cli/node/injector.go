package node

import (
	"reflect"
	"sync"

	"golang.org/x/xerrors"
)

// registry is the dependency injector shared by the controllers and the
// actions. A request is served by the dependency of the exact same type when
// there is one, otherwise by the earliest injected dependency assignable to it,
// which makes the resolution of interfaces deterministic.
//
// - implements node.Injector
type registry struct {
	sync.RWMutex
	deps []interface{}
}

// NewInjector returns an empty injector.
func NewInjector() Injector {
	return &registry{}
}

// Resolve implements node.Injector. It expects a non-nil pointer and sets the
// value it points to.
func (r *registry) Resolve(v interface{}) error {
	ptr := reflect.ValueOf(v)
	if ptr.Kind() != reflect.Ptr {
		return xerrors.New("expect a pointer")
	}

	target := ptr.Elem()
	if !target.IsValid() {
		return xerrors.Errorf("reflect value '%v' is invalid", ptr)
	}

	r.RLock()
	defer r.RUnlock()

	var found interface{}

	for _, dep := range r.deps {
		typ := reflect.TypeOf(dep)

		if typ == target.Type() {
			found = dep
			break
		}

		if found == nil && typ.AssignableTo(target.Type()) {
			found = dep
		}
	}

	if found == nil {
		return xerrors.Errorf("couldn't find dependency for '%v'", target.Type())
	}

	target.Set(reflect.ValueOf(found))

	return nil
}

// Inject implements node.Injector. A dependency of a type already injected
// replaces the previous one.
func (r *registry) Inject(v interface{}) {
	if v == nil {
		return
	}

	r.Lock()
	defer r.Unlock()

	for i, dep := range r.deps {
		if reflect.TypeOf(dep) == reflect.TypeOf(v) {
			r.deps[i] = v
			return
		}
	}

	r.deps = append(r.deps, v)
}
