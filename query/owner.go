package query

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Owner identifies the execution context that holds a parameter buffer of
// a shared compiled query. Goroutines that reuse one compiled query each
// carry their own Owner and work on their own copy of its parameters.
type Owner uuid.UUID

// NewOwner returns a new random owner.
func NewOwner() Owner { return Owner(uuid.New()) }

// IsZero reports whether o is the zero owner.
func (o Owner) IsZero() bool { return o == Owner{} }

func (o Owner) String() string { return uuid.UUID(o).String() }

type ownerCtxKey struct{}

// WithOwner returns a context carrying o.
func WithOwner(ctx context.Context, o Owner) context.Context {
	return context.WithValue(ctx, ownerCtxKey{}, o)
}

// OwnerFromContext returns the owner carried by ctx.
func OwnerFromContext(ctx context.Context) (Owner, bool) {
	o, ok := ctx.Value(ownerCtxKey{}).(Owner)
	return o, ok && !o.IsZero()
}

// registry holds the per-owner instances of one compiled query. Every
// instance is created from the same read-only parameter template.
type registry[Q any] struct {
	mu       sync.Mutex
	template []any
	owned    map[Owner]Q
	create   func(o Owner, params []any) Q
}

func newRegistry[Q any](template []any, create func(Owner, []any) Q) *registry[Q] {
	return &registry[Q]{template: template, owned: make(map[Owner]Q), create: create}
}

func (r *registry[Q]) params() []any {
	return append([]any(nil), r.template...)
}

// get returns the instance of o, creating it on first use. The zero
// owner gets a fresh unregistered instance on every call.
func (r *registry[Q]) get(o Owner) Q {
	if o.IsZero() {
		return r.create(o, r.params())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.owned[o]; ok {
		return q
	}
	q := r.create(o, r.params())
	r.owned[o] = q
	return q
}

func (r *registry[Q]) release(o Owner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.owned, o)
}

func (r *registry[Q]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owned)
}
