package contextid

import (
	"context"
	"fmt"
	"sort"

	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
)

// HistoryWriter writes an edited history entry back into its scene.
// history.Engine satisfies it.
type HistoryWriter interface {
	UpdateHistoryEntry(ctx context.Context, sc *scene.Scene, entry model.HistoryEntry) error
}

// Env is what handlers resolve against.
type Env struct {
	Scene *scene.Scene
	// History, when set, receives history entry edits so derived state such
	// as the memory index follows. Without it edits go straight to the scene.
	History HistoryWriter
}

// Handler resolves the paths of one context id type.
type Handler interface {
	Type() string
	Resolve(env Env, id ID) (*Item, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	Kind string
	Fn   func(env Env, id ID) (*Item, error)
}

func (h HandlerFunc) Type() string { return h.Kind }

func (h HandlerFunc) Resolve(env Env, id ID) (*Item, error) { return h.Fn(env, id) }

// Registry maps context id types to handlers.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// DefaultRegistry returns a registry with every built-in handler.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, h := range builtinHandlers() {
		if err := r.Register(h); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds h. Registering a type twice is an error.
func (r *Registry) Register(h Handler) error {
	if _, ok := r.handlers[h.Type()]; ok {
		return fmt.Errorf("context id type %q already registered", h.Type())
	}
	r.handlers[h.Type()] = h
	return nil
}

// Types lists the registered types in order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Resolve parses s and returns the item it addresses. Successful lookups
// are recorded in the scan collector carried by ctx, if any.
func (r *Registry) Resolve(ctx context.Context, env Env, s string) (*Item, error) {
	id, err := Parse(s)
	if err != nil {
		return nil, err
	}
	h, ok := r.handlers[id.Type]
	if !ok {
		return nil, &Error{ID: s, Err: ErrNoHandlerFound}
	}
	if env.Scene == nil {
		return nil, &Error{ID: s, Err: ErrItemNotFound}
	}
	item, err := h.Resolve(env, id)
	if err != nil {
		return nil, &Error{ID: s, Err: err}
	}
	if c := CollectorFrom(ctx); c != nil {
		c.Record(item.ID)
	}
	return item, nil
}
