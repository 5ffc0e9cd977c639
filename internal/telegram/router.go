package telegram

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Listener receives updates that no command or callback handler claimed.
// Observers use the same type and see every update.
type Listener struct {
	Owner   string
	Name    string
	Match   func(*models.Update) bool
	Handler bot.HandlerFunc
}

// Router fans out updates to listeners and observers. The SDK runs only the
// first matching handler, so every matching listener is run from the default
// handler and observers run from a middleware before dispatch.
type Router struct {
	mu        sync.RWMutex
	listeners []Listener
	observers []Listener
	log       *slog.Logger
}

// NewRouter creates an empty Router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{log: logger.With("component", "router")}
}

// AddListener appends a listener.
func (r *Router) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
	r.log.Debug("Added listener", "owner", l.Owner, "name", l.Name)
}

// AddObserver appends an observer.
func (r *Router) AddObserver(o Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
	r.log.Debug("Added observer", "owner", o.Owner, "name", o.Name)
}

// DefaultHandler runs every listener whose Match accepts the update.
func (r *Router) DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	r.mu.RLock()
	listeners := r.listeners
	r.mu.RUnlock()

	for _, l := range listeners {
		if l.Match != nil && !l.Match(update) {
			continue
		}
		l.Handler(ctx, b, update)
	}
}

// Middleware runs every observer before passing the update on.
func (r *Router) Middleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		r.mu.RLock()
		observers := r.observers
		r.mu.RUnlock()

		for _, o := range observers {
			if o.Match != nil && !o.Match(update) {
				continue
			}
			o.Handler(ctx, b, update)
		}
		next(ctx, b, update)
	}
}
