// Package plugin defines the plugin contract and loads registered plugins
// into the bot's dispatch table.
//
// Plugins register a factory from init, the same way database/sql drivers
// do, and the binary blank-imports internal/plugins/all:
//
//	func init() {
//		plugin.Register("ping", func(d plugin.Deps) (plugin.Plugin, error) {
//			return &Ping{deps: d}, nil
//		})
//	}
//
// Every hook is optional. A plugin that fails to build, set up or pass its
// self-test is logged at error level and skipped; the others still load.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/ai"
	"github.com/edgard/lunabot/internal/config"
	"github.com/edgard/lunabot/internal/content"
	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/logger"
)

// ErrDuplicate is returned when a plugin claims a name already taken.
var ErrDuplicate = errors.New("duplicate registration")

// Plugin is the minimal plugin contract.
type Plugin interface {
	Name() string
}

// Setupper is implemented by plugins that register handlers.
type Setupper interface {
	Setup(r *Registrar) error
}

// Describer is implemented by plugins listed in the help menu.
type Describer interface {
	Info() Info
}

// Tester is implemented by plugins with a startup self-test.
type Tester interface {
	Test(ctx context.Context) error
}

// Closer is implemented by plugins that own background work. Close is
// called once on shutdown.
type Closer interface {
	Close(ctx context.Context) error
}

// Info describes a plugin in the help menu.
type Info struct {
	Name        string
	Description string
	Commands    []string
}

// Handler is a plugin update handler. Returned errors are logged by Guard.
type Handler func(ctx context.Context, b *tgbot.Bot, update *models.Update) error

// TaskFunc is a periodic plugin task.
type TaskFunc func(ctx context.Context) error

// Scheduler runs delayed one-shot jobs.
type Scheduler interface {
	After(delay time.Duration, name string, fn func(ctx context.Context)) error
}

// Deps are the dependencies handed to plugin factories.
type Deps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	AI        ai.Client
	Scheduler Scheduler
	Catalog   *Catalog
	Content   *content.Texts
	BotInfo   *models.User
	Support   logger.Notifier
}

// Factory builds a plugin.
type Factory func(deps Deps) (Plugin, error)

// Registry holds plugin factories by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. It panics on an empty name, a nil factory or a
// duplicate name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		panic("plugin: Register called with empty name")
	}
	if factory == nil {
		panic("plugin: Register factory is nil for " + name)
	}
	if _, dup := r.factories[name]; dup {
		panic(fmt.Sprintf("plugin: Register called twice for %s", name))
	}
	r.factories[name] = factory
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) factory(name string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[name]
}

var defaultRegistry = NewRegistry()

// Default returns the registry that Register writes to.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a factory to the default registry.
func Register(name string, factory Factory) {
	defaultRegistry.Register(name, factory)
}

// Registered returns the names in the default registry.
func Registered() []string {
	return defaultRegistry.Names()
}

// Load loads every plugin of the default registry.
func Load(ctx context.Context, deps Deps, opts Options) (*LoadResult, error) {
	return defaultRegistry.Load(ctx, deps, opts)
}
