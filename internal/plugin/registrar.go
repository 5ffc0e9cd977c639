package plugin

import (
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/telegram"
)

type route struct {
	kind       telegram.HandlerKind
	pattern    string
	handler    Handler
	middleware []tgbot.Middleware
}

type listener struct {
	name    string
	match   func(*models.Update) bool
	handler Handler
}

// Task is a periodic job contributed by a plugin. Schedule is used when
// scheduler.tasks has no entry for Name.
type Task struct {
	Owner    string
	Name     string
	Schedule string
	Fn       TaskFunc
}

// Registrar collects the handlers of one plugin during Setup. Nothing is
// reachable until the loader commits it.
type Registrar struct {
	plugin    string
	routes    []route
	listeners []listener
	observers []listener
	tasks     []Task
	err       error
}

func newRegistrar(plugin string) *Registrar {
	return &Registrar{plugin: plugin}
}

func (r *Registrar) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *Registrar) addRoute(kind telegram.HandlerKind, pattern string, h Handler, mw []tgbot.Middleware) {
	if pattern == "" {
		r.fail("%s handler with empty pattern", kind)
		return
	}
	if h == nil {
		r.fail("%s handler %q is nil", kind, pattern)
		return
	}
	for _, existing := range r.routes {
		if conflicts(existing.kind, existing.pattern, kind, pattern) {
			r.fail("%w: %s %q overlaps %s %q", ErrDuplicate, kind, pattern, existing.kind, existing.pattern)
			return
		}
	}
	r.routes = append(r.routes, route{kind: kind, pattern: pattern, handler: h, middleware: mw})
}

// Command binds a /name command.
func (r *Registrar) Command(name string, h Handler, mw ...tgbot.Middleware) {
	r.addRoute(telegram.KindCommand, strings.ToLower(strings.TrimPrefix(name, "/")), h, mw)
}

// Callback binds callback data starting with prefix.
func (r *Registrar) Callback(prefix string, h Handler, mw ...tgbot.Middleware) {
	r.addRoute(telegram.KindCallbackPrefix, prefix, h, mw)
}

// CallbackExact binds callback data equal to data.
func (r *Registrar) CallbackExact(data string, h Handler, mw ...tgbot.Middleware) {
	r.addRoute(telegram.KindCallbackExact, data, h, mw)
}

// Message adds a listener for updates no command or callback claimed.
// A nil match accepts every such update.
func (r *Registrar) Message(name string, match func(*models.Update) bool, h Handler) {
	if h == nil {
		r.fail("listener %q is nil", name)
		return
	}
	r.listeners = append(r.listeners, listener{name: name, match: match, handler: h})
}

// Observe adds a handler that sees every update before dispatch.
func (r *Registrar) Observe(name string, h Handler) {
	if h == nil {
		r.fail("observer %q is nil", name)
		return
	}
	r.observers = append(r.observers, listener{name: name, handler: h})
}

// Task adds a periodic job.
func (r *Registrar) Task(name, schedule string, fn TaskFunc) {
	if name == "" || fn == nil {
		r.fail("task %q is incomplete", name)
		return
	}
	r.tasks = append(r.tasks, Task{Owner: r.plugin, Name: name, Schedule: schedule, Fn: fn})
}

// Err returns the first registration error.
func (r *Registrar) Err() error {
	return r.err
}

// conflicts reports whether two routes could claim the same update.
// Overlapping callbacks are rejected because the SDK does not order handlers.
func conflicts(kindA telegram.HandlerKind, a string, kindB telegram.HandlerKind, b string) bool {
	if (kindA == telegram.KindCommand) != (kindB == telegram.KindCommand) {
		return false
	}
	if kindA == telegram.KindCommand {
		return a == b
	}
	switch {
	case kindA == telegram.KindCallbackExact && kindB == telegram.KindCallbackExact:
		return a == b
	case kindA == telegram.KindCallbackPrefix && kindB == telegram.KindCallbackPrefix:
		return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
	case kindA == telegram.KindCallbackPrefix:
		return strings.HasPrefix(b, a)
	default:
		return strings.HasPrefix(a, b)
	}
}

// Table is the committed dispatch table of all loaded plugins.
type Table struct {
	Handlers  []telegram.RegisteredHandler
	Listeners []telegram.Listener
	Observers []telegram.Listener
	Tasks     []Task
}

// conflict returns an error when any route of r collides with the table.
func (t *Table) conflict(r *Registrar) error {
	for _, rt := range r.routes {
		for _, h := range t.Handlers {
			if conflicts(h.Kind, h.Pattern, rt.kind, rt.pattern) {
				return fmt.Errorf("%w: %s %q already claimed by plugin %s", ErrDuplicate, rt.kind, rt.pattern, h.Owner)
			}
		}
	}
	for _, task := range r.tasks {
		for _, existing := range t.Tasks {
			if existing.Name == task.Name {
				return fmt.Errorf("%w: task %q already claimed by plugin %s", ErrDuplicate, task.Name, existing.Owner)
			}
		}
	}
	return nil
}

// commit moves the staged handlers of r into the table, each behind Guard
// together with its middleware.
func (t *Table) commit(g *guard, r *Registrar) {
	for _, rt := range r.routes {
		t.Handlers = append(t.Handlers, telegram.RegisteredHandler{
			Kind:    rt.kind,
			Pattern: rt.pattern,
			Owner:   r.plugin,
			Handler: g.wrap(r.plugin, rt.kind.String()+":"+rt.pattern, rt.handler, rt.middleware...),
		})
	}
	for _, l := range r.listeners {
		t.Listeners = append(t.Listeners, telegram.Listener{
			Owner:   r.plugin,
			Name:    l.name,
			Match:   l.match,
			Handler: g.wrap(r.plugin, "listener:"+l.name, l.handler),
		})
	}
	for _, o := range r.observers {
		t.Observers = append(t.Observers, telegram.Listener{
			Owner:   r.plugin,
			Name:    o.name,
			Handler: g.wrap(r.plugin, "observer:"+o.name, o.handler),
		})
	}
	t.Tasks = append(t.Tasks, r.tasks...)
}
