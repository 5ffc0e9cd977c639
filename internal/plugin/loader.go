package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Options control which plugins load and how long self-tests may take.
type Options struct {
	// Allowed filters plugin names. Nil allows every plugin.
	Allowed func(name string) bool
	// TestTimeout bounds each Test call. Zero means no timeout.
	TestTimeout time.Duration
}

// LoadResult reports the outcome of Load.
type LoadResult struct {
	Loaded  []string
	Skipped []string
	Failed  map[string]error
	Table   *Table

	closers []namedCloser
	log     *slog.Logger
}

type namedCloser struct {
	name string
	c    Closer
}

// Close calls the Close hook of every loaded plugin in reverse load order.
// A failing or panicking hook is logged and does not stop the others.
func (r *LoadResult) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		nc := r.closers[i]
		if err := safeCall(func() error { return nc.c.Close(ctx) }); err != nil {
			r.log.ErrorContext(ctx, "Plugin failed to close", "plugin", nc.name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", nc.name, err))
		}
	}
	return errors.Join(errs...)
}

// Load builds, sets up and self-tests every registered plugin in name order
// and commits the handlers of the ones that succeed. A failing plugin is
// logged at error level and skipped; none of its handlers are committed.
func (r *Registry) Load(ctx context.Context, deps Deps, opts Options) (*LoadResult, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Catalog == nil {
		deps.Catalog = NewCatalog()
	}
	log := deps.Logger.With("component", "plugin_loader")
	g := &guard{log: deps.Logger}

	result := &LoadResult{Failed: make(map[string]error), Table: &Table{}, log: log}
	names := r.Names()
	log.Info("Loading plugins...", "registered", len(names))

	for _, name := range names {
		if ctx.Err() != nil {
			return result, fmt.Errorf("plugin loading interrupted: %w", ctx.Err())
		}
		if opts.Allowed != nil && !opts.Allowed(name) {
			log.Info("Plugin disabled by configuration", "plugin", name)
			result.Skipped = append(result.Skipped, name)
			continue
		}

		pluginDeps := deps
		pluginDeps.Logger = deps.Logger.With("plugin", name)

		p, reg, info, err := r.prepare(ctx, name, pluginDeps, opts)
		if err == nil {
			err = result.Table.conflict(reg)
		}
		if err != nil {
			result.Failed[name] = err
			attrs := []any{"plugin", name, "error", err}
			var pe *PanicError
			if errors.As(err, &pe) {
				attrs = append(attrs, "stack", string(pe.Stack))
			}
			log.ErrorContext(ctx, "Plugin failed to load", attrs...)
			continue
		}

		result.Table.commit(g, reg)
		if info != nil {
			deps.Catalog.Add(name, *info)
		}
		if c, ok := p.(Closer); ok {
			result.closers = append(result.closers, namedCloser{name: name, c: c})
		}
		result.Loaded = append(result.Loaded, name)
		log.Info("Plugin loaded", "plugin", name,
			"handlers", len(reg.routes), "listeners", len(reg.listeners),
			"observers", len(reg.observers), "tasks", len(reg.tasks))
	}

	log.Info("Plugins loaded", "loaded", len(result.Loaded), "failed", len(result.Failed), "skipped", len(result.Skipped))
	return result, nil
}

// prepare builds the plugin, runs Setup into a staging registrar, runs the
// self-test and collects the help entry. Nothing is committed here.
func (r *Registry) prepare(ctx context.Context, name string, deps Deps, opts Options) (Plugin, *Registrar, *Info, error) {
	factory := r.factory(name)

	var p Plugin
	err := safeCall(func() error {
		var err error
		p, err = factory(deps)
		return err
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build: %w", err)
	}
	if p == nil {
		return nil, nil, nil, errors.New("build: factory returned nil plugin")
	}

	reg := newRegistrar(name)
	if s, ok := p.(Setupper); ok {
		if err := safeCall(func() error { return s.Setup(reg) }); err != nil {
			return nil, nil, nil, fmt.Errorf("setup: %w", err)
		}
		if err := reg.Err(); err != nil {
			return nil, nil, nil, fmt.Errorf("setup: %w", err)
		}
	}

	if t, ok := p.(Tester); ok {
		if err := runTest(ctx, t, opts.TestTimeout); err != nil {
			return nil, nil, nil, fmt.Errorf("self-test: %w", err)
		}
	}

	var info *Info
	if d, ok := p.(Describer); ok {
		err := safeCall(func() error {
			i := d.Info()
			info = &i
			return nil
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("info: %w", err)
		}
	}
	return p, reg, info, nil
}

// runTest runs the self-test, giving up after timeout. A test that ignores
// its context keeps running in the background.
func runTest(ctx context.Context, t Tester, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- safeCall(func() error { return t.Test(ctx) })
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("timed out: %w", ctx.Err())
	}
}
