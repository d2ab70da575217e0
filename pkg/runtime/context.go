// Package runtime bundles the pieces an embedding application actually
// wires up: the pool registry objects are allocated through, the collector
// that sweeps it, and the logger both report through. There is no
// equivalent singleton in chrissinclair/object_system - the C++ original
// reaches its pools, root set and collector through process-wide statics -
// but a Go program gets to make that dependency explicit instead, the way
// gavlooth/purple_go threads an *Interp/*Env through its evaluator instead
// of reaching for package-level state.
package runtime

import (
	"go.uber.org/zap"

	"objsys/pkg/gc"
	"objsys/pkg/handle"
	"objsys/pkg/pool"
)

// Context is the runtime instance an application builds once and threads
// through its object graph: the pool registry, the collector, and the
// structured logger everything reports through.
type Context struct {
	Registry *pool.Registry
	Stats    *gc.Stats
	Log      *zap.Logger

	collector *gc.Collector
}

// Option configures a Context at construction time.
type Option func(*options)

type options struct {
	sizeClass pool.SizeClassFunc
	log       *zap.Logger
}

// WithSizeClassFunc overrides the pool registry's size-class policy. The
// default is the identity function: one pool per exact payload size.
func WithSizeClassFunc(fn pool.SizeClassFunc) Option {
	return func(o *options) { o.sizeClass = fn }
}

// WithLogger supplies a pre-built logger instead of the default production
// zap.Logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// New builds a Context: a fresh pool registry, a collector over it, and a
// logger (zap production config by default, or whatever WithLogger
// supplied).
func New(opts ...Option) *Context {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := o.log
	if log == nil {
		built, err := zap.NewProduction()
		if err != nil {
			log = zap.NewNop()
		} else {
			log = built
		}
	}

	registry := pool.NewRegistry()
	if o.sizeClass != nil {
		registry.SetSizeClassFunc(o.sizeClass)
	}

	stats := gc.NewStats()
	ctx := &Context{Registry: registry, Stats: stats, Log: log}
	ctx.collector = gc.New(registry, log, stats)
	return ctx
}

// Collect runs one mark-and-sweep cycle over this context's registry.
func (c *Context) Collect() { c.collector.Collect() }

// NewStrongHandle registers obj with this context's strong-handle registry.
// A package-level function, not a method: Go methods can't carry their own
// type parameters.
func NewStrongHandle[T any](c *Context, obj *T) handle.Strong[T] {
	return handle.NewStrong(c.Registry, obj)
}
