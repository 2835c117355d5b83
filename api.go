package goforma

import (
	"fmt"
	"sync"

	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/reoring/goforma/rules"
	"github.com/reoring/goforma/typecheck"
)

// DefaultMaxDepth bounds model recursion when no explicit limit is set.
const DefaultMaxDepth = 64

// Observer is notified after every Format and Validate call.
type Observer interface {
	FormatDone(err error)
	ValidateDone(res Result, err error)
}

type nopObserver struct{}

func (nopObserver) FormatDone(error)           {}
func (nopObserver) ValidateDone(Result, error) {}

// Engine carries the registries and collaborators consulted while formatting
// and validating. An Engine is immutable after New and safe for concurrent
// use; the registries it holds guard their own mutation.
type Engine struct {
	rules    *rules.Registry
	types    *typecheck.Registry
	resolver Resolver
	logger   *zap.Logger
	observer Observer
	maxDepth int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRules sets the rule registry.
func WithRules(r *rules.Registry) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.rules = r
		}
	}
}

// WithTypes sets the type-check registry.
func WithTypes(r *typecheck.Registry) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.types = r
		}
	}
}

// WithResolver sets the resolver used for Ref sub-models.
func WithResolver(r Resolver) EngineOption { return func(e *Engine) { e.resolver = r } }

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver sets the call observer.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithMaxDepth bounds model recursion. Values <= 0 keep DefaultMaxDepth.
func WithMaxDepth(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// New builds an Engine over the shared built-in registries unless options
// say otherwise.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		rules:    rules.Default(),
		types:    typecheck.Default(),
		logger:   zap.NewNop(),
		observer: nopObserver{},
		maxDepth: DefaultMaxDepth,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the engine used by the package-level functions.
func Default() *Engine {
	defaultOnce.Do(func() { defaultEngine = New() })
	return defaultEngine
}

// Format normalizes data according to model using the default engine.
func Format(model Node, data any, opts ...FormatOptions) (any, error) {
	return Default().Format(model, data, opts...)
}

// Validate checks data against model using the default engine.
func Validate(model Node, data any, opts ...ValidateOptions) (Result, error) {
	return Default().Validate(model, data, opts...)
}

// CheckValue checks a single value against f using the default engine.
func CheckValue(v mo.Option[any], f *Field, ctx Context, opts ...CheckOptions) []string {
	return Default().CheckValue(v, f, ctx, opts...)
}

// resolve follows Ref nodes until a Model or Field is reached.
func (e *Engine) resolve(n Node) (Node, error) {
	for hops := 0; ; hops++ {
		ref, ok := n.(Ref)
		if !ok {
			if n == nil {
				return nil, fmt.Errorf("%w: nil node", ErrUnresolvedModel)
			}
			return n, nil
		}
		if hops >= e.maxDepth {
			return nil, fmt.Errorf("%w: reference chain at %q", ErrMaxDepth, string(ref))
		}
		if e.resolver == nil {
			return nil, fmt.Errorf("%w: %q (no resolver)", ErrUnresolvedModel, string(ref))
		}
		next, err := e.resolver.Resolve(string(ref))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrUnresolvedModel, string(ref), err)
		}
		n = next
	}
}

func (e *Engine) depthExceeded(depth int) error {
	if depth <= e.maxDepth {
		return nil
	}
	e.logger.Error("model depth exceeded", zap.Int("max_depth", e.maxDepth))
	return fmt.Errorf("%w (%d)", ErrMaxDepth, e.maxDepth)
}

func lastOpt[T any](opts []T) T {
	var zero T
	if len(opts) == 0 {
		return zero
	}
	return opts[len(opts)-1]
}
