// Package objbuilder provides a generic builder accumulating deferred modifications
// and materializing fresh, fully configured instances on demand.
//
// A builder is created from a creation strategy (a factory, or a prototype and a copy function),
// then modifications are registered with Modify, Set and their variants. Every Build call creates
// a new instance and applies the registered modifications in registration order.
//
// Registration and materialization are safe for concurrent use and never block each other:
// the chain of modifications is an immutable composed function, extended with a compare-and-swap
// retry loop. A build runs the chain installed when it starts, later registrations only affect
// later builds.
package objbuilder

import (
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/a-peyrard/objbuilder/fn"
	"github.com/a-peyrard/objbuilder/option"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Builder materializes instances of T: each build obtains a fresh instance from the creation
// strategy, then applies every registered modification, in registration order.
//
// A Builder must be created with New, NewFallible, FromPrototype, FromPrototypeFallible or Static.
type Builder[T any] struct {
	id      string
	create  fn.Factory[T]
	chain   atomic.Pointer[chain[T]]
	options Options
	logger  zerolog.Logger
}

// New creates a builder obtaining its base instances from the given producer.
func New[T any](producer func() T, opts ...option.Option[Options]) *Builder[T] {
	mustNotBeNil(producer, "producer")
	return newBuilder(fn.Infallible(producer), emptyChain[T](), buildOptions[T](opts))
}

// NewFallible creates a builder obtaining its base instances from a factory which might fail.
// Factory errors are returned by Build, wrapped with ErrCreationFailed.
func NewFallible[T any](factory func() (T, error), opts ...option.Option[Options]) *Builder[T] {
	mustNotBeNil(factory, "factory")
	return newBuilder(factory, emptyChain[T](), buildOptions[T](opts))
}

// FromPrototype creates a builder whose base instances are copies of the prototype.
//
// The prototype is copied once, immediately, and every build copies this snapshot again.
// Mutating the prototype afterward has no effect on the builder, and the snapshot itself
// is never handed out.
func FromPrototype[T any](prototype T, copier func(T) T, opts ...option.Option[Options]) *Builder[T] {
	mustNotBeNil(copier, "copier")
	snapshot := copier(prototype)
	return newBuilder(
		func() (T, error) {
			return copier(snapshot), nil
		},
		emptyChain[T](),
		buildOptions[T](opts),
	)
}

// FromPrototypeFallible is FromPrototype for copy functions which might fail.
// It fails if the initial snapshot cannot be taken.
func FromPrototypeFallible[T any](prototype T, copier func(T) (T, error), opts ...option.Option[Options]) (*Builder[T], error) {
	mustNotBeNil(copier, "copier")
	options := buildOptions[T](opts)
	snapshot, err := copier(prototype)
	if err != nil {
		return nil, fmt.Errorf("failed to take prototype snapshot:\n\t%w", creationError(options.name, err))
	}
	return newBuilder(
		func() (T, error) {
			return copier(snapshot)
		},
		emptyChain[T](),
		options,
	), nil
}

// Static creates a builder starting every build from the given value.
//
// This is only meant for value types: for pointers, maps or slices, every build would
// return the same shared instance, use New or FromPrototype instead.
func Static[T any](value T, opts ...option.Option[Options]) *Builder[T] {
	return New[T](fn.Constant(value), opts...)
}

func newBuilder[T any](create fn.Factory[T], initial *chain[T], options *Options) *Builder[T] {
	if options.logger == nil {
		nop := zerolog.Nop()
		options.logger = &nop
	}
	b := &Builder[T]{
		id:      uuid.NewString(),
		create:  create,
		options: *options,
	}
	b.logger = options.logger.With().
		Str("builder", options.name).
		Str("builder_id", b.id).
		Logger()
	b.chain.Store(initial)
	return b
}

// ID returns the unique identifier of this builder.
func (b *Builder[T]) ID() string {
	return b.id
}

// Name returns the builder name, the payload type name unless Named was used.
func (b *Builder[T]) Name() string {
	return b.options.name
}

// Len returns the number of modifications registered so far.
func (b *Builder[T]) Len() int {
	return b.chain.Load().size
}

// Modify registers a modification applied in place on every built instance.
//
// The instance must be a reference (pointer, map...) for the modification to be visible,
// use Replace for value types.
func (b *Builder[T]) Modify(action func(T)) *Builder[T] {
	mustNotBeNil(action, "action")
	return b.register(step[T]{act: inPlace(action)})
}

// ModifyIf registers a modification only applied when the condition holds.
// The condition is evaluated at build time, against the instance modified by the preceding steps.
func (b *Builder[T]) ModifyIf(action func(T), condition func(T) bool) *Builder[T] {
	mustNotBeNil(action, "action")
	mustNotBeNil(condition, "condition")
	return b.register(step[T]{act: inPlace(action), guard: condition})
}

// Try registers a modification which might fail. An error aborts the build it occurs in,
// and is returned by Build as a *StepError.
func (b *Builder[T]) Try(action func(T) error) *Builder[T] {
	mustNotBeNil(action, "action")
	return b.register(step[T]{act: fallible(action)})
}

// TryIf is Try, only applied when the condition holds.
func (b *Builder[T]) TryIf(action func(T) error, condition func(T) bool) *Builder[T] {
	mustNotBeNil(action, "action")
	mustNotBeNil(condition, "condition")
	return b.register(step[T]{act: fallible(action), guard: condition})
}

// Replace registers a modification substituting the instance with the returned one.
func (b *Builder[T]) Replace(transform func(T) T) *Builder[T] {
	mustNotBeNil(transform, "transform")
	return b.register(step[T]{act: replacing(transform)})
}

// ReplaceIf is Replace, only applied when the condition holds.
func (b *Builder[T]) ReplaceIf(transform func(T) T, condition func(T) bool) *Builder[T] {
	mustNotBeNil(transform, "transform")
	mustNotBeNil(condition, "condition")
	return b.register(step[T]{act: replacing(transform), guard: condition})
}

// Fork creates a new builder sharing the creation strategy and the modifications registered so far.
// Registrations made afterward, on either builder, are not seen by the other one.
//
// The fork keeps the name, logger and observer of the original builder unless overridden by opts.
func (b *Builder[T]) Fork(opts ...option.Option[Options]) *Builder[T] {
	options := b.options
	return newBuilder(b.create, b.chain.Load(), option.Build(&options, opts...))
}

// Build creates a new instance and applies every registered modification to it.
//
// Build is safe to call concurrently with registrations and other builds. It runs the chain of
// modifications installed when it starts. On failure the zero value of T is returned, the builder
// remains usable. Panics raised by the creation strategy or a modification are not recovered.
func (b *Builder[T]) Build() (T, error) {
	var (
		zero    T
		start   = time.Now()
		current = b.chain.Load()
		m       materialization
	)

	instance, err := b.create()
	if err != nil {
		err = creationError(b.options.name, err)
		b.reportBuild(current, &m, start, err)
		return zero, err
	}

	instance, err = current.apply(&m, instance)
	if err != nil {
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			stepErr.Builder = b.options.name
		}
		b.reportBuild(current, &m, start, err)
		return zero, err
	}

	b.reportBuild(current, &m, start, nil)
	return instance, nil
}

// MustBuild is Build, panicking on error.
func (b *Builder[T]) MustBuild() T {
	instance, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build %s:\n\t%v", b.options.name, err))
	}
	return instance
}

// register installs a new chain made of the current one followed by s.
// If another registration installed its chain in the meantime, the composition is retried on top of it.
func (b *Builder[T]) register(s step[T]) *Builder[T] {
	var (
		current, next *chain[T]
		retries       int
	)
	for {
		current = b.chain.Load()
		next = current.then(s)
		if b.chain.CompareAndSwap(current, next) {
			break
		}
		retries++
	}

	b.logger.Debug().
		Int("steps", next.size).
		Int("retries", retries).
		Msg("step registered")
	if b.options.observer != nil {
		b.options.observer.OnRegister(RegisterEvent{
			Builder: b.options.name,
			Steps:   next.size,
			Retries: retries,
		})
	}
	return b
}

func (b *Builder[T]) reportBuild(c *chain[T], m *materialization, start time.Time, err error) {
	duration := time.Since(start)
	if err != nil {
		b.logger.Warn().
			Err(err).
			Int("steps", c.size).
			Dur("duration", duration).
			Msg("build failed")
	} else {
		b.logger.Debug().
			Int("steps", c.size).
			Int("skipped", m.skipped).
			Dur("duration", duration).
			Msg("instance built")
	}
	if b.options.observer != nil {
		b.options.observer.OnBuild(BuildEvent{
			Builder:  b.options.name,
			Steps:    c.size,
			Skipped:  m.skipped,
			Duration: duration,
			Err:      err,
		})
	}
}

func inPlace[T any](action func(T)) func(T) (T, error) {
	return func(instance T) (T, error) {
		action(instance)
		return instance, nil
	}
}

func fallible[T any](action func(T) error) func(T) (T, error) {
	return func(instance T) (T, error) {
		return instance, action(instance)
	}
}

func replacing[T any](transform func(T) T) func(T) (T, error) {
	return func(instance T) (T, error) {
		return transform(instance), nil
	}
}

func mustNotBeNil(f any, what string) {
	if f == nil || reflect.ValueOf(f).IsNil() {
		panic("objbuilder: nil " + what)
	}
}
