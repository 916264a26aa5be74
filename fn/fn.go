// Package fn contains the functional types shared by the builder and its helpers.
package fn

// Supplier represents a function that produces a value of type T.
type Supplier[T any] func() T

// Factory represents a function that produces a value of type T or fails.
type Factory[T any] func() (T, error)

// Consumer represents a function that accepts a single input argument and returns no result.
type Consumer[T any] func(t T)

// BiConsumer represents a function that accepts two input arguments and returns no result.
type BiConsumer[T1 any, T2 any] func(t1 T1, t2 T2)

// TriConsumer represents a function that accepts three input arguments and returns no result.
type TriConsumer[T1 any, T2 any, T3 any] func(t1 T1, t2 T2, t3 T3)

// Predicate represents a boolean-valued function of one argument.
type Predicate[T any] func(t T) bool

// BiPredicate represents a boolean-valued function of two arguments.
type BiPredicate[T1 any, T2 any] func(t1 T1, t2 T2) bool

// Constant returns a supplier always returning the given value.
func Constant[T any](value T) Supplier[T] {
	return func() T {
		return value
	}
}

// Infallible lifts a supplier into a factory that never fails.
func Infallible[T any](supplier func() T) Factory[T] {
	return func() (T, error) {
		return supplier(), nil
	}
}

// AllTriConsumer creates a tri-consumer that will execute all the given tri-consumers, in order.
func AllTriConsumer[A any, B any, C any](consumers ...TriConsumer[A, B, C]) TriConsumer[A, B, C] {
	return func(a A, b B, c C) {
		for _, consumer := range consumers {
			consumer(a, b, c)
		}
	}
}

// Not negates a predicate.
func Not[T any](predicate func(T) bool) Predicate[T] {
	return func(t T) bool {
		return !predicate(t)
	}
}

// All returns a predicate matching when every given predicate matches.
// With no predicates it always matches.
func All[T any](predicates ...func(T) bool) Predicate[T] {
	return func(t T) bool {
		for _, p := range predicates {
			if !p(t) {
				return false
			}
		}
		return true
	}
}

// Any returns a predicate matching when at least one given predicate matches.
// With no predicates it never matches.
func Any[T any](predicates ...func(T) bool) Predicate[T] {
	return func(t T) bool {
		for _, p := range predicates {
			if p(t) {
				return true
			}
		}
		return false
	}
}

// FirstArg adapts a predicate on the first argument into a bi-predicate ignoring the second one.
func FirstArg[T1 any, T2 any](predicate func(T1) bool) BiPredicate[T1, T2] {
	return func(t1 T1, _ T2) bool {
		return predicate(t1)
	}
}

// SecondArg adapts a predicate on the second argument into a bi-predicate ignoring the first one.
func SecondArg[T1 any, T2 any](predicate func(T2) bool) BiPredicate[T1, T2] {
	return func(_ T1, t2 T2) bool {
		return predicate(t2)
	}
}
