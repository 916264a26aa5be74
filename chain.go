package objbuilder

type (
	// step is one deferred modification. act may mutate its argument in place and return it,
	// or return a replacement instance. guard, when set, is evaluated against the instance
	// as it stands after every preceding step.
	step[T any] struct {
		act   func(T) (T, error)
		guard func(T) bool
	}

	// chain is an immutable composition of steps. Appending never rewrites an existing chain,
	// it produces a new one wrapping the previous apply function.
	chain[T any] struct {
		size  int
		apply func(m *materialization, instance T) (T, error)
	}

	// materialization holds the bookkeeping of a single Build call.
	materialization struct {
		skipped int
	}
)

func emptyChain[T any]() *chain[T] {
	return &chain[T]{
		apply: func(_ *materialization, instance T) (T, error) {
			return instance, nil
		},
	}
}

// then returns a new chain running c, then s.
func (c *chain[T]) then(s step[T]) *chain[T] {
	var (
		previous = c.apply
		index    = c.size
	)
	return &chain[T]{
		size: c.size + 1,
		apply: func(m *materialization, instance T) (T, error) {
			instance, err := previous(m, instance)
			if err != nil {
				return instance, err
			}
			if s.guard != nil && !s.guard(instance) {
				m.skipped++
				return instance, nil
			}
			next, err := s.act(instance)
			if err != nil {
				return instance, &StepError{Index: index, Err: err}
			}
			return next, nil
		},
	}
}
