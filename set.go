package objbuilder

// Set registers a modification calling setter with the given value on every built instance.
//
// value is captured when Set is called: changing the caller's variable afterward does not
// affect the registered modification. Reference values (pointers, maps, slices) are still shared.
func Set[T any, V any](b *Builder[T], value V, setter func(T, V)) *Builder[T] {
	mustNotBeNil(setter, "setter")
	return b.Modify(func(instance T) {
		setter(instance, value)
	})
}

// SetIf is Set, only applied when condition(instance, value) holds at build time.
func SetIf[T any, V any](b *Builder[T], value V, setter func(T, V), condition func(T, V) bool) *Builder[T] {
	mustNotBeNil(setter, "setter")
	mustNotBeNil(condition, "condition")
	return b.ModifyIf(
		func(instance T) {
			setter(instance, value)
		},
		func(instance T) bool {
			return condition(instance, value)
		},
	)
}

// With registers a modification for value payloads: the built instance is replaced by
// the result of with(instance, value).
func With[T any, V any](b *Builder[T], value V, with func(T, V) T) *Builder[T] {
	mustNotBeNil(with, "with")
	return b.Replace(func(instance T) T {
		return with(instance, value)
	})
}
