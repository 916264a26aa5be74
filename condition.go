package objbuilder

import (
	"reflect"

	"github.com/a-peyrard/objbuilder/fn"
)

type (
	// FieldCondition builds conditions on a field of the instance being built,
	// see When.
	FieldCondition[T any] struct {
		path string
	}
)

// When starts a condition on the field at the given dot separated path, for instance:
//
//	b.ModifyIf(addTip, objbuilder.When[*Order]("Customer.Country").Equals("US"))
//
// Conditions are evaluated at build time. A path which cannot be resolved on the instance
// never matches, whatever the operator.
func When[T any](path string) FieldCondition[T] {
	return FieldCondition[T]{path: path}
}

// Equals matches when the field is deeply equal to value. Types must match exactly.
func (c FieldCondition[T]) Equals(value any) fn.Predicate[T] {
	return c.Matches(func(field any) bool {
		return reflect.DeepEqual(field, value)
	})
}

// NotEquals matches when the field exists and is not deeply equal to value.
func (c FieldCondition[T]) NotEquals(value any) fn.Predicate[T] {
	return c.Matches(func(field any) bool {
		return !reflect.DeepEqual(field, value)
	})
}

// IsZero matches when the field holds the zero value of its type.
func (c FieldCondition[T]) IsZero() fn.Predicate[T] {
	return c.Matches(isZero)
}

// IsSet matches when the field does not hold the zero value of its type.
func (c FieldCondition[T]) IsSet() fn.Predicate[T] {
	return c.Matches(fn.Not(isZero))
}

// Matches matches when the given predicate accepts the field value.
func (c FieldCondition[T]) Matches(predicate func(field any) bool) fn.Predicate[T] {
	return func(instance T) bool {
		field, err := fieldAt(instance, c.path)
		if err != nil {
			return false
		}
		return predicate(field)
	}
}

func isZero(field any) bool {
	return field == nil || reflect.ValueOf(field).IsZero()
}
