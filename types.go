package objbuilder

import "reflect"

// TypeOf returns the reflect.Type of I, interface types included.
func TypeOf[I any]() reflect.Type {
	var i I
	t := reflect.TypeOf(i)
	if t == nil {
		t = reflect.TypeOf((*I)(nil)).Elem()
	}
	return t
}
