package threadpool

import (
	"fmt"
	"reflect"

	"github.com/jzx17/threadpool/pkg/types"
)

// Any holds a value of any concrete type together with its dynamic type.
// The zero Any is empty.
type Any struct {
	value any
	typ   reflect.Type
}

// NewAny stores v in an Any
func NewAny(v any) Any {
	if v == nil {
		return Any{}
	}
	return Any{value: v, typ: reflect.TypeOf(v)}
}

// IsEmpty reports whether a holds no value
func (a Any) IsEmpty() bool {
	return a.typ == nil
}

// Type returns the dynamic type of the stored value, nil when empty
func (a Any) Type() reflect.Type {
	return a.typ
}

// Interface returns the stored value as an interface
func (a Any) Interface() any {
	return a.value
}

// String implements fmt.Stringer
func (a Any) String() string {
	if a.IsEmpty() {
		return "<empty>"
	}
	return fmt.Sprintf("%v", a.value)
}

// Cast extracts the stored value as T. It never converts between types:
// an int stored in a cannot be read back as int64.
func Cast[T any](a Any) (T, error) {
	var zero T
	if a.IsEmpty() {
		return zero, fmt.Errorf("%w: cannot extract %s: %w",
			types.ErrTypeMismatch, reflect.TypeFor[T](), types.ErrEmptyResult)
	}

	v, ok := a.value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: stored %s, requested %s",
			types.ErrTypeMismatch, a.typ, reflect.TypeFor[T]())
	}
	return v, nil
}

// MustCast is like Cast but panics on a type mismatch
func MustCast[T any](a Any) T {
	v, err := Cast[T](a)
	if err != nil {
		panic(err)
	}
	return v
}
