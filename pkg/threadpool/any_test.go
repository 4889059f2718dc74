package threadpool

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jzx17/threadpool/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int
}

func TestAny_RoundTrip(t *testing.T) {
	t.Run("int", func(t *testing.T) {
		v, err := Cast[int](NewAny(5050))
		require.NoError(t, err)
		assert.Equal(t, 5050, v)
	})

	t.Run("string", func(t *testing.T) {
		v, err := Cast[string](NewAny("hello"))
		require.NoError(t, err)
		assert.Equal(t, "hello", v)
	})

	t.Run("struct", func(t *testing.T) {
		v, err := Cast[point](NewAny(point{X: 1, Y: 2}))
		require.NoError(t, err)
		assert.Equal(t, point{X: 1, Y: 2}, v)
	})

	t.Run("pointer keeps identity", func(t *testing.T) {
		p := &point{X: 3}
		v, err := Cast[*point](NewAny(p))
		require.NoError(t, err)
		assert.Same(t, p, v)
	})

	t.Run("slice", func(t *testing.T) {
		v, err := Cast[[]int](NewAny([]int{1, 2, 3}))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, v)
	})
}

func TestAny_TypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		cast func(Any) error
	}{
		{
			name: "int as int64",
			cast: func(a Any) error { _, err := Cast[int64](a); return err },
		},
		{
			name: "int as string",
			cast: func(a Any) error { _, err := Cast[string](a); return err },
		},
		{
			name: "int as float64",
			cast: func(a Any) error { _, err := Cast[float64](a); return err },
		},
	}

	a := NewAny(42)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cast(a)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrTypeMismatch))
		})
	}
}

func TestAny_Empty(t *testing.T) {
	var zero Any
	assert.True(t, zero.IsEmpty())
	assert.Nil(t, zero.Type())
	assert.Equal(t, "<empty>", zero.String())

	assert.True(t, NewAny(nil).IsEmpty())

	_, err := Cast[int](zero)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrTypeMismatch))
	assert.True(t, errors.Is(err, types.ErrEmptyResult))
}

func TestAny_Accessors(t *testing.T) {
	a := NewAny(int64(7))
	assert.False(t, a.IsEmpty())
	assert.Equal(t, reflect.TypeOf(int64(0)), a.Type())
	assert.Equal(t, int64(7), a.Interface())
	assert.Equal(t, "7", a.String())
}

func TestMustCast(t *testing.T) {
	assert.Equal(t, 3, MustCast[int](NewAny(3)))
	assert.Panics(t, func() {
		MustCast[string](NewAny(3))
	})
}
