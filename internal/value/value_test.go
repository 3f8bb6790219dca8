package value

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kozi/internal/heap"
)

func TestIsFalsey(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", Nil(), true},
		{"false", NewBool(false), true},
		{"true", NewBool(true), false},
		{"zero", NewNumber(0), false},
		{"number", NewNumber(42), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.v.IsFalsey())
		})
	}
}

func TestEqual_DifferentKindsNeverEqual(t *testing.T) {
	assert.False(t, NewNumber(0).Equal(NewBool(false)))
	assert.False(t, Nil().Equal(NewBool(false)))
}

func TestEqual_StringsByHandleIdentity(t *testing.T) {
	g := heap.New()
	a := NewString(g.Intern([]byte("hi")))
	b := NewString(g.Intern([]byte("hi")))
	assert.True(t, a.Equal(b))
}

func TestString_FormatsEachKind(t *testing.T) {
	g := heap.New()
	assert.Equal(t, "nil", Nil().String())
	assert.Equal(t, "true", NewBool(true).String())
	assert.Equal(t, "3.5", NewNumber(3.5).String())
	assert.Equal(t, "hi", NewString(g.Intern([]byte("hi"))).String())
}
