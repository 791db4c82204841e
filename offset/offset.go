// Package offset describes how to reach values inside a foreign process:
// chains of pointer-chase steps, anchors that root them, actor tables and
// byte-patch flags. Offsets are pure descriptions and never own memory.
package offset

import (
	"slices"
	"strconv"
	"strings"
)

// Offset is an immutable ordered sequence of pointer-chase steps.
type Offset struct {
	steps []uint64
}

// New copies steps into a new Offset.
func New(steps ...uint64) Offset {
	return Offset{steps: slices.Clone(steps)}
}

// Steps returns a copy of the steps.
func (o Offset) Steps() []uint64 {
	return slices.Clone(o.steps)
}

// Len returns the number of steps.
func (o Offset) Len() int {
	return len(o.steps)
}

// Equal reports structural equality: same length, same values in order.
func (o Offset) Equal(other Offset) bool {
	return slices.Equal(o.steps, other.steps)
}

// Key returns a string usable as a map key; equal offsets have equal keys.
func (o Offset) Key() string {
	var sb strings.Builder
	for i, s := range o.steps {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(s, 16))
	}
	return sb.String()
}

func (o Offset) String() string {
	parts := make([]string, len(o.steps))
	for i, s := range o.steps {
		parts[i] = "0x" + strconv.FormatUint(s, 16)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Typed is an Offset tagged with the type of the value it points at, so a
// marshaler built from it is checked at compile time.
type Typed[T any] struct {
	Offset
}

// NewTyped builds a Typed offset from steps.
func NewTyped[T any](steps ...uint64) Typed[T] {
	return Typed[T]{Offset: New(steps...)}
}

// Of tags an existing offset with T.
func Of[T any](o Offset) Typed[T] {
	return Typed[T]{Offset: o}
}
