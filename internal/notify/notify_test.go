package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderAndCancel(t *testing.T) {
	var l List[int]
	var got []int

	l.Subscribe(func(v int) { got = append(got, v) })
	cancel := l.Subscribe(func(v int) { got = append(got, v*10) })
	l.Subscribe(func(v int) { got = append(got, v*100) })
	assert.Equal(t, 3, l.Len())

	l.Notify(1)
	cancel()
	cancel()
	l.Notify(2)

	assert.Equal(t, []int{1, 10, 100, 2, 200}, got)
	assert.Equal(t, 2, l.Len())
}

func TestCancelFromHandler(t *testing.T) {
	var l List[string]
	var got []string

	var cancel func()
	cancel = l.Subscribe(func(v string) {
		got = append(got, v)
		cancel()
	})

	l.Notify("a")
	l.Notify("b")
	assert.Equal(t, []string{"a"}, got)
	assert.Zero(t, l.Len())
}

func TestClear(t *testing.T) {
	var l List[int]
	calls := 0
	l.Subscribe(func(int) { calls++ })

	l.Clear()
	l.Notify(1)
	assert.Zero(t, calls)
	assert.Zero(t, l.Len())

	l.Subscribe(func(int) { calls++ })
	l.Notify(1)
	assert.Equal(t, 1, calls)
}
