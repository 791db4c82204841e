package marshal

import (
	"fmt"
	"iter"

	"livemem/offset"
	"livemem/process"
)

// ActorTable enumerates a game-owned entity table through a session. The
// count is re-read on every call; nothing about the table is cached beyond
// the per-tick head address.
type ActorTable struct {
	session *Session
	table   offset.ActorTableOffset
}

func NewActorTable(s *Session, table offset.ActorTableOffset) *ActorTable {
	return &ActorTable{session: s, table: table}
}

func (a *ActorTable) Offset() offset.ActorTableOffset { return a.table }

// Head resolves the table head address.
func (a *ActorTable) Head() (process.ProcessMemoryAddress, error) {
	return a.session.Address(a.table.BaseOffset)
}

// Count reads the live entity count.
func (a *ActorTable) Count() (int, error) {
	head, err := a.Head()
	if err != nil {
		return 0, err
	}
	return a.table.ReadCount(a.session, head)
}

// ElementBase returns slot i's base offset relative to the current head.
// It does not check i against Count.
func (a *ActorTable) ElementBase(i int) (offset.BaseOffset, error) {
	head, err := a.Head()
	if err != nil {
		return offset.BaseOffset{}, err
	}
	return a.table.ElementBase(head, i), nil
}

// Entry is ElementBase with a bounds check against a fresh count. An index
// outside [0, count) is process.ErrInvalidAddress.
func (a *ActorTable) Entry(i int) (offset.BaseOffset, error) {
	head, err := a.Head()
	if err != nil {
		return offset.BaseOffset{}, err
	}
	count, err := a.table.ReadCount(a.session, head)
	if err != nil {
		return offset.BaseOffset{}, err
	}
	if i < 0 || i >= count {
		return offset.BaseOffset{}, fmt.Errorf("%w: actor index %d out of range [0, %d)", process.ErrInvalidAddress, i, count)
	}
	return a.table.ElementBase(head, i), nil
}

// All yields every slot's base offset. The head and count are read when
// iteration starts, so each range over All sees the table as it is then.
// A table that cannot be read yields nothing.
func (a *ActorTable) All() iter.Seq2[int, offset.BaseOffset] {
	return func(yield func(int, offset.BaseOffset) bool) {
		head, count, err := a.snapshot()
		if err != nil {
			a.session.log.Debugln("actor table", a.table.String(), "unreadable:", err)
			return
		}
		for i := 0; i < count; i++ {
			if !yield(i, a.table.ElementBase(head, i)) {
				return
			}
		}
	}
}

// Bases collects the current slot bases.
func (a *ActorTable) Bases() ([]offset.BaseOffset, error) {
	head, count, err := a.snapshot()
	if err != nil {
		return nil, err
	}
	result := make([]offset.BaseOffset, count)
	for i := range result {
		result[i] = a.table.ElementBase(head, i)
	}
	return result, nil
}

func (a *ActorTable) snapshot() (process.ProcessMemoryAddress, int, error) {
	if !a.session.liveness() {
		return 0, 0, errProcessGone()
	}
	head, err := a.Head()
	if err != nil {
		return 0, 0, err
	}
	count, err := a.table.ReadCount(a.session, head)
	if err != nil {
		return 0, 0, err
	}
	return head, count, nil
}
