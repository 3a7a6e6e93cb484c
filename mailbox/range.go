package mailbox

import (
	"fmt"
	"strconv"
)

// Range selects messages by UID. Bounds are always inclusive; UIDs missing
// from the mailbox (deleted or never allocated) are skipped, never an error.
type Range struct {
	first uint64
	last  uint64 // 0 means unbounded
}

// One selects exactly one UID, if present.
func One(uid uint64) Range {
	return Range{first: uid, last: uid}
}

// From selects every UID greater than or equal to uid.
func From(uid uint64) Range {
	return Range{first: uid}
}

// Between selects every UID in [first, last]. Reversed bounds are swapped.
func Between(first, last uint64) Range {
	if last < first {
		first, last = last, first
	}
	return Range{first: first, last: last}
}

// All selects every UID in the mailbox.
func All() Range {
	return Range{}
}

func (r Range) Contains(uid uint64) bool {
	if uid < r.first {
		return false
	}
	return r.last == 0 || uid <= r.last
}

// First returns the lower bound, 0 when the range starts at the beginning.
func (r Range) First() uint64 {
	return r.first
}

// Last returns the upper bound, 0 when the range is unbounded.
func (r Range) Last() uint64 {
	return r.last
}

func (r Range) String() string {
	switch {
	case r.first == 0 && r.last == 0:
		return "1:*"
	case r.last == 0:
		return strconv.FormatUint(r.first, 10) + ":*"
	case r.first == r.last:
		return strconv.FormatUint(r.first, 10)
	default:
		return fmt.Sprintf("%d:%d", r.first, r.last)
	}
}
