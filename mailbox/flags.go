package mailbox

import (
	"sort"

	"github.com/emersion/go-imap"
)

// The system flag vocabulary. Backends also accept arbitrary user-defined
// keywords alongside these.
var SystemFlags = []string{
	imap.SeenFlag,
	imap.AnsweredFlag,
	imap.FlaggedFlag,
	imap.DeletedFlag,
	imap.DraftFlag,
	imap.RecentFlag,
}

func HasFlag(flags []string, flag string) bool {
	for _, candidate := range flags {
		if candidate == flag {
			return true
		}
	}
	return false
}

// NormalizeFlags returns a sorted copy with duplicates removed.
func NormalizeFlags(flags []string) []string {
	output := make([]string, 0, len(flags))
	for _, flag := range flags {
		if !HasFlag(output, flag) {
			output = append(output, flag)
		}
	}
	sort.Strings(output)
	return output
}

// AddFlags returns the union of existing and added flags.
func AddFlags(existing, added []string) []string {
	output := append(append([]string(nil), existing...), added...)
	return NormalizeFlags(output)
}

// RemoveFlags returns existing minus removed.
func RemoveFlags(existing, removed []string) []string {
	output := make([]string, 0, len(existing))
	for _, flag := range existing {
		if !HasFlag(removed, flag) {
			output = append(output, flag)
		}
	}
	return NormalizeFlags(output)
}

// FlagsEqual compares two flag sets regardless of order and duplicates.
func FlagsEqual(a, b []string) bool {
	left := NormalizeFlags(a)
	right := NormalizeFlags(b)
	if len(left) != len(right) {
		return false
	}
	for i, flag := range left {
		if right[i] != flag {
			return false
		}
	}
	return true
}
