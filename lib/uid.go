package lib

import "math/rand"

// NewUidValidity picks a random uid-validity value for a new mailbox.
// Protocol clients compare it to detect that a mailbox was deleted and
// recreated under the same name.
func NewUidValidity() uint32 {
	value := rand.Uint32()
	if value == 0 {
		value = 1
	}
	return value
}
