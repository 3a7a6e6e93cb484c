package lib

import "strings"

// VerifyDelimiter translates a mailbox name from one hierarchy delimiter to
// another. Occurrences of the new delimiter inside the name are escaped first.
func VerifyDelimiter(name, existingDelimiter, expectedDelimiter string) string {
	if existingDelimiter == expectedDelimiter {
		return name
	}
	name = strings.ReplaceAll(name, expectedDelimiter, "\\"+expectedDelimiter)
	name = strings.ReplaceAll(name, existingDelimiter, expectedDelimiter)
	return name
}
