package lib

import "github.com/emersion/go-imap"

// StripRecentFlag removes \Recent from a flag list. The Recent flag belongs
// to the receiving mailbox, it is never carried over as-is.
func StripRecentFlag(source []string) []string {
	output := make([]string, 0, len(source))
	for _, flag := range source {
		if flag == imap.RecentFlag {
			continue
		}
		output = append(output, flag)
	}
	return output
}

// WithRecentFlag returns the flag list with \Recent added if missing.
// A copied message is recent in its destination mailbox.
func WithRecentFlag(source []string) []string {
	for _, flag := range source {
		if flag == imap.RecentFlag {
			return source
		}
	}
	output := make([]string, 0, len(source)+1)
	output = append(output, source...)
	return append(output, imap.RecentFlag)
}
