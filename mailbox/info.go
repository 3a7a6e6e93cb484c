package mailbox

import "github.com/creativeprojects/mailstore/lib"

// Info identifies a mailbox: the backend-assigned ID, the hierarchical name
// with its delimiter, and the uid-validity value stamped at creation. The
// message store never resolves or renames mailboxes itself, it receives one
// of these already resolved.
type Info struct {
	// Backend-assigned identifier, set at creation.
	ID ID
	// The server's path separator.
	Delimiter string
	// The mailbox name.
	Name string
	// Set once at mailbox creation, immutable thereafter.
	UidValidity uint32
}

func ChangeDelimiter(info Info, delimiter string) Info {
	info.Name = lib.VerifyDelimiter(info.Name, info.Delimiter, delimiter)
	info.Delimiter = delimiter
	return info
}
