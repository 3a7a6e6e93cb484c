package mdir

import (
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-maildir"
)

// maildirFlags maps the system flag vocabulary onto the single-letter
// maildir info flags. Recent has no maildir equivalent (a recent message
// lives in new/ rather than cur/) and user keywords cannot be represented,
// so both only exist in the side index.
var maildirFlags = map[string]maildir.Flag{
	imap.SeenFlag:     maildir.FlagSeen,
	imap.AnsweredFlag: maildir.FlagReplied,
	imap.FlaggedFlag:  maildir.FlagFlagged,
	imap.DeletedFlag:  maildir.FlagTrashed,
	imap.DraftFlag:    maildir.FlagDraft,
}

func toFlags(source []string) []maildir.Flag {
	flags := make([]maildir.Flag, 0, len(source))
	for _, sourceFlag := range mailbox.NormalizeFlags(source) {
		if flag, ok := maildirFlags[sourceFlag]; ok {
			flags = append(flags, flag)
		}
	}
	return flags
}
