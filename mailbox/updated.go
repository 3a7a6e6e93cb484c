package mailbox

// UpdatedFlags reports one flag transition: the record affected, the
// mod-seq resulting from the transition, and the flag set before and after.
// A transition is reported for every record within the updated range, even
// when the flag set did not actually change.
type UpdatedFlags struct {
	Uid    uint64
	ModSeq uint64
	Before []string
	After  []string
}
