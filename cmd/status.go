package cmd

import (
	"errors"
	"strings"

	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/term"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <account> <mailbox>",
	Short: "Display the status of a mailbox",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errors.New("missing account and mailbox names")
	}
	backend, err := openBackend(args[0])
	if err != nil {
		return err
	}
	defer backend.Close()

	status, err := backend.SelectMailbox(mailbox.Info{
		Delimiter: backend.Delimiter(),
		Name:      args[1],
	})
	if err != nil {
		return err
	}
	term.Infof("Mailbox:         %s", status.Name)
	term.Infof("Messages:        %d", status.Messages)
	term.Infof("Unseen:          %d", status.Unseen)
	term.Infof("Recent:          %d", status.Recent)
	term.Infof("Uid validity:    %d", status.UidValidity)
	term.Infof("Next uid:        %d", status.UidNext)
	term.Infof("Highest mod-seq: %d", status.HighestModSeq)

	recent, err := backend.FindRecentUids(mailbox.Info{
		Delimiter: backend.Delimiter(),
		Name:      args[1],
	})
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		term.Debugf("Recent uids: %s", joinUids(recent))
	}
	return nil
}

func joinUids(uids []uint64) string {
	parts := make([]string, len(uids))
	for i, uid := range uids {
		parts[i] = mailbox.One(uid).String()
	}
	return strings.Join(parts, ",")
}
