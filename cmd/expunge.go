package cmd

import (
	"errors"

	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/term"
	"github.com/spf13/cobra"
)

var expungeCmd = &cobra.Command{
	Use:   "expunge <account> <mailbox>",
	Short: "Permanently remove the messages marked as deleted",
	RunE:  runExpunge,
}

func init() {
	rootCmd.AddCommand(expungeCmd)
}

func runExpunge(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errors.New("missing account and mailbox names")
	}
	backend, err := openBackend(args[0])
	if err != nil {
		return err
	}
	defer backend.Close()

	expunged, err := backend.Expunge(mailbox.Info{
		Delimiter: backend.Delimiter(),
		Name:      args[1],
	}, mailbox.All())
	if err != nil {
		return err
	}
	if len(expunged) == 0 {
		term.Info("No message to expunge")
		return nil
	}
	for uid, metadata := range expunged {
		term.Debugf("Expunged uid=%d size=%d", uid, metadata.Size)
	}
	term.Infof("Expunged %d messages from mailbox %q", len(expunged), args[1])
	return nil
}
