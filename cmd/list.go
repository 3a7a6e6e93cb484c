package cmd

import (
	"errors"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <account>",
	Short: "Display list of mailboxes",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("missing account name")
	}
	backend, err := openBackend(args[0])
	if err != nil {
		return err
	}
	defer backend.Close()

	mailboxes, err := backend.ListMailbox()
	if err != nil {
		return err
	}
	table := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Mailbox", "Messages", "Unseen", "Recent"},
	})
	for _, info := range mailboxes {
		var messages, unseen, recent string
		status, err := backend.SelectMailbox(info)
		if err == nil {
			messages = strconv.FormatUint(uint64(status.Messages), 10)
			unseen = strconv.FormatUint(uint64(status.Unseen), 10)
			recent = strconv.FormatUint(uint64(status.Recent), 10)
		}
		table.Data = append(table.Data, []string{info.Name, messages, unseen, recent})
	}
	return table.Render()
}
