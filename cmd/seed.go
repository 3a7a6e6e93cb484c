package cmd

import (
	"bytes"
	"errors"
	"time"

	"github.com/creativeprojects/mailstore/lib"
	"github.com/creativeprojects/mailstore/mailbox"
	"github.com/creativeprojects/mailstore/term"
	"github.com/spf13/cobra"
)

var (
	seedCmd = &cobra.Command{
		Use:   "seed <account> <mailbox>",
		Short: "Fill a mailbox with generated messages",
		RunE:  runSeed,
	}
	seedCount   int
	seedMinSize int
	seedMaxSize int
)

func init() {
	rootCmd.AddCommand(seedCmd)
	flag := seedCmd.Flags()
	flag.IntVarP(&seedCount, "count", "n", 100, "number of messages to generate")
	flag.IntVar(&seedMinSize, "min-size", 200, "minimum message size in bytes")
	flag.IntVar(&seedMaxSize, "max-size", 2000, "maximum message size in bytes")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errors.New("missing account and mailbox names")
	}
	backend, err := openBackend(args[0])
	if err != nil {
		return err
	}
	defer backend.Close()

	info := mailbox.Info{
		Delimiter: backend.Delimiter(),
		Name:      args[1],
	}
	if err = backend.CreateMailbox(info); err != nil {
		return err
	}

	progress := newProgresser("Generating messages", seedCount)
	defer progress.Stop()

	epoch := time.Now().AddDate(0, -6, 0)
	for sequence := 1; sequence <= seedCount; sequence++ {
		content, bodyStart := lib.GenerateEmail("sender@example.org", "recipient@example.org", uint32(sequence), seedMinSize, seedMaxSize)
		props := mailbox.MessageProperties{
			Flags:        lib.GenerateFlags(),
			InternalDate: lib.GenerateDateFrom(epoch),
			Size:         uint32(len(content)),
			BodyStart:    bodyStart,
		}
		if _, err = backend.Add(info, props, bytes.NewReader(content)); err != nil {
			return err
		}
		progress.Increment()
	}
	term.Infof("Added %d messages to mailbox %q", seedCount, info.Name)
	return nil
}
