package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"strand/internal/bootstrap"
	"strand/internal/chanio"
)

var (
	doctorOKColor      = color.New(color.FgGreen)
	doctorDiscardColor = color.New(color.FgYellow)
	doctorFailColor    = color.New(color.FgRed, color.Bold)
	doctorDimColor     = color.New(color.Faint)
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the process channel wiring",
	Long:  `Runs channel bootstrap and prints how each of the six channels came up: live endpoint or discard substitute, direction and encoding.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		set, err := bootstrap.Establish()
		if err != nil {
			doctorFailColor.Fprintln(os.Stderr, "bootstrap failed")
			return err
		}

		if bootstrap.ManifestPresent(os.Getenv) {
			fmt.Fprintln(out, "wiring: handle manifest")
		} else {
			fmt.Fprintln(out, "wiring: inherited descriptors")
		}
		fmt.Fprintln(out)

		for i := 0; i < chanio.NumChannels; i++ {
			ch := set.Get(chanio.ID(i)) //nolint:gosec // i < NumChannels
			state := doctorOKColor.Sprint("live")
			if ch.Discarded() {
				state = doctorDiscardColor.Sprint("discard")
			}
			fmt.Fprintf(out, "  %d  %-12s %-4s %-7s %s\n",
				i, ch.Name(), ch.Direction(), ch.Encoding(), state)
		}

		fmt.Fprintln(out)
		doctorDimColor.Fprintln(out, "discard channels accept writes and report EOF on read")
		return nil
	},
}
