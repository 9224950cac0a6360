package main

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"strand/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "strand",
	Short: "Strand async runtime harness",
	Long:  `Strand is a cooperative M:N async task runtime; this harness inspects and exercises it`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(benchCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().String("config", "", "path to strand.toml (default: search upward)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		mode, _ := cmd.Flags().GetString("color")
		switch strings.TrimSpace(strings.ToLower(mode)) {
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		default:
			color.NoColor = !isTerminal(os.Stdout)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
