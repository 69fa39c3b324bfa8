package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/brkheap/memutils"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "heapsim %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built: %s\n", date)
		fmt.Fprintf(out, "  word size: %d, header size: %d\n", memutils.WordSize, metadata.HeaderSize)
		fmt.Fprintf(out, "  debug validation: %t\n", memutils.DebugEnabled)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
