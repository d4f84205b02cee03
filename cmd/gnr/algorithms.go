package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/busyhour/internal/models"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List the busy-window algorithms",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, alg := range models.Algorithms {
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", alg, alg.Description())
		}
	},
}
