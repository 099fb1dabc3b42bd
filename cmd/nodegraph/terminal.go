package main

import (
	"os"

	"github.com/aretw0/nodegraph/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// isTerminal reports whether the command writes to a terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && tui.IsTerminal(f)
}
