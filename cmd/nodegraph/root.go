package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "nodegraph",
		Short: "nodegraph manages node-graph flow chart documents",
		Long: `nodegraph validates, converts, visualizes and runs flow chart documents.

A document argument ending in .yaml, .yml, .json, .msgpack (optionally
followed by .zst) is a file; anything else names a document in the
configured store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "nodegraph.yaml", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the configuration")

	rootCmd.AddCommand(
		newInitCmd(a),
		newValidateCmd(a),
		newGraphCmd(a),
		newInspectCmd(a),
		newConvertCmd(a),
		newListCmd(a),
		newRunCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}
