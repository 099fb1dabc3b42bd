package main

import (
	"fmt"

	"github.com/aretw0/nodegraph/internal/presentation/graph"
	"github.com/aretw0/nodegraph/internal/presentation/tui"
	"github.com/aretw0/nodegraph/pkg/dsl"
	"github.com/aretw0/nodegraph/pkg/nodes"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init <document>",
		Short: "Write a sample flow chart document",
		Long:  `Builds a small flow chart (Start, Add 2 + 3, Log the sum) and writes it to a file or the store.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			b := dsl.New()
			b.Add("start", nodes.TypeStart).Go("sum")
			b.Add("sum", nodes.TypeAdd).
				At(200, 0).
				Set(nodes.PortA, 2).
				Set(nodes.PortB, 3).
				Go("print").
				Wire(nodes.PortSum, "print", nodes.PortMsg)
			b.Add("print", nodes.TypeLog).
				At(400, 0).
				Header("Result")
			g, err := b.Build(s.Registry())
			if err != nil {
				return err
			}
			if err := write(cmd.Context(), s, args[0], g.FlowChart); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <document>...",
		Short: "Check that documents load completely",
		Long:  `Loads every document and reports malformed records, unknown node types and unresolved port references.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			out := termenv.NewOutput(cmd.OutOrStdout())
			failed := 0
			for _, arg := range args {
				fc, err := load(cmd.Context(), s, arg)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", out.String("✗").Foreground(out.Color("1")), arg, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d nodes, %d connectors\n",
					out.String("✓").Foreground(out.Color("2")), arg, len(fc.Nodes()), len(fc.Connectors()))
			}
			if failed > 0 {
				return fmt.Errorf("validation failed for %d of %d documents", failed, len(args))
			}
			return nil
		},
	}
}

func newGraphCmd(a *app) *cobra.Command {
	var run bool
	cmd := &cobra.Command{
		Use:   "graph <document>",
		Short: "Export the flow chart as a Mermaid diagram",
		Long:  `Outputs a Mermaid diagram (graph LR) of the nodes and connectors. With --run the flow chart is executed first and nodes are styled by execution state.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			fc, err := load(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			var overlay *graph.GraphOverlay
			if run {
				if _, err := s.Run(cmd.Context(), fc); err != nil {
					a.logger.Warn("run failed; showing partial states", "error", err)
				}
				overlay = graph.StateOverlay(fc)
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(fc, overlay))
			return nil
		},
	}
	cmd.Flags().BoolVar(&run, "run", false, "Execute the flow chart and style nodes by execution state")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <document>",
		Short: "Summarize a flow chart",
		Long:  `Prints a markdown summary of the nodes and connectors, rendered for the terminal when attached to one.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			fc, err := load(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			render, err := tui.NewRenderer(isTerminal(cmd))
			if err != nil {
				return err
			}
			text, err := render(tui.FlowChartMarkdown(fc))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newConvertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <from> <to>",
		Short: "Re-encode a document",
		Long:  `Loads a document and writes it again. The output codec follows the extension of <to>, or the configured format for store names.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			fc, err := load(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			if err := write(cmd.Context(), s, args[1], fc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the documents in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			names, err := s.Documents(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <document>",
		Short: "Execute a flow chart",
		Long:  `Runs every entry node along its output flow connectors. Log nodes print to standard output.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			fc, err := load(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			steps, err := s.Run(cmd.Context(), fc)
			if err != nil {
				return err
			}
			a.logger.Info("run complete", "document", args[0], "steps", steps)
			return nil
		},
	}
}
