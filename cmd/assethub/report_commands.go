package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CageChen/assethub/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate reports from asset data",
	}
	cmd.AddCommand(newDialogsReportCommand(ctx))
	cmd.AddCommand(newMissionsReportCommand(ctx))
	cmd.AddCommand(newMaxPathReportCommand(ctx))
	return cmd
}

func newDialogsReportCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "dialogs <folder>",
		Short: "Write the dialog lines below each subfolder to CSV files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := ctx.repository()
			if err != nil {
				return err
			}
			summary, err := report.Dialogs(cmd.Context(), repo.Folder(args[0]), outDir, ctx.logger)
			if err != nil {
				return err
			}
			ctx.logger.Info("dialogs written",
				zap.String("out", outDir),
				zap.Int("files", len(summary.Files)),
				zap.Int("styles", len(summary.Styles)),
				zap.Int("skipped", len(summary.Skipped)))
			for _, f := range summary.Files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "dialogs", "Output directory")
	return cmd
}

func newMissionsReportCommand(ctx *commandContext) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "missions <folder>",
		Short: "List the repeatable missions below a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := ctx.repository()
			if err != nil {
				return err
			}
			rep, err := report.RepeatableMissions(cmd.Context(), repo.Folder(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if markdown {
				_, err := out.Write(rep.Markdown())
				return err
			}
			fmt.Fprintln(out, "Repeatable missions:")
			for _, name := range rep.Repeatable {
				fmt.Fprintln(out, name)
			}
			if len(rep.Unknown) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Unknown:")
				for _, name := range rep.Unknown {
					fmt.Fprintln(out, name)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print the report as markdown")
	return cmd
}

func newMaxPathReportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "maxpath",
		Short: "Print the longest file path below the root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := ctx.repository()
			if err != nil {
				return err
			}
			longest, err := report.LongestPath(repo.Root().Abs())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", len(longest), longest)
			return nil
		},
	}
}
