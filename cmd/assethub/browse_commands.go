package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CageChen/assethub/internal/asset"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder]",
		Short: "List the folders and asset files inside a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := ctx.repository()
			if err != nil {
				return err
			}
			folder := repo.Folder(firstArg(args))
			if !folder.Exists() {
				return fmt.Errorf("%w: folder %s", asset.ErrNotFound, folder)
			}
			out := cmd.OutOrStdout()
			for child, err := range folder.ChildFolders() {
				if err != nil {
					return err
				}
				fmt.Fprintln(out, child)
			}
			for child, err := range folder.ChildFiles() {
				if err != nil {
					return err
				}
				fmt.Fprintln(out, child)
			}
			return nil
		},
	}
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <folder> <prefix>",
		Short: "Find asset files whose name starts with a prefix",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := ctx.repository()
			if err != nil {
				return err
			}
			for file, err := range repo.Folder(args[0]).SearchFiles(args[1]) {
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), file)
			}
			return nil
		},
	}
}

func newGlobCommand(ctx *commandContext) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "glob <pattern>",
		Short: "List assets and folders matching a glob pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := ctx.repository()
			if err != nil {
				return err
			}
			for node, err := range repo.Folder(in).Glob(args[0]) {
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), node)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Folder to match the pattern against")
	return cmd
}

func newDumpCommand(ctx *commandContext) *cobra.Command {
	var types []string
	var single bool

	cmd := &cobra.Command{
		Use:   "dump <asset>",
		Short: "Print the exports of an asset as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if single && len(types) == 0 {
				return fmt.Errorf("--single requires at least one --type")
			}
			repo, err := ctx.repository()
			if err != nil {
				return err
			}
			file := repo.File(args[0])

			var value any
			switch {
			case single:
				value, err = file.SingleExportOfTypes(cmd.Context(), types...)
			case len(types) > 0:
				seq, serr := file.ExportsOfTypes(cmd.Context(), types...)
				if serr != nil {
					return serr
				}
				exports := []asset.Export{}
				for e := range seq {
					exports = append(exports, e)
				}
				value = exports
			default:
				value, err = file.Data(cmd.Context())
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(value)
		},
	}

	cmd.Flags().StringArrayVarP(&types, "type", "t", nil, "Only print exports of this type (repeatable)")
	cmd.Flags().BoolVar(&single, "single", false, "Require exactly one matching export")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
