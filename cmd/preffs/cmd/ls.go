package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLsCmd(a *app) *cobra.Command {
	var long bool
	c := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			entries, err := fsys.ListDirectory(dir)
			if err != nil {
				return err
			}

			if !long {
				for _, e := range entries {
					fmt.Fprintln(cmd.OutOrStdout(), e.Name)
				}
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\t %s\n", e.Kind, e.Size, e.Name)
			}
			return tw.Flush()
		},
	}
	c.Flags().BoolVarP(&long, "long", "l", false, "show kind and size")
	return c
}

func newStatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Describe a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			e, err := fsys.Stat(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "name: %s\nsize: %d\ntype: %s\n", e.Name, e.Size, e.Kind)
			return nil
		},
	}
}

func newExistsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <path>",
		Short: "Exit 0 if a path exists, 1 otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			ok := fsys.Exists(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			if !ok {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}
