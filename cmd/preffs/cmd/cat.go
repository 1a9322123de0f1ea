package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/d70-t/preffs"
)

func newCatCmd(a *app) *cobra.Command {
	var (
		start, end      int64
		continueOnError bool
		recursive       bool
	)
	c := &cobra.Command{
		Use:   "cat <key>...",
		Short: "Print file contents",
		Long:  "Print the contents of one or more files. With --start/--end a single file is read partially.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if cmd.Flags().Changed("start") || cmd.Flags().Changed("end") {
				if len(args) != 1 {
					return fmt.Errorf("--start/--end need exactly one key, got %d", len(args))
				}
				r, err := rangeFlags(start, end)
				if err != nil {
					return err
				}
				data, err := fsys.ReadRange(cmd.Context(), args[0], r)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			policy := preffs.RaiseErrors
			if continueOnError {
				policy = preffs.ReturnErrors
			}
			res, err := fsys.CatMany(cmd.Context(), args,
				preffs.CatWithErrorPolicy(policy),
				preffs.CatWithRecursive(recursive),
			)
			if err != nil {
				return err
			}

			if res.Single {
				if _, err := out.Write(res.Data); err != nil {
					return err
				}
			} else {
				for _, key := range slices.Sorted(maps.Keys(res.Files)) {
					if _, err := out.Write(res.Files[key]); err != nil {
						return err
					}
				}
			}
			for _, key := range slices.Sorted(maps.Keys(res.Errors)) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", key, res.Errors[key])
			}
			if len(res.Errors) > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	c.Flags().Int64Var(&start, "start", 0, "first byte to read")
	c.Flags().Int64Var(&end, "end", -1, "byte after the last to read (-1 = end of file)")
	c.Flags().BoolVar(&continueOnError, "continue-on-error", false, "report failing keys and keep going")
	c.Flags().BoolVarP(&recursive, "recursive", "r", false, "expand directories to the files below them")
	return c
}

func rangeFlags(start, end int64) (preffs.Range, error) {
	if start < 0 {
		return preffs.Range{}, fmt.Errorf("--start must not be negative, got %d", start)
	}
	if end < 0 {
		return preffs.RangeFrom(uint64(start)), nil //nolint:gosec // checked non-negative
	}
	if end < start {
		return preffs.Range{}, fmt.Errorf("--end %d before --start %d", end, start)
	}
	return preffs.RangeBetween(uint64(start), uint64(end)), nil //nolint:gosec // checked non-negative
}
