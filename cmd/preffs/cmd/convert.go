package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/d70-t/preffs/manifest"
)

func newConvertCmd(a *app) *cobra.Command {
	var format, compress string
	c := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Re-encode a manifest",
		Long:  "Read a manifest in any supported encoding and write it as flatbuffers, cbor or yaml, optionally zstd or lz4 compressed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := manifest.ParseFormat(format)
			if err != nil {
				return err
			}
			comp, err := manifest.ParseCompression(compress)
			if err != nil {
				return err
			}

			records, err := manifest.ReadFile(args[0])
			if err != nil {
				return err
			}
			data, err := manifest.Encode(records, f)
			if err != nil {
				return err
			}
			if data, err = manifest.Compress(data, comp); err != nil {
				return err
			}
			if err := os.WriteFile(args[1], data, 0o644); err != nil { //nolint:gosec // manifests are not secret
				return fmt.Errorf("write %s: %w", args[1], err)
			}
			a.logger.Info("manifest converted", "rows", len(records), "format", f, "compression", comp, "bytes", len(data))
			return nil
		},
	}
	c.Flags().StringVar(&format, "format", "flatbuffers", "output encoding (flatbuffers, cbor, yaml)")
	c.Flags().StringVar(&compress, "compress", "none", "outer compression (none, zstd, lz4)")
	return c
}
