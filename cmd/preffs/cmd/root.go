// Package cmd implements the preffs command tree.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/d70-t/preffs"
	"github.com/d70-t/preffs/config"
)

// exitError carries a process exit code without printing anything.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app holds state shared by subcommands once flags are parsed.
type app struct {
	configPath   string
	manifestPath string

	cfg    *config.Config
	logger *slog.Logger
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "preffs",
		Short:         "Read files assembled from reference manifests",
		Long:          "preffs serves a read-only filesystem whose files are assembled from inline bytes and byte ranges of local, HTTP, S3 or OCI objects.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: ~/.config/preffs/config.yaml)")
	pf.StringVarP(&a.manifestPath, "manifest", "m", "", "manifest file")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (text, json)")
	pf.Int("max-concurrency", 0, "maximum backend requests in flight (0 = unbounded)")
	pf.Int("listing-cache", 0, "number of directory listings to memoize")

	root.AddCommand(
		newCatCmd(a),
		newLsCmd(a),
		newStatCmd(a),
		newExistsCmd(a),
		newConvertCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = config.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	return nil
}

// open loads the manifest named by --manifest.
func (a *app) open(ctx context.Context) (*preffs.FS, error) {
	if a.manifestPath == "" {
		return nil, errors.New("no manifest given (use --manifest)")
	}
	opts, err := config.Options(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	return preffs.Open(ctx, a.manifestPath, opts...)
}
