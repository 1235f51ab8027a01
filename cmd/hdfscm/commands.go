package main

import (
	"context"
	"fmt"

	"github.com/Automattic/hdfscm/internal/configuration"
	"github.com/Automattic/hdfscm/internal/transfer"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	cpuProfile string
	memProfile string

	cfg *configuration.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "hdfscm",
		Short:         "Notebook contents stored in HDFS",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "dotenv file with HDFSCM_ settings (environment wins)")
	cmd.PersistentFlags().StringVar(&opts.cpuProfile, "cpuprofile", "", "write cpu profile to file")
	cmd.PersistentFlags().StringVar(&opts.memProfile, "memprofile", "", "write allocation profile to file")

	cmd.AddCommand(
		newServeCmd(opts),
		newEnsureRootCmd(opts),
		newTransferCmd(opts, transfer.Push),
		newTransferCmd(opts, transfer.Pull),
	)

	return cmd
}

func (opts *rootOptions) load() error {
	loader := configuration.NewLoader(&configuration.ConfigProviderImpl{
		GenericConfigReader: &configuration.GodotenvProvider{},
	})

	var files []string
	if opts.configFile != "" {
		files = append(files, opts.configFile)
	}

	cfg, err := loader.Load(files...)
	if err != nil {
		return err
	}

	if err := setLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	opts.cfg = cfg

	return nil
}

func (opts *rootOptions) withApp(ctx context.Context, fn func(*App) error) error {
	prof := startProfiler(opts.cpuProfile, opts.memProfile)
	defer prof.Stop()

	app, err := NewApp(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(app)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the contents REST api",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				opts.cfg.Listen = listen
			}

			return opts.withApp(cmd.Context(), func(app *App) error {
				return app.Serve(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "address to listen on (overrides HDFSCM_LISTEN)")

	return cmd
}

func newEnsureRootCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-root",
		Short: "Create the personal root directory and its shared link directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(app *App) error {
				if err := app.EnsureRoot(cmd.Context()); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), app.contentsHandler.InfoString())

				return nil
			})
		},
	}
}

func newTransferCmd(opts *rootOptions, dir transfer.Direction) *cobra.Command {
	topts := transferOptions{}

	cmd := &cobra.Command{
		Use:   "push LOCAL_DIR [API_DIR]",
		Short: "Upload a local directory tree",
		Args:  cobra.RangeArgs(1, 2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			topts.LocalDir = args[0]
			if len(args) > 1 {
				topts.APIDir = args[1]
			}

			return opts.withApp(cmd.Context(), func(app *App) error {
				_, err := app.Transfer(cmd.Context(), dir, topts)

				return err
			})
		},
	}

	if dir == transfer.Pull {
		cmd.Use = "pull API_DIR LOCAL_DIR"
		cmd.Short = "Download a directory tree"
		cmd.Args = cobra.ExactArgs(2) //nolint:mnd
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			topts.APIDir = args[0]
			topts.LocalDir = args[1]

			return opts.withApp(cmd.Context(), func(app *App) error {
				_, err := app.Transfer(cmd.Context(), dir, topts)

				return err
			})
		}
	}

	cmd.Flags().BoolVar(&topts.UI, "ui", false, "show a progress view")
	cmd.Flags().IntVarP(&topts.Workers, "workers", "w", transfer.DefaultWorkers, "files transferred in parallel")
	cmd.Flags().IntVar(&topts.MaxRetries, "retries", transfer.DefaultMaxRetries, "retries per file on transient errors")
	cmd.Flags().BoolVar(&topts.Overwrite, "overwrite", false, "replace files that already exist at the destination")

	return cmd
}
