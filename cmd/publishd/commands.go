package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"publishd/internal/deploy"
	"publishd/internal/di"
	"publishd/internal/models"
	"publishd/internal/structures"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "/etc/publishd/config.yaml"

func newRootCmd() *cobra.Command {
	flags := &structures.CliFlags{}

	rootCmd := &cobra.Command{
		Use:           "publishd",
		Short:         "Archives changed pages and deploys queued site changes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", defaultConfigPath, "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.DebugMode, "debug", "d", false, "log to the console as well")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newArchiveCmd(flags),
		newDeployCmd(flags),
		newEnqueueCmd(flags),
	)
	return rootCmd
}

func newServeCmd(flags *structures.CliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scheduler and the deploy queue watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := di.InitApp(flags)
			return err
		},
	}
}

func newArchiveCmd(flags *structures.CliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Archive every published entity whose inputs changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := di.InitArchival(flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := service.Run(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newDeployCmd(flags *structures.CliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Bake and publish everything queued, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := di.InitDeploy(flags)
			if err != nil {
				return err
			}
			defer tasks.Logger.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := tasks.Orchestrator.DeployIfQueueIsNotEmpty(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			status, err := tasks.Orchestrator.Status()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
}

func newEnqueueCmd(flags *structures.CliFlags) *cobra.Command {
	var change models.DeployChange

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Append a change to the deploy queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if change.Message == "" {
				return errors.New("--message is required")
			}
			tasks, err := di.InitDeploy(flags)
			if err != nil {
				return err
			}
			defer tasks.Logger.Close()

			change.TimeISOString = time.Now().UTC().Format(deploy.ISOTimeLayout)
			if err := tasks.Queue.Enqueue(change); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "queued")
			return nil
		},
	}
	cmd.Flags().StringVarP(&change.Message, "message", "m", "", "change description used in the deploy commit")
	cmd.Flags().StringVar(&change.Slug, "slug", "", "page slug; makes the change eligible for a lightning deploy")
	cmd.Flags().StringVar(&change.AuthorName, "author-name", os.Getenv("USER"), "author credited in the commit")
	cmd.Flags().StringVar(&change.AuthorEmail, "author-email", "", "author email credited in the commit")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
