// Package main is the aggbridge ingestion job driver.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"aggbridge/internal/core/version"
	"aggbridge/internal/platform/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "aggbridge",
		Short:         "Ingestion and reconciliation jobs for Jira and SCM data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// .env is optional; real deployments set the environment directly
			_ = godotenv.Load()
			logger.Init(logger.FromEnv())
		},
	}

	root.AddCommand(newVersionCmd(), newJiraCmd(), newSCMCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "aggbridge:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Info()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s)\n", info.Service, info.Version, info.Commit, info.Date)
		},
	}
}
