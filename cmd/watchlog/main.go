package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	root := newRootCmd(a)
	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "watchlog",
		Short: "Maintain the watch list behind the movie diary",
		Long: `watchlog backs up, cleans, enriches, verifies and restores the watched
movies and shows stored in Contentful, and prints the statistics the blog
serves.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config/config.yaml", "Path to the YAML config file")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Print reports as JSON")

	root.AddCommand(
		newBackupCmd(a),
		newCleanupCmd(a),
		newEnrichCmd(a),
		newVerifyCmd(a),
		newRestoreCmd(a),
		newRepublishCmd(a),
		newInspectCmd(a),
		newStatsCmd(a),
		newBuildPostsCmd(a),
	)
	return root
}
