package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     "streakd",
		Short:   "streakd - habit streaks, protection days and reminders",
		Version: Version,
		// Running without a subcommand opens the TUI.
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $STREAKD_CONFIG)")

	rootCmd.AddCommand(tuiCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(addCmd())
	for _, verb := range []string{"done", "undo", "protect", "skip", "unskip"} {
		rootCmd.AddCommand(markCmd(verb))
	}
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(nextCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "streakd: %v\n", err)
		os.Exit(1)
	}
}
