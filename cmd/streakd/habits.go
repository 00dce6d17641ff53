package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/streakd/internal/commands"
	"github.com/sandeepkv93/streakd/internal/storage"
)

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <title> [every <schedule>] [target:N]",
		Short: "Create a habit",
		Long: `Create a habit. The schedule defaults to every day.

Examples:
  streakd add read every day
  streakd add gym every mon wed fri target:3
  streakd add review every month on 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlashCommand(cmd, "add", args)
		},
	}
}

var markUsage = map[string]string{
	"done":    "Mark a habit completed",
	"undo":    "Remove a completion",
	"protect": "Spend a protection day on a missed day",
	"skip":    "Except a day from the schedule",
	"unskip":  "Restore an excepted day",
}

func markCmd(verb string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <habit> [today|yesterday|-N|YYYY-MM-DD]",
		Short: markUsage[verb],
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlashCommand(cmd, verb, args)
		},
	}
}

// runSlashCommand executes the same command language the TUI palette
// accepts, so both front ends share parsing and messages.
func runSlashCommand(cmd *cobra.Command, verb string, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	parsed, err := commands.Parse(verb + " " + strings.Join(args, " "))
	if err != nil {
		return err
	}
	res, err := commands.Execute(parsed, commands.Bind(cmd.Context(), a.svc, ""))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	return nil
}

func migrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			if down {
				if err := storage.MigrateDown(a.repo.DB()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", a.cfg.DatabasePath)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", a.cfg.DatabasePath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back instead (drops all data)")
	return cmd
}
