package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lanathlor/Forge-sub000/cli"
	"github.com/lanathlor/Forge-sub000/internal/hub"
)

// NewAckCmd creates the `ack` command
func NewAckCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"ack <repository>",
		"Acknowledge the stuck alert for a repository",
	)
	cmd.Long = `Marks the active stuck alert for the given repository as acknowledged.
The alert keeps tracking how long the session has been stuck, but the
repository no longer demands attention. Acknowledging a repository with
no alert is a no-op.`
	cmd.Args = cobra.ExactArgs(1)

	cmd.Flags().Duration("timeout", 10*time.Second, "How long to wait for the first snapshot")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		handler := cli.NewErrorHandler(cli.GetOptions(cmd).Verbose)
		repositoryID := args[0]

		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return handler.Handle(err)
		}

		h := hub.New(cfg)
		defer h.Stop()

		obs, err := h.Subscribe(nil)
		if err != nil {
			return handler.Handle(err)
		}
		defer obs.Unsubscribe()

		// Wait for state to arrive so the acknowledgment lands on the
		// current alert set rather than an empty store.
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if _, err := waitForSnapshot(obs, timeout); err != nil {
			return handler.Handle(err)
		}

		if err := h.Acknowledge(repositoryID); err != nil {
			return handler.Handle(err)
		}

		color.Green("✓ acknowledged %s", repositoryID)
		return nil
	}

	return cmd
}

// NewSelectCmd creates the `select` command
func NewSelectCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"select <n>",
		"Print the Nth highest-priority repository",
	)
	cmd.Long = `Waits for the first snapshot and prints the repository at the given
position in the ranked view (1-based). Useful for keybinding integrations
that jump to "the most urgent repo" or "the second one".`
	cmd.Args = cobra.ExactArgs(1)

	cmd.Flags().Duration("timeout", 10*time.Second, "How long to wait for the first snapshot")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		handler := cli.NewErrorHandler(cli.GetOptions(cmd).Verbose)

		var n int
		if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil || n < 1 {
			return fmt.Errorf("position must be a positive number, got %q", args[0])
		}

		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return handler.Handle(err)
		}

		h := hub.New(cfg)
		defer h.Stop()

		obs, err := h.Subscribe(nil)
		if err != nil {
			return handler.Handle(err)
		}
		defer obs.Unsubscribe()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		if _, err := waitForSnapshot(obs, timeout); err != nil {
			return handler.Handle(err)
		}

		entry := obs.SelectNth(n - 1)
		if entry == nil {
			return fmt.Errorf("no repository at position %d", n)
		}
		fmt.Println(entry.RepositoryID)
		return nil
	}

	return cmd
}
