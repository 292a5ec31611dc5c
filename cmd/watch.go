package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lanathlor/Forge-sub000/cli"
	"github.com/lanathlor/Forge-sub000/config"
	"github.com/lanathlor/Forge-sub000/internal/hub"
	"github.com/lanathlor/Forge-sub000/internal/rank"
)

// NewWatchCmd creates the `watch` command
func NewWatchCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"watch",
		"Watch live repository status and stuck alerts",
	)
	cmd.Long = `Connects to the upstream status endpoint and repaints a ranked board of
repositories as sessions report activity. Stuck sessions raise alerts that
escalate over time; acknowledged alerts keep counting but stop demanding
attention.`

	cmd.Flags().Bool("all", false, "Show every repository, not just active work")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		logger := cli.GetLogger(cmd)
		handler := cli.NewErrorHandler(cli.GetOptions(cmd).Verbose)

		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return handler.Handle(err)
		}

		h := hub.New(cfg)
		defer h.Stop()

		showAll, _ := cmd.Flags().GetBool("all")
		var filter rank.Filter
		if !showAll {
			filter = rank.ActiveWork(cfg.Display.ActiveWindow.Std(), time.Now)
		}

		obs, err := h.Subscribe(filter)
		if err != nil {
			return handler.Handle(err)
		}
		defer obs.Unsubscribe()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// Hot reload: threshold and display changes apply without restart.
		if cwd, cerr := os.Getwd(); cerr == nil {
			if path := config.FindConfigFile(cwd); path != "" {
				watcher, werr := config.NewWatcher(path, 0, func(next *config.Config) {
					h.ApplyConfig(next)
				})
				if werr != nil {
					logger.WithError(werr).Warn("Config watcher unavailable")
				} else {
					go watcher.Run(ctx)
				}
			}
		}

		board := cli.NewBoard(os.Stdout, true)
		repaint := time.NewTicker(time.Second)
		defer repaint.Stop()

		var last hub.Update
		for {
			select {
			case <-ctx.Done():
				return nil
			case update, ok := <-obs.Updates():
				if !ok {
					return nil
				}
				last = update
				board.Render(update.Ranked, update.Alerts, update.Connection, obs.Clock().Seconds)
			case <-repaint.C:
				// The live counters advance even when no event arrives.
				board.Render(last.Ranked, last.Alerts, h.ConnectionState(), obs.Clock().Seconds)
			}
		}
	}

	return cmd
}

// NewStatusCmd creates the `status` command
func NewStatusCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"status",
		"Print a one-shot snapshot of repository status",
	)
	cmd.Long = `Connects, waits for the first snapshot, prints the ranked repository list
with any stuck alerts, and exits. With --json the raw snapshot is emitted
for scripting.`

	cmd.Flags().Bool("all", false, "Show every repository, not just active work")
	cmd.Flags().Duration("timeout", 10*time.Second, "How long to wait for the first snapshot")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		handler := cli.NewErrorHandler(cli.GetOptions(cmd).Verbose)

		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return handler.Handle(err)
		}

		h := hub.New(cfg)
		defer h.Stop()

		showAll, _ := cmd.Flags().GetBool("all")
		var filter rank.Filter
		if !showAll {
			filter = rank.ActiveWork(cfg.Display.ActiveWindow.Std(), time.Now)
		}

		obs, err := h.Subscribe(filter)
		if err != nil {
			return handler.Handle(err)
		}
		defer obs.Unsubscribe()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		update, err := waitForSnapshot(obs, timeout)
		if err != nil {
			return handler.Handle(err)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			payload := map[string]interface{}{
				"repositories": update.Ranked,
				"alerts":       update.Alerts,
				"connection":   update.Connection,
			}
			data, merr := json.MarshalIndent(payload, "", "  ")
			if merr != nil {
				return merr
			}
			fmt.Println(string(data))
			return nil
		}

		board := cli.NewBoard(os.Stdout, false)
		board.Render(update.Ranked, update.Alerts, update.Connection, nil)
		board.RenderSummary(update.Alerts)

		if serr := h.StaleWarning(cfg.Display.ActiveWindow.Std()); serr != nil {
			handler.Handle(serr)
		}
		return nil
	}

	return cmd
}

// waitForSnapshot blocks until the observer delivers a snapshot update.
// On timeout it falls back to whatever update arrived last, so a dead
// endpoint still prints the connection state instead of hanging.
func waitForSnapshot(obs *hub.Observer, timeout time.Duration) (hub.Update, error) {
	var last hub.Update
	var seen bool

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case update, ok := <-obs.Updates():
			if !ok {
				return last, fmt.Errorf("subscription closed before a snapshot arrived")
			}
			last = update
			seen = true
			if update.Type == hub.UpdateSnapshot {
				return update, nil
			}
		case <-deadline.C:
			if seen {
				return last, nil
			}
			return last, fmt.Errorf("no status received within %s", timeout)
		}
	}
}
