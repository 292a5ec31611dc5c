package main

import (
	"os"

	"github.com/lanathlor/Forge-sub000/cli"
	"github.com/lanathlor/Forge-sub000/cmd"
	"github.com/lanathlor/Forge-sub000/config"
	"github.com/lanathlor/Forge-sub000/logging"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"forge",
		"Live status board and stuck-session alerts for agent-driven repositories",
	)

	// File logging follows the config when one is present; flags still
	// override per command.
	if cfg, err := config.LoadDefault(); err == nil {
		logging.Apply(cfg.Logging)
	}

	rootCmd.AddCommand(cmd.NewWatchCmd())
	rootCmd.AddCommand(cmd.NewStatusCmd())
	rootCmd.AddCommand(cmd.NewAckCmd())
	rootCmd.AddCommand(cmd.NewSelectCmd())
	rootCmd.AddCommand(cmd.NewConfigCmd())
	rootCmd.AddCommand(cli.NewVersionCommand("forge"))

	cli.SetStyledHelp(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
