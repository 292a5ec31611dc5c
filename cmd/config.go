package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lanathlor/Forge-sub000/cli"
	"github.com/lanathlor/Forge-sub000/config"
)

// NewConfigCmd creates the `config` command
func NewConfigCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"config",
		"Inspect the effective configuration",
	)

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

// newConfigShowCmd creates the `config show` subcommand
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after defaults and overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler := cli.NewErrorHandler(cli.GetOptions(cmd).Verbose)

			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return handler.Handle(err)
			}

			jsonOutput, _ := cmd.Flags().GetBool("json")
			if jsonOutput {
				data, merr := json.MarshalIndent(cfg, "", "  ")
				if merr != nil {
					return merr
				}
				fmt.Println(string(data))
				return nil
			}

			data, merr := yaml.Marshal(cfg)
			if merr != nil {
				return merr
			}
			fmt.Print(string(data))
			return nil
		},
	}
	return cmd
}

// newConfigPathCmd creates the `config path` subcommand
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the path of the config file in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
				fmt.Println(configFile)
				return nil
			}

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}

			found := config.FindConfigFile(cwd)
			if found == "" {
				fmt.Println("(built-in defaults, no forge.yml found)")
				return nil
			}
			fmt.Println(found)
			return nil
		},
	}
	return cmd
}
