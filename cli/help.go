package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	titleStyle   = color.New(color.FgYellow, color.Bold)
	sectionStyle = color.New(color.FgYellow, color.Italic)
	cmdStyle     = color.New(color.FgCyan)
	flagStyle    = color.New(color.FgHiBlack)
	mutedStyle   = color.New(color.FgHiBlack)
)

// SetStyledHelp applies consistent Forge styling to a command's help
// output. Call this on the root command and its subcommands before
// Execute().
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
	for _, sub := range cmd.Commands() {
		SetStyledHelp(sub)
	}
}

func styledHelpFunc(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, " "+titleStyle.Sprint(strings.ToUpper(cmd.CommandPath())))

	if cmd.Long != "" {
		fmt.Fprintln(out, " "+strings.ReplaceAll(strings.TrimSpace(cmd.Long), "\n", "\n "))
	} else if cmd.Short != "" {
		fmt.Fprintln(out, " "+cmd.Short)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, " "+sectionStyle.Sprint("USAGE"))
	fmt.Fprintln(out, "  "+cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(out)
		fmt.Fprintln(out, " "+sectionStyle.Sprint("COMMANDS"))
		for _, sub := range cmd.Commands() {
			if !sub.IsAvailableCommand() {
				continue
			}
			fmt.Fprintf(out, "  %s %s\n",
				cmdStyle.Sprintf("%-10s", sub.Name()), sub.Short)
		}
	}

	if cmd.HasAvailableFlags() {
		fmt.Fprintln(out)
		fmt.Fprintln(out, " "+sectionStyle.Sprint("FLAGS"))
		printFlags(cmd, out)
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(out)
		mutedStyle.Fprintf(out, " Run '%s <command> --help' for details.\n", cmd.CommandPath())
	}
}

func printFlags(cmd *cobra.Command, out io.Writer) {
	visit := func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := "    --" + f.Name
		if f.Shorthand != "" {
			name = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
		}
		fmt.Fprintf(out, "  %s  %s\n", flagStyle.Sprintf("%-16s", name), f.Usage)
	}
	cmd.LocalFlags().VisitAll(visit)
	cmd.InheritedFlags().VisitAll(visit)
}
