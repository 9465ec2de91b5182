package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DachengChen/dbchat/config"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the dbchat config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective settings to a config file",
	Long: `Writes the settings dbchat would run with (defaults, file,
DBCHAT_* environment and flags combined) as YAML. The default path is
~/.dbchat/config.yaml. An existing file is kept unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultFile()
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Wrote %s", path)
	return nil
}
