// Package cmd contains all Cobra commands for dbchat.
//
// Design decision: the root command launches the TUI directly.
// Running `dbchat` with no arguments starts on the engine selection
// screen; `--engine` (and optionally `--dsn`) jump straight to the
// credential form. `dbchat chat` is the same session in a plain REPL.
package cmd

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DachengChen/dbchat/applog"
	"github.com/DachengChen/dbchat/config"
	"github.com/DachengChen/dbchat/tui"
)

var (
	cfgFile    string
	engineName string
	dsn        string

	// cfg is loaded once per invocation in PersistentPreRunE.
	cfg *config.Config
)

// errReported marks a failure the command already showed the user.
var errReported = errors.New("error already reported")

var rootCmd = &cobra.Command{
	Use:   "dbchat",
	Short: "Talk to your database in plain language",
	Long: `dbchat is a terminal client for a natural-language database assistant:
  • Connect the backend to PostgreSQL, MongoDB, MySQL or SQLite
  • Ask questions; the backend answers and proposes a query
  • Review the generated query and execute it explicitly
  • Browse tables and get a quick description with one key

Run 'dbchat' to start the TUI, or 'dbchat chat --engine mysql' for a REPL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		if err := applog.Init(cfg.Log.Dir, cfg.Log.Level); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		applog.Event("config", "loaded (file=%q backend=%s)", cfg.File, cfg.Backend.URL)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		applog.Close()
	},
	// Running with no subcommand launches the TUI.
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, prefill, err := resolveTarget(engineName, dsn, false)
		if err != nil {
			return err
		}
		return tui.Start(cfg, tui.Options{
			Version: Version,
			Engine:  engine,
			Prefill: prefill,
		})
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/.dbchat/config.yaml)")
	pf.String("backend", config.DefaultBackendURL, "backend base URL")
	pf.Duration("timeout", 0, "backend request timeout (0 = none)")
	pf.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	pf.String("style", config.DefaultStyle, "markdown style: auto, dark, light, notty")
	pf.Bool("demo", false, "use the offline demo backend")
	pf.StringVar(&engineName, "engine", "", "database engine: postgresql, mongodb, mysql, sqlite")
	pf.StringVar(&dsn, "dsn", "", "connection string used to prefill credentials")

	rootCmd.AddCommand(chatCmd, configCmd, versionCmd)
}

// Execute runs the root command and prints any error not already shown.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		pterm.Error.Println(err.Error())
	}
	return err
}
