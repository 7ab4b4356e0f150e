package cmd

import (
	"fmt"

	"github.com/relloyd/songlake/actions"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: `Run the batch that builds the analytical tables from raw JSON`,
	Long: `Run a batch action against source and target connections:

- Read song metadata and activity-log JSON from the source
- Derive the songs, artists, users, time and songplays tables
- Write each table as partitioned snappy parquet with a run manifest
- Overwrite the previous snapshot so runs are idempotent
- Optionally refresh data without a scheduler, loop with a timer
`,
}

func init() {
	rootCmd.AddCommand(runCmd)
	initRunEtl()
}

func initRunEtl() {
	runCmd.AddCommand(runEtlCmd)
	runEtlCmd.Flags().SortFlags = false
	addFlagsRunEtlCore(runEtlCmd, &runEtlCfg)
}

// ETL SETUP

var runEtlCfg = actions.RunConfig{}
var runEtlCmd = &cobra.Command{
	Use:   "etl " + argsDefinitionTxtEtl,
	Short: "Build the songs, artists, users, time and songplays tables from raw JSON (optionally loop)",
	Long: fmt.Sprintf(`SongLake reads song metadata and activity-log JSON from the source connection and
writes the five analytical tables to the target connection as partitioned snappy parquet:

- Each table is rebuilt in full and its previous snapshot removed in the same run
- A manifest per table records the files that make up the new snapshot
- Skipped and unmatched records are counted and reported at the end of the run
- Supported <source-connection>-<target-connection> combinations are:

%v
`, actions.GetSupportedEtlConnectionTypes()),
	Args: getConnectionsArgsFunc(&runEtlCfg.SourceString, &runEtlCfg.TargetString, ""),
	RunE: func(cmd *cobra.Command, args []string) error {
		return func() error {
			err := runEtl() // may disable usage based on output to STDOUT.
			if silenceUsage {
				cmd.SilenceUsage = true
			}
			return err
		}()
	},
}

func runEtl() error {
	runEtlCfg.Connections = getConnectionHandler()
	runEtlCfg.StackDumpOnPanic = stackDumpOnPanic
	// Get connection types.
	sourceType, err := runEtlCfg.Connections.GetConnectionType(runEtlCfg.SourceString.GetConnectionName())
	if err != nil {
		return err
	}
	targetType, err := runEtlCfg.Connections.GetConnectionType(runEtlCfg.TargetString.GetConnectionName())
	if err != nil {
		return err
	}
	if runEtlCfg.ExportConfigType != "" { // if the pipe definition will be written to STDOUT...
		silenceUsage = true // disable usage via global variable so 12Factor mode can continue to work.
	}
	return actions.ActionLauncher(&runEtlCfg, actions.GetRunEtlAction, sourceType, targetType)
}

// ETL FLAGS

func addFlagsRunEtlCore(c *cobra.Command, cfg *actions.RunConfig) {
	switches.addFlag(c, &cfg.StagingDirectory, "staging-dir", "", false, "")
	switches.addFlag(c, &cfg.AbortAfterNumErrors, "abort-after-errors", "0", false, "")
	// General
	switches.addFlag(c, &cfg.RepeatInterval, "repeat", "0", false, "")
	switches.addFlag(c, &cfg.LogLevel, "log-level", "warn", false, "")
	switches.addFlag(c, &cfg.ExportConfigType, "output", "", false, "")
	switches.addFlag(c, &cfg.ExportIncludeConnections, "include-connections", "", false, "")
	switches.addFlag(c, &cfg.StatsDumpFrequencySeconds, "stats", "5", false, "")
}
