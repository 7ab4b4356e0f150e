package cmd

import (
	"fmt"

	"github.com/relloyd/songlake/actions"
	"github.com/relloyd/songlake/constants"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: `Query the analytical tables written by a run`,
	Long: `Query an analytical table by reading its latest run manifest:

- Stream rows to STDOUT as JSON lines
- Optionally extract rows to local CSV files instead
- Optionally cap the number of rows fetched to peek at a table
`,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	initQueryTable()
}

func initQueryTable() {
	queryCmd.AddCommand(queryTableCmd)
	queryTableCmd.Flags().SortFlags = false
	addFlagsQueryTableCore(queryTableCmd, &queryTableCfg)
}

// TABLE SETUP

var queryTableCfg = actions.QueryConfig{}
var queryTableCmd = &cobra.Command{
	Use:   "table " + argsDefinitionTxtQuery,
	Short: "Fetch rows of an analytical table and print them on STDOUT (or extract them as CSV)",
	Long: fmt.Sprintf(`SongLake finds the latest manifest for the given table and reads the parquet
files it lists, so only files that belong to the most recent completed run are fetched:

- Rows are printed as one JSON object per line (use 'max-rows' to peek)
- Supply 'csv-dir' to extract rows to CSV files instead
- Supported <connection> types are:

%v
`, actions.GetSupportedQueryConnectionTypes()),
	Args: getConnectionArgsFunc(&queryTableCfg.SourceString, "requires "+argsDefinitionTxtQuery),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true // avoid dumping command help amongst rows on STDOUT.
		return runQueryTable()
	},
}

func runQueryTable() error {
	queryTableCfg.Connections = getConnectionHandler()
	queryTableCfg.StackDumpOnPanic = stackDumpOnPanic
	// Get the source connection type; the target is always STDOUT.
	sourceType, err := queryTableCfg.Connections.GetConnectionType(queryTableCfg.SourceString.GetConnectionName())
	if err != nil {
		return err
	}
	return actions.ActionLauncher(&queryTableCfg, actions.GetQueryTableAction, sourceType, constants.ConnectionTypeStdout)
}

// TABLE FLAGS

func addFlagsQueryTableCore(c *cobra.Command, cfg *actions.QueryConfig) {
	switches.addFlag(c, &cfg.MaxRows, "max-rows", "0", false, "")
	switches.addFlag(c, &cfg.CsvOutputDir, "csv-dir", "", false, "")
	// General
	switches.addFlag(c, &cfg.LogLevel, "log-level", "error", false, "")
}
