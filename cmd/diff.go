package cmd

import (
	"fmt"

	"github.com/relloyd/songlake/actions"
	"github.com/relloyd/songlake/constants"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: `Compare an analytical table across two connections and report differences`,
	Long: `Compare the rows of an analytical table found at two connections:

- Verify that replicated or re-run output agrees with a reference copy
- Differences are reported as JSON lines on STDOUT
`,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	initDiffTable()
}

func initDiffTable() {
	diffCmd.AddCommand(diffTableCmd)
	diffTableCmd.Flags().SortFlags = false
	diffTableCmd.SilenceUsage = true // avoid dumping command help amongst diff records on STDOUT.
	addFlagsDiffTableCore(diffTableCmd, &diffTableCfg)
}

// TABLE SETUP

var diffTableCfg = actions.DiffConfig{}
var diffTableCmd = &cobra.Command{
	Use:   "table " + argsDefinitionTxtDiff,
	Short: "Compare an analytical table across source and target connections (optionally loop)",
	Long: fmt.Sprintf(`Compare records of one analytical table across two connections using a sorted
merge-diff, where each side is read via the table's latest run manifest.

Records with differences are output in JSON format separated by new lines,
where the source is considered the new dataset and the target is the old
(reference) data.

A field called %v is added to the output to show whether a record is either
NEW, CHANGED or DELETED in the source compared to the target.

If no differences are found the return code will be 0, else 1.

- The table's primary key drives the sort and join so no key flags are required
- Optionally choose the number of differences allowed before exiting
- Supported <source-connection>-<target-connection> combinations are:

%v
`, constants.DiffStatusFieldName, actions.GetSupportedDiffConnectionTypes()),
	Args: getConnectionsArgsFunc(&diffTableCfg.SourceString, &diffTableCfg.TargetString, "requires "+argsDefinitionTxtDiff),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiffTable()
	},
}

func runDiffTable() error {
	diffTableCfg.Connections = getConnectionHandler()
	diffTableCfg.StackDumpOnPanic = stackDumpOnPanic
	// Get connection types.
	sourceType, err := diffTableCfg.Connections.GetConnectionType(diffTableCfg.SourceString.GetConnectionName())
	if err != nil {
		return err
	}
	targetType, err := diffTableCfg.Connections.GetConnectionType(diffTableCfg.TargetString.GetConnectionName())
	if err != nil {
		return err
	}
	return actions.ActionLauncher(&diffTableCfg, actions.GetDiffTableAction, sourceType, targetType)
}

// TABLE FLAGS

func addFlagsDiffTableCore(c *cobra.Command, cfg *actions.DiffConfig) {
	switches.addFlag(c, &cfg.AbortAfterNumRecords, "abort-after", "0", false, "")
	switches.addFlag(c, &cfg.OutputAllDiffFields, "output-all-fields", "", false, "")
	switches.addFlag(c, &cfg.OutputIdenticalRows, "output-identical", "", false, "")
	// General
	switches.addFlag(c, &cfg.RepeatInterval, "repeat", "0", false, "")
	switches.addFlag(c, &cfg.LogLevel, "log-level", "error", false, "")
	switches.addFlag(c, &cfg.ExportConfigType, "output", "", false, "")
	switches.addFlag(c, &cfg.ExportIncludeConnections, "include-connections", "", false, "")
	switches.addFlag(c, &cfg.StatsDumpFrequencySeconds, "stats", "5", false, "")
}
