package cmd

import (
	"github.com/relloyd/songlake/actions"

	"github.com/spf13/cobra"
)

var demoSetupCfg = actions.DemoSetupConfig{}

var demoSetupCmd = &cobra.Command{
	Use:   "install <connection-name>",
	Short: "Create demo raw JSON files with sample data to help test the run, query and diff actions.",
	Long: `Preview and optionally write sample raw JSON files to a connection,
ready to test an end-to-end build of the analytical tables.

This writes the following files below the connection root:

- Song metadata files under song_data/, including one song duplicated across two files
- An activity-log file under log_data/ holding plays, a page view and a malformed line
`,
	Args: getConnectionArgsFunc(&demoSetupCfg.SourceString, "requires a connection name to receive the demo files"),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getConnectionHandler()
		demoSetupCfg.StackDumpOnPanic = stackDumpOnPanic
		// Load connection details and setup the action config.
		var err error
		if demoSetupCfg.SrcConnDetails, err = c.GetConnectionDetails(demoSetupCfg.SourceString.GetConnectionName()); err != nil {
			return err
		}
		return actions.RunDemoSetup(&demoSetupCfg)
	},
}

func init() {
	demoCmd.AddCommand(demoSetupCmd)
	demoSetupCmd.Flags().SortFlags = false
	switches.addFlag(demoSetupCmd, &demoSetupCfg.WriteFiles, "write-files", "", false, "")
	switches.addFlag(demoSetupCmd, &demoSetupCfg.LogLevel, "log-level", "error", false, "")
}
