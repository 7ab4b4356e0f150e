package cmd

import (
	"github.com/relloyd/songlake/actions"
	"github.com/spf13/cobra"
)

var demoCleanupCfg = actions.DemoCleanupConfig{}

var demoUninstallCmd = &cobra.Command{
	Use:   "uninstall <connection-name>",
	Short: "Remove the demo raw JSON files from a connection",
	Long:  `Preview or remove the song_data and log_data trees below a connection root.`,
	Args:  getConnectionArgsFunc(&demoCleanupCfg.SourceString, "requires a connection name to clean up"),
	RunE: func(cmd *cobra.Command, args []string) error {
		demoCleanupCfg.StackDumpOnPanic = stackDumpOnPanic
		c := getConnectionHandler() // use the global config file.
		// Load connection details and setup the action config.
		var err error
		if demoCleanupCfg.SrcConnDetails, err = c.GetConnectionDetails(demoCleanupCfg.SourceString.GetConnectionName()); err != nil {
			return err
		}
		return actions.RunDemoCleanup(&demoCleanupCfg)
	},
}

func init() {
	demoCmd.AddCommand(demoUninstallCmd)
	demoUninstallCmd.Flags().SortFlags = false
	switches.addFlag(demoUninstallCmd, &demoCleanupCfg.WriteFiles, "remove-files", "", false, "")
	switches.addFlag(demoUninstallCmd, &demoCleanupCfg.LogLevel, "log-level", "error", false, "")
}
