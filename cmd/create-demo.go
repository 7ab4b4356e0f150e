package cmd

import (
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Create or remove demo raw JSON files to test the run, query and diff actions",
	Long:  `Preview, install or uninstall demo song metadata and activity-log files against a configured connection.`,
}

func init() {
	createCmd.AddCommand(demoCmd)
}
