package cmd

import (
	"fmt"

	"github.com/relloyd/songlake/actions"
	"github.com/relloyd/songlake/config"
	"github.com/relloyd/songlake/connections"
	"github.com/relloyd/songlake/constants"
	"github.com/spf13/cobra"
)

var configConnLocalFs = &actions.ConnectionConfig{}
var localFsConn = connections.LocalFsDir{}

var configConnAddLocalFsCmd = &cobra.Command{
	Use:   "localfs",
	Short: "Add a local filesystem directory",
	Long: fmt.Sprintf(`Add a local filesystem directory to the config store %q.

The directory acts as the connection root so raw data and table output
paths are relative to it. Supply an absolute path.`,
		config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		configConnLocalFs.Type = constants.ConnectionTypeLocalFs
		configConnLocalFs.ConfigFile = getConnectionGetterSetter()
		configConnLocalFs.ConnDetails = localFsConn
		cmd.SilenceUsage = true
		return actions.RunConnectionAdd(configConnLocalFs)
	},
}

func init() {
	configConnAddCmd.AddCommand(configConnAddLocalFsCmd)
	configConnAddLocalFsCmd.Flags().SortFlags = false

	switches.addFlag(configConnAddLocalFsCmd, &configConnLocalFs.LogicalName, "connection-name", "", true, "")
	switches.addFlag(configConnAddLocalFsCmd, &configConnLocalFs.Force, "force-connection", "", false, "")
	switches.addFlag(configConnAddLocalFsCmd, &localFsConn.Dir, "localfs-dir", "", true, "")
}
