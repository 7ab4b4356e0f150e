package cmd

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate helpful sample data",
	Long: `Generate sample data:

- Demo raw JSON files to help test this tool's run, query and diff actions
`,
}

func init() {
	rootCmd.AddCommand(createCmd)
}
