package cmd

import (
	"fmt"

	"github.com/relloyd/songlake/constants"
	"github.com/spf13/cobra"
)

var twelveFactorCmd = &cobra.Command{
	Use:   "12f",
	Short: `View help notes for running in Twelve-Factor mode`,
	Long: fmt.Sprintf(`
SongLake can be controlled by environment variables and is a good fit to run
in serverless environments where the binary size is compatible.

To enable Twelve-Factor mode, set environment variable SL_12FACTOR_MODE=1.
To supply flags documented by the regular command-line usage, set an
equivalent environment variable using the following convention:

<%s>_<flag long-name in upper case>

For example, this will build the analytical tables from raw JSON in one
bucket and write the parquet output to another:

export SL_12FACTOR_MODE=1
export SL_LOG_LEVEL=info
export SL_COMMAND=run
export SL_SUBCOMMAND=etl
export SL_SOURCE_DSN=s3://test.songlake.io/raw
export SL_SOURCE_TYPE=s3
export SL_SOURCE_S3_REGION=eu-west-2
export SL_TARGET_DSN=s3://test.songlake.io/lake
export SL_TARGET_TYPE=s3
export SL_TARGET_S3_REGION=eu-west-2

Then execute the CLI tool without any arguments or flags to kick off the pipeline.

Set SL_12FACTOR_MODE=lambda to run the same way as an AWS Lambda handler.

`, constants.EnvVarPrefix),
}

func init() {
	rootCmd.AddCommand(twelveFactorCmd)
}
