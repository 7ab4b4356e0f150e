package cmd

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2021-06-05T10:11+0000"
	osArch           = "darwin"
	stackDumpOnPanic bool
	silenceUsage     bool
)

var rootCmd = &cobra.Command{
	Use: "songlake",
	Long: `
  ____                           _             _
 / ___|   ___   _ __    __ _    | |      __ _ | | __  ___
 \___ \  / _ \ | '_ \  / _' |   | |     / _' || |/ / / _ \
  ___) || (_) || | | || (_| |   | |___ | (_| ||   < |  __/
 |____/  \___/ |_| |_| \__, |   |_____| \__,_||_|\_\ \___|
                       |___/

SongLake is a DataOps utility that turns raw song metadata and listening-event JSON
into a queryable set of analytical tables stored as partitioned parquet.
Use command-line switches for pre-canned actions or write your own pipes in YAML or
JSON to rebuild your tables on demand. Start an HTTP server to expose functionality
via a RESTful API. Runs are idempotent so schedule them as often as you like.
Happy munging! 😄`,
}

func init() {
	// General setup.
	cobra.EnableCommandSorting = false
	// Global flags.
	rootCmd.PersistentFlags().BoolVar(&stackDumpOnPanic, "print-stack", false, "Print a stack dump if there is a panic")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode { // if we are running based on environment variables...
		if lambdaMode { // if we should handle lambda execution...
			lambda.Start(func() error { return execute12FactorMode(twelveFactorActions) })
		} else {
			if err := execute12FactorMode(twelveFactorActions); err != nil {
				// execute12FactorMode prints the error.
				os.Exit(1)
			}
		}
	} else { // else we're using CLI args and flags via Cobra...
		if err := rootCmd.Execute(); err != nil {
			// Execute() prints the error.
			os.Exit(1)
		}
	}
}
