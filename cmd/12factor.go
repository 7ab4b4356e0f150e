package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/songlake/actions"
	"github.com/relloyd/songlake/aws/s3"
	"github.com/relloyd/songlake/config"
	"github.com/relloyd/songlake/connections"
	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/helper"
	"github.com/relloyd/songlake/logger"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set such that other init() functions that configure
// Cobra can do the job of processing all environment variables that would contain equivalent of the CLI flag
// structures used by SongLake's actions.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(envVarTwelveFactorMode)
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
		if strings.ToLower(mode) == "lambda" {
			lambdaMode = true
		}
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
	}
}

const (
	envVarTwelveFactorMode      = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarCommand               = c.EnvVarPrefix + "_" + "COMMAND"
	envVarSubcommand            = c.EnvVarPrefix + "_" + "SUBCOMMAND"
	envVarSourceObject          = c.EnvVarPrefix + "_" + "SOURCE_OBJECT" // <table>, for actions that read one table
	envVarTargetObject          = c.EnvVarPrefix + "_" + "TARGET_OBJECT" // <table>, normally left unset
	envVarSourceType            = c.EnvVarPrefix + "_" + "SOURCE_TYPE"   // s3|localfs
	envVarSourceS3Region        = c.EnvVarPrefix + "_" + "SOURCE_S3_REGION"
	envVarTargetType            = c.EnvVarPrefix + "_" + "TARGET_TYPE" // s3|localfs
	envVarTargetS3Region        = c.EnvVarPrefix + "_" + "TARGET_S3_REGION"
	envVarLogLevel              = c.EnvVarPrefix + "_" + "LOG_LEVEL"
	envVarStackDump             = c.EnvVarPrefix + "_" + "STACK_DUMP"
	defaultConnectionNameSource = "SOURCE"
	defaultConnectionNameTarget = "TARGET"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	lambdaMode       bool // true if os env var envVarTwelveFactorMode asks for lambda mode
	twelveFactorVars = map[string]string{
		envVarCommand:    "",
		envVarSubcommand: "",
		// Source
		envVarSourceType: "",
		helper.GetDsnEnvVarName(defaultConnectionNameSource): "",
		envVarSourceObject:   "",
		envVarSourceS3Region: "",
		// Target
		envVarTargetType: "",
		helper.GetDsnEnvVarName(defaultConnectionNameTarget): "",
		envVarTargetObject:   "",
		envVarTargetS3Region: "",
		// Misc
		envVarLogLevel:  "",
		envVarStackDump: "",
	}
)

type twelveFactorAction struct {
	setupFunc  func(src string, tgt string)
	runnerFunc func() error
}

var twelveFactorActions = map[string]twelveFactorAction{
	"run-etl": {
		setupFunc: func(src string, tgt string) {
			runEtlCfg.SrcAndTgtConnections.SourceString.ConnectionObject = src
			runEtlCfg.SrcAndTgtConnections.TargetString.ConnectionObject = tgt
		},
		runnerFunc: runEtl,
	},
	"query-table": {
		setupFunc: func(src string, _ string) { // the query target is always STDOUT.
			queryTableCfg.SrcAndTgtConnections.SourceString.ConnectionObject = src
		},
		runnerFunc: runQueryTable,
	},
	"diff-table": {
		setupFunc: func(src string, tgt string) {
			diffTableCfg.SrcAndTgtConnections.SourceString.ConnectionObject = src
			diffTableCfg.SrcAndTgtConnections.TargetString.ConnectionObject = tgt
		},
		runnerFunc: runDiffTable,
	},
}

func getConnectionHandler() actions.ConnectionHandler {
	if twelveFactorMode {
		return &TwelveFactorConnections{}
	} else {
		return config.Connections
	}
}

func getConnectionLoader() actions.ConnectionLoader {
	if twelveFactorMode {
		return &TwelveFactorConnections{}
	} else {
		return config.Connections
	}
}

func getConnectionGetterSetter() actions.ConnectionGetterSetter {
	if twelveFactorMode {
		fmt.Printf("Error: connections cannot be configured when %v is set (supply them using %v and %v instead)",
			envVarTwelveFactorMode,
			helper.GetDsnEnvVarName("<source-connection-name>"),
			helper.GetDsnEnvVarName("<target-connection-name>"))
		os.Exit(1)
	}
	return config.Connections
}

func execute12FactorMode(acts map[string]twelveFactorAction) (err error) {
	logLevel := helper.ReadValueFromEnvWithDefault(envVarLogLevel, "warn") // fetch logLevel from env as this is not a persistent flag, given that we wanted different logging defaults per cobra action.
	log := logger.NewLogger("songlake", logLevel, stackDumpOnPanic)
	log.Info("SongLake is running in 12 Factor mode...")
	// Save values for the required variables.
	for k := range twelveFactorVars { // for each env variable that we need...
		// Save it and log it.
		twelveFactorVars[k] = os.Getenv(k)
		log.Debug(k, "=", twelveFactorVars[k])
	}
	if twelveFactorVars[envVarStackDump] != "" { // if stack dumps were requested via the environment...
		stackDumpOnPanic = true
	}
	// Use command and subcommand to fetch the appropriate action.
	action := fmt.Sprintf("%v-%v", twelveFactorVars[envVarCommand], twelveFactorVars[envVarSubcommand])
	a, ok := acts[action]
	if !ok {
		err = fmt.Errorf("invalid combination of command (%v) and subcommand (%v)", twelveFactorVars[envVarCommand], twelveFactorVars[envVarSubcommand])
		log.Error(err.Error())
		return
	}
	// Setup the connection source and target strings to include the object, as Cobra would have with CLI args.
	a.setupFunc(
		fmt.Sprintf("%v.%v", defaultConnectionNameSource, twelveFactorVars[envVarSourceObject]), // e.g. SOURCE.songplays
		fmt.Sprintf("%v.%v", defaultConnectionNameTarget, twelveFactorVars[envVarTargetObject]), // e.g. TARGET.
	)
	// Run the action.
	err = a.runnerFunc()
	if err != nil {
		log.Error("Error: ", err)
	}
	return err
}

type TwelveFactorConnections struct{} // implements interfaces in module, actions.

// GetConnectionType is for use when running in twelveFactorMode.
// It returns the value of envVarSourceType or envVarTargetType based on the supplied connectionName,
//  where connectionName is expected to bee either defaultConnectionNameSource or defaultConnectionNameTarget.
// It reads the global map twelveFactorVars[] which should have been setup using environment variables.
func (t *TwelveFactorConnections) GetConnectionType(connectionName string) (connectionType string, err error) {
	var ok bool
	if connectionName == defaultConnectionNameSource {
		connectionType, ok = twelveFactorVars[envVarSourceType]
		if !ok {
			err = fmt.Errorf("missing value for %v", envVarSourceType)
		}
	} else if connectionName == defaultConnectionNameTarget {
		connectionType, ok = twelveFactorVars[envVarTargetType]
		if !ok {
			err = fmt.Errorf("missing value for %v", envVarTargetType)
		}
	} else {
		err = fmt.Errorf("unexpected connectionName %v while running in twelveFactorMode", connectionName)
	}
	return
}

// GetConnectionDetails expects connectionName to be either source or target, and fills
// ConnectionDetails with location details fetched from env variables by using the connectionName
// to do the lookup.
// The connection type is picked up from the environment using variable whose name matches constant
// envVarSourceType and envVarTargetType respectively.
func (t *TwelveFactorConnections) GetConnectionDetails(connectionName string) (*connections.ConnectionDetails, error) {
	var kDsn, vDsn, vType string
	var err error
	var connectionDetails connections.ConnectionDetails
	connectionDetails.Data = make(map[string]string)
	connectionDetails.LogicalName = connectionName
	// Fetch connection info from the environment based on the connection name.
	kDsn = helper.GetDsnEnvVarName(connectionName)
	if err = helper.ReadValueFromEnv(kDsn, &vDsn); err != nil { // if we cannot find the DSN in the environment...
		return nil, fmt.Errorf("unable to find value for %v in the environment: %w", kDsn, err)
	}
	// Fetch connection type from the environment based on the connection name.
	vType, err = t.GetConnectionType(connectionName)
	if err != nil {
		return nil, err
	}
	connectionDetails.Type = vType
	// Parse the connection based on the type.
	switch vType { // switch on the connection type...
	case c.ConnectionTypeS3: // if the user wants S3 bucket details...
		// Fetch bucket region from the environment.
		var vRegion string
		kRegion := helper.GetRegionEnvVarName(connectionName)
		if err := helper.ReadValueFromEnv(kRegion, &vRegion); err != nil { // if we cannot find the bucket region in the environment...
			// TODO: log this correctly instead of fmt.
			fmt.Printf("bucket region not found in environment variable %v\n", kRegion)
		}
		cn, err := s3.ParseDSN(vDsn, vRegion)
		if err != nil { // if the DSN was invalid...
			return nil, err
		}
		connectionDetails.Data = s3.AwsBucketToMap(connectionDetails.Data, cn)
	case c.ConnectionTypeLocalFs: // if the user wants a local directory...
		d := connections.LocalFsDir{Dir: vDsn}
		if err := d.Parse(); err != nil { // if the path was invalid...
			return nil, err
		}
		connectionDetails.Data = connections.LocalFsDirToMap(connectionDetails.Data, d)
	default:
		return nil, fmt.Errorf("unsupported connection type %q for DSN %q", vType, vDsn)
	}
	return &connectionDetails, nil
}

// LoadConnection fetches a DSN from the environment using the supplied connection name and infers
// the connection type from its form: s3://<bucket>[/<prefix>] is an S3 bucket; an absolute path
// is a local directory.
// This mimics functionality whereby connection details are loaded from JSON config file, but reads
// info from the environment instead.
// This is used by the pipe action since the full connection details may not be saved out to the
// pipe config file.
func (t *TwelveFactorConnections) LoadConnection(connectionName string) (connections.ConnectionDetails, error) {
	kDsn := helper.GetDsnEnvVarName(connectionName)
	var vDsn, vType string
	if err := helper.ReadValueFromEnv(kDsn, &vDsn); err != nil { // if we cannot find the DSN in the environment...
		return connections.ConnectionDetails{}, err
	}
	m := make(map[string]string) // map for generic connection data.
	if strings.HasPrefix(vDsn, "s3://") { // if the DSN names a bucket...
		vType = c.ConnectionTypeS3
		var vRegion string
		kRegion := helper.GetRegionEnvVarName(connectionName)
		if err := helper.ReadValueFromEnv(kRegion, &vRegion); err != nil { // if we cannot find the bucket region in the environment...
			// TODO: log this correctly instead of fmt.
			fmt.Printf("bucket region not found in environment variable %v\n", kRegion)
		}
		cn, err := s3.ParseDSN(vDsn, vRegion)
		if err != nil {
			return connections.ConnectionDetails{}, err
		}
		m["name"] = cn.Name
		m["prefix"] = cn.Prefix
		m["region"] = cn.Region
	} else { // else treat the DSN as a local directory...
		vType = c.ConnectionTypeLocalFs
		d := connections.LocalFsDir{Dir: vDsn}
		if err := d.Parse(); err != nil {
			return connections.ConnectionDetails{}, err
		}
		connections.LocalFsDirToMap(m, d)
	}
	return connections.ConnectionDetails{
		Type:        vType,
		LogicalName: connectionName,
		Data:        m,
	}, nil
}
