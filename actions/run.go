package actions

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/relloyd/songlake/connections"
	"github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/helper"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/transform"
)

// RunConfig is the generic config populated by the run command before an Action's
// FnSetupCfg converts it to the action-specific config.
type RunConfig struct {
	// Connections
	SrcAndTgtConnections
	// Generic
	LogLevel                  string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic          bool
	StatsDumpFrequencySeconds int
	RepeatInterval            int `errorTxt:"repeat interval"`
	ExportConfigType          string
	ExportIncludeConnections  bool
	// Etl action specific
	StagingDirectory    string `errorTxt:"staging directory"`
	AbortAfterNumErrors int    `errorTxt:"abort threshold"`
}

type EtlConfig struct {
	SourceConnection          string `errorTxt:"source <connection>" mandatory:"yes"`
	TargetConnection          string `errorTxt:"target <connection>" mandatory:"yes"`
	SrcConnDetails            *connections.ConnectionDetails
	TgtConnDetails            *connections.ConnectionDetails
	StagingDirectory          string `errorTxt:"staging directory"`
	AbortAfterNumErrors       int    `errorTxt:"abort threshold"`
	RepeatInterval            int    `errorTxt:"repeat interval"`
	ExportConfigType          string
	ExportIncludeConnections  bool
	LogLevel                  string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic          bool
	StatsDumpFrequencySeconds int
}

// SetupRunEtl copies values from genericCfg to actionCfg ready for an ETL run action.
func SetupRunEtl(genericCfg interface{}, actionCfg interface{}) error {
	src := genericCfg.(*RunConfig)
	tgt := actionCfg.(*EtlConfig)
	var err error
	// Setup real connection details.
	if tgt.SrcConnDetails, err = src.Connections.GetConnectionDetails(src.SourceString.GetConnectionName()); err != nil {
		return err
	}
	if tgt.TgtConnDetails, err = src.Connections.GetConnectionDetails(src.TargetString.GetConnectionName()); err != nil {
		return err
	}
	// General
	tgt.StackDumpOnPanic = src.StackDumpOnPanic
	tgt.StatsDumpFrequencySeconds = src.StatsDumpFrequencySeconds
	tgt.LogLevel = src.LogLevel
	tgt.ExportConfigType = src.ExportConfigType
	tgt.ExportIncludeConnections = src.ExportIncludeConnections
	tgt.RepeatInterval = src.RepeatInterval
	// Source
	tgt.SourceConnection = src.SourceString.GetConnectionName()
	// Target
	tgt.TargetConnection = src.TargetString.GetConnectionName()
	// Etl specific
	tgt.StagingDirectory = src.StagingDirectory
	tgt.AbortAfterNumErrors = src.AbortAfterNumErrors
	return nil
}

// getListStepType returns the pipe step type that lists files for the given connection type.
func getListStepType(connectionType string) (string, error) {
	switch connectionType {
	case constants.ConnectionTypeS3:
		return "S3BucketList", nil
	case constants.ConnectionTypeLocalFs:
		return "DirectoryList", nil
	default:
		return "", fmt.Errorf("unsupported connection type %q for file listing", connectionType)
	}
}

// getCopyStepType returns the pipe step type that moves staged files to the given connection type.
func getCopyStepType(connectionType string) (string, error) {
	switch connectionType {
	case constants.ConnectionTypeS3:
		return "CopyFilesToS3", nil
	case constants.ConnectionTypeLocalFs:
		return "CopyFilesToDir", nil
	default:
		return "", fmt.Errorf("unsupported connection type %q for file copy", connectionType)
	}
}

// RunEtl executes the full batch: overwrite-clean each table's output then derive and write
// the songs, artists, users, time and songplays tables from the source song and activity files.
// Each table is produced by its own sequential step group so every chain stays linear.
func RunEtl(cfg interface{}) error {
	cfgEtl := cfg.(*EtlConfig)
	// Setup logging.
	if cfgEtl.ExportConfigType != "" { // if the user wants the transform on STDOUT...
		cfgEtl.LogLevel = "error"
	}
	log := logger.NewLogger("songlake", cfgEtl.LogLevel, cfgEtl.StackDumpOnPanic)
	// Validate switches.
	if err := helper.ValidateStructIsPopulated(cfgEtl); err != nil {
		return err
	}
	// Set up the transform.
	m := make(map[string]string)
	m["${sleepSeconds}"] = strconv.Itoa(cfgEtl.RepeatInterval)
	if cfgEtl.RepeatInterval > 0 { // if there is a repeat interval...
		m["${repeatTransform}"] = transform.TransformRepeating // set the loop interval to repeat the transform.
	} else { // else we should execute this transform once...
		m["${repeatTransform}"] = transform.TransformOnce
	}
	// Source
	m["${sourceType}"] = cfgEtl.SrcConnDetails.Type
	m["${sourceEnv}"] = cfgEtl.SourceConnection
	m["${sourceConnData}"] = mustJsonData(log, cfgEtl.SrcConnDetails.Data)
	listStepType, err := getListStepType(cfgEtl.SrcConnDetails.Type)
	if err != nil {
		return err
	}
	m["${listStepType}"] = listStepType
	// Target
	m["${targetType}"] = cfgEtl.TgtConnDetails.Type
	m["${targetEnv}"] = cfgEtl.TargetConnection
	m["${targetConnData}"] = mustJsonData(log, cfgEtl.TgtConnDetails.Data)
	copyStepType, err := getCopyStepType(cfgEtl.TgtConnDetails.Type)
	if err != nil {
		return err
	}
	m["${copyStepType}"] = copyStepType
	// Staging
	m["${stagingDir}"] = mustJsonEscape(log, cfgEtl.StagingDirectory)
	// Substitute into a copy so repeat launches (serve mode) start from the reference template.
	pipeJson := jsonRunEtl
	mustReplaceInStringUsingMapKeyVals(&pipeJson, m)
	log.Debug("replaced reference JSON for etl run ", pipeJson)
	// Execute or export the transform.
	if cfgEtl.ExportConfigType == "" { // if we should execute the transform...
		ti := transform.NewSafeMapTransformInfo()
		guid, err := transform.LaunchTransformJson(log, ti, pipeJson, true, cfgEtl.StatsDumpFrequencySeconds)
		if err != nil {
			return errors.Wrap(err, "unable to unmarshal reference JSON to build the etl pipe")
		}
		return reportDataQuality(log, ti, guid, cfgEtl.AbortAfterNumErrors)
	} else { // else we should write the transform to STDOUT...
		return outputPipeDefinition(log, pipeJson, cfgEtl.ExportConfigType, cfgEtl.ExportIncludeConnections)
	}
}

// reportDataQuality logs the end-of-run data-quality counters for the completed transform and
// returns an error if the configured abort threshold was crossed.
// Skipped and unmatched records are data-quality events; duplicates are reported only, since
// collapsing them is what the dedup steps are for.
func reportDataQuality(log logger.Logger, ti *transform.SafeMapTransformInfo, transformGuid string, abortAfterNumErrors int) error {
	info, ok := ti.Load(transformGuid)
	if !ok || info.Stats == nil { // if the transform left no stats behind...
		return nil
	}
	skipped := info.Stats.TotalCounter(constants.StatsCounterSkippedRows)
	unmatched := info.Stats.TotalCounter(constants.StatsCounterUnmatchedRows)
	duplicates := info.Stats.TotalCounter(constants.StatsCounterDuplicateRows)
	log.Info("Data quality summary: skipped=", skipped, " unmatched=", unmatched, " duplicatesCollapsed=", duplicates)
	numErrors := skipped + unmatched
	if abortAfterNumErrors > 0 && numErrors >= int64(abortAfterNumErrors) { // if the threshold was crossed...
		return fmt.Errorf("data-quality events (%v) crossed the abort threshold (%v)", numErrors, abortAfterNumErrors)
	}
	return nil
}
