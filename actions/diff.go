package actions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/songlake/connections"
	"github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/helper"
	"github.com/relloyd/songlake/logger"
	tabledefinition "github.com/relloyd/songlake/table-definition"
	"github.com/relloyd/songlake/transform"
)

// DiffConfig is the generic config populated by the diff command.
type DiffConfig struct {
	SrcAndTgtConnections
	AbortAfterNumRecords      int `errorTxt:"abort after num records"`
	OutputAllDiffFields       bool
	OutputIdenticalRows       bool
	RepeatInterval            int `errorTxt:"repeat interval"`
	ExportConfigType          string
	ExportIncludeConnections  bool
	LogLevel                  string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic          bool
	StatsDumpFrequencySeconds int
}

type DiffTableConfig struct {
	SourceConnection          string `errorTxt:"source <connection>" mandatory:"yes"`
	SourceTable               string `errorTxt:"source <table>" mandatory:"yes"`
	TargetConnection          string `errorTxt:"target <connection>" mandatory:"yes"`
	SrcConnDetails            *connections.ConnectionDetails
	TgtConnDetails            *connections.ConnectionDetails
	AbortAfterNumRecords      int
	OutputAllDiffFields       bool
	OutputIdenticalRows       bool
	RepeatInterval            int `errorTxt:"repeat interval"`
	ExportConfigType          string
	ExportIncludeConnections  bool
	LogLevel                  string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic          bool
	StatsDumpFrequencySeconds int
}

// SetupDiffTable copies values from genericCfg to actionCfg ready for a diff table action.
// The table is named on the source connection string; the target string may repeat it but
// a diff always compares one table across the two locations.
func SetupDiffTable(genericCfg interface{}, actionCfg interface{}) error {
	src := genericCfg.(*DiffConfig)
	tgt := actionCfg.(*DiffTableConfig)
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
	// Source and target
	tgt.SourceConnection = src.SourceString.GetConnectionName()
	tgt.SourceTable = src.SourceString.GetObject()
	tgt.TargetConnection = src.TargetString.GetConnectionName()
	if o := src.TargetString.GetObject(); o != "" && o != tgt.SourceTable { // if the target names a different table...
		return fmt.Errorf("diff compares one table across two connections: source table %q does not match target table %q", tgt.SourceTable, o)
	}
	// Diff specific
	tgt.AbortAfterNumRecords = src.AbortAfterNumRecords
	tgt.OutputAllDiffFields = src.OutputAllDiffFields
	tgt.OutputIdenticalRows = src.OutputIdenticalRows
	return nil
}

// joinTokensFromColumns renders a column list as the "a:a,b:b" token pairs consumed by
// mergeDiff steps, where both sides of the comparison share column names.
func joinTokensFromColumns(cols []string) string {
	tokens := make([]string, len(cols))
	for i, c := range cols {
		tokens[i] = c + ":" + c
	}
	return strings.Join(tokens, ",")
}

// RunDiffTable compares one analytical table across two output locations by reading each
// side's latest manifest, sorting both row streams on the table's primary key and merging
// them through a diff step. Flagged differences stream to STDOUT; an identical pair of
// locations produces no output rows.
func RunDiffTable(cfg interface{}) error {
	cfgDiff := cfg.(*DiffTableConfig)
	// Setup logging.
	if cfgDiff.ExportConfigType != "" { // if the user wants the transform on STDOUT...
		cfgDiff.LogLevel = "error"
	}
	log := logger.NewLogger("songlake", cfgDiff.LogLevel, cfgDiff.StackDumpOnPanic)
	// Validate switches.
	if err := helper.ValidateStructIsPopulated(cfgDiff); err != nil {
		return err
	}
	td, err := tabledefinition.GetTableDefinition(cfgDiff.SourceTable)
	if err != nil {
		return err
	}
	// Set up the transform.
	m := make(map[string]string)
	m["${sleepSeconds}"] = strconv.Itoa(cfgDiff.RepeatInterval)
	if cfgDiff.RepeatInterval > 0 { // if there is a repeat interval...
		m["${repeatTransform}"] = transform.TransformRepeating // set the loop interval to repeat the transform.
	} else { // else we should execute this transform once...
		m["${repeatTransform}"] = transform.TransformOnce
	}
	// Source (the new side of the diff)
	m["${sourceType}"] = cfgDiff.SrcConnDetails.Type
	m["${sourceEnv}"] = cfgDiff.SourceConnection
	m["${sourceConnData}"] = mustJsonData(log, cfgDiff.SrcConnDetails.Data)
	srcListStepType, err := getListStepType(cfgDiff.SrcConnDetails.Type)
	if err != nil {
		return err
	}
	m["${srcListStepType}"] = srcListStepType
	srcManifestNameField, err := getManifestNameField(cfgDiff.SrcConnDetails.Type)
	if err != nil {
		return err
	}
	m["${srcManifestNameField}"] = srcManifestNameField
	// Target (the old side of the diff)
	m["${targetType}"] = cfgDiff.TgtConnDetails.Type
	m["${targetEnv}"] = cfgDiff.TargetConnection
	m["${targetConnData}"] = mustJsonData(log, cfgDiff.TgtConnDetails.Data)
	tgtListStepType, err := getListStepType(cfgDiff.TgtConnDetails.Type)
	if err != nil {
		return err
	}
	m["${tgtListStepType}"] = tgtListStepType
	tgtManifestNameField, err := getManifestNameField(cfgDiff.TgtConnDetails.Type)
	if err != nil {
		return err
	}
	m["${tgtManifestNameField}"] = tgtManifestNameField
	// Table
	m["${tableName}"] = td.TableName
	m["${manifestPrefix}"] = td.ManifestPrefix()
	m["${sortKeysCsv}"] = strings.Join(td.PrimaryKeyColumns(), ",")
	m["${keyTokens}"] = joinTokensFromColumns(td.PrimaryKeyColumns())
	m["${otherTokens}"] = joinTokensFromColumns(td.NonKeyColumns())
	// Fix the MergeDiff output flags.
	m["${new}"] = constants.MergeDiffValueNew
	m["${changed}"] = constants.MergeDiffValueChanged
	m["${deleted}"] = constants.MergeDiffValueDeleted
	m["${identical}"] = constants.MergeDiffValueIdentical
	// Misc
	m["${abortAfterNumRecords}"] = strconv.Itoa(cfgDiff.AbortAfterNumRecords)
	m["${outputIdenticalRows}"] = strconv.FormatBool(cfgDiff.OutputIdenticalRows)
	var outputCols []string
	if cfgDiff.OutputAllDiffFields { // if the user wants all fields in the diff output...
		outputCols = td.ColumnNames()
	} else { // else the user wants only the PK fields...
		outputCols = td.PrimaryKeyColumns()
	}
	outputCols = append(outputCols, constants.DiffStatusFieldName) // choose to output the diff status along with the pkey.
	outputColsJson, err := json.Marshal(strings.Join(outputCols, ","))
	if err != nil { // if there was an error marshalling the CSV to JSON...
		return errors.Wrap(err, fmt.Sprintf("unable to convert fields for table %q to JSON", td.TableName))
	}
	m["${outputFieldsCsv}"] = string(outputColsJson)
	// Substitute into a copy so repeat launches start from the reference template.
	pipeJson := jsonDiffTable
	mustReplaceInStringUsingMapKeyVals(&pipeJson, m)
	log.Debug("replaced reference JSON for diff run ", pipeJson)
	// Execute or export the transform.
	if cfgDiff.ExportConfigType == "" { // if we should execute the transform...
		ti := transform.NewSafeMapTransformInfo()
		_, err := transform.LaunchTransformJson(log, ti, pipeJson, true, cfgDiff.StatsDumpFrequencySeconds)
		if err != nil {
			return errors.Wrap(err, "unable to unmarshal reference JSON to build the diff pipe")
		}
		return nil
	} else { // else we should write the transform to STDOUT...
		return outputPipeDefinition(log, pipeJson, cfgDiff.ExportConfigType, cfgDiff.ExportIncludeConnections)
	}
}
