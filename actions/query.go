package actions

import (
	"fmt"

	"github.com/relloyd/songlake/components"
	"github.com/relloyd/songlake/connections"
	"github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/helper"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stream"
	tabledefinition "github.com/relloyd/songlake/table-definition"
)

// QueryConfig is the generic config populated by the query command.
type QueryConfig struct {
	SrcAndTgtConnections
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic bool
	MaxRows          int    `errorTxt:"max rows"`
	CsvOutputDir     string `errorTxt:"csv output directory"`
}

type QueryTableConfig struct {
	SourceConnection string `errorTxt:"source <connection>" mandatory:"yes"`
	SourceTable      string `errorTxt:"source <table>" mandatory:"yes"`
	SrcConnDetails   *connections.ConnectionDetails
	MaxRows          int    `errorTxt:"max rows"`
	CsvOutputDir     string `errorTxt:"csv output directory"`
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic bool
}

// SetupQueryTable copies values from genericCfg to actionCfg ready for a query table action.
func SetupQueryTable(genericCfg interface{}, actionCfg interface{}) error {
	src := genericCfg.(*QueryConfig)
	tgt := actionCfg.(*QueryTableConfig)
	var err error
	// Setup real connection details.
	if tgt.SrcConnDetails, err = src.Connections.GetConnectionDetails(src.SourceString.GetConnectionName()); err != nil {
		return err
	}
	// General
	tgt.StackDumpOnPanic = src.StackDumpOnPanic
	tgt.LogLevel = src.LogLevel
	// Source
	tgt.SourceConnection = src.SourceString.GetConnectionName()
	tgt.SourceTable = src.SourceString.GetObject()
	// Query specific
	tgt.MaxRows = src.MaxRows
	tgt.CsvOutputDir = src.CsvOutputDir
	return nil
}

// listTableManifests starts a file listing of the table's manifests on the given connection
// and returns the component's output channel.
func listTableManifests(log logger.Logger, conn *connections.ConnectionDetails, td tabledefinition.TableDefinition) (chan stream.Record, error) {
	switch conn.Type {
	case constants.ConnectionTypeS3:
		out, _ := components.NewS3BucketList(&components.S3BucketListerConfig{
			Log:                               log,
			Name:                              "list-manifests",
			Region:                            conn.Data["region"],
			BucketName:                        conn.Data["name"],
			BucketPrefix:                      conn.Data["prefix"],
			ObjectNamePrefix:                  td.ManifestPrefix(),
			ObjectNameRegexp:                  `\.csv$`,
			OutputField4FileName:              components.Defaults.ChanField4FileName,
			OutputField4FileNameWithoutPrefix: components.Defaults.ChanField4FileNameWithoutPrefix,
			OutputField4BucketName:            components.Defaults.ChanField4BucketName,
			OutputField4BucketPrefix:          components.Defaults.ChanField4BucketPrefix,
			OutputField4BucketRegion:          components.Defaults.ChanField4BucketRegion})
		return out, nil
	case constants.ConnectionTypeLocalFs:
		out, _ := components.NewDirectoryList(&components.DirectoryListerConfig{
			Log:                               log,
			Name:                              "list-manifests",
			Directory:                         conn.Data["dir"],
			ObjectNamePrefix:                  td.ManifestPrefix(),
			ObjectNameRegexp:                  `\.csv$`,
			OutputField4FileName:              components.Defaults.ChanField4FileName,
			OutputField4FileNameWithoutPrefix: components.Defaults.ChanField4FileNameWithoutPrefix})
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported connection type %q for manifest listing", conn.Type)
	}
}

// getManifestNameField returns the listing output field that the manifest reader should use to
// fetch manifests on the given connection type: S3 reads are keyed relative to the bucket
// prefix while localfs reads need the full path.
func getManifestNameField(connectionType string) (string, error) {
	switch connectionType {
	case constants.ConnectionTypeS3:
		return components.Defaults.ChanField4FileNameWithoutPrefix, nil
	case constants.ConnectionTypeLocalFs:
		return components.Defaults.ChanField4FileName, nil
	default:
		return "", fmt.Errorf("unsupported connection type %q for manifest read", connectionType)
	}
}

// RunQueryTable streams rows of one analytical table to STDOUT as JSON, or extracts them to a
// local CSV file, by finding the latest manifest at the source connection and reading the
// parquet files it lists. The components are wired directly since the chain is linear and the
// row cap needs an early exit.
func RunQueryTable(cfg interface{}) error {
	cfgQuery := cfg.(*QueryTableConfig)
	// Setup logging.
	log := logger.NewLogger("songlake", cfgQuery.LogLevel, cfgQuery.StackDumpOnPanic)
	// Validate switches.
	if err := helper.ValidateStructIsPopulated(cfgQuery); err != nil {
		return err
	}
	td, err := tabledefinition.GetTableDefinition(cfgQuery.SourceTable)
	if err != nil {
		return err
	}
	// List the table's manifests at the source and keep the newest; the creation stamp in the
	// file name sorts lexically.
	listChan, err := listTableManifests(log, cfgQuery.SrcConnDetails, td)
	if err != nil {
		return err
	}
	manifestNameField, err := getManifestNameField(cfgQuery.SrcConnDetails.Type)
	if err != nil {
		return err
	}
	var latest stream.Record
	var latestName string
	cnt := 0
	for rec := range listChan {
		cnt++
		name := rec.GetDataAsStringPreserveTimeZone(log, manifestNameField)
		if cnt == 1 || name > latestName { // if this is the newest manifest so far...
			latestName = name
			latest = rec
		}
	}
	if cnt == 0 {
		return fmt.Errorf("no manifest found for table %q at connection %q", cfgQuery.SourceTable, cfgQuery.SourceConnection)
	}
	log.Info("querying table ", cfgQuery.SourceTable, " via manifest ", latestName)
	// Read the manifest to get the table's data files.
	manifestInput := make(chan stream.Record, 1)
	manifestInput <- latest
	close(manifestInput)
	manifestChan, _ := components.NewManifestReader(&components.ManifestReaderConfig{
		Log:                          log,
		Name:                         "read-manifest",
		InputChan:                    manifestInput,
		InputChanField4ManifestName:  manifestNameField,
		FileSystemType:               cfgQuery.SrcConnDetails.Type,
		BucketName:                   cfgQuery.SrcConnDetails.Data["name"],
		BucketPrefix:                 cfgQuery.SrcConnDetails.Data["prefix"],
		Region:                       cfgQuery.SrcConnDetails.Data["region"],
		OutputChanField4DataFileName: components.Defaults.ChanField4FileName})
	// Read the parquet files into rows.
	tableChan, _ := components.NewParquetFileInput(&components.ParquetFileInputConfig{
		Log:                     log,
		Name:                    "read-table",
		InputChan:               manifestChan,
		InputChanField4FilePath: components.Defaults.ChanField4FileName,
		FileSystemType:          cfgQuery.SrcConnDetails.Type,
		BucketName:              cfgQuery.SrcConnDetails.Data["name"],
		BucketPrefix:            cfgQuery.SrcConnDetails.Data["prefix"],
		Region:                  cfgQuery.SrcConnDetails.Data["region"],
		Directory:               cfgQuery.SrcConnDetails.Data["dir"],
		TableName:               cfgQuery.SourceTable})
	fields := td.ColumnNames()
	if cfgQuery.CsvOutputDir != "" { // if the user wants a CSV extract...
		csvChan, _ := components.NewCsvFileWriter(&components.CsvFileWriterConfig{
			Log:                               log,
			Name:                              "write-csv",
			InputChan:                         tableChan,
			FileNamePrefix:                    cfgQuery.SourceTable,
			FileNameSuffixAppendCreationStamp: true,
			FileNameExtension:                 "csv",
			HeaderFields:                      fields,
			OutputDir:                         cfgQuery.CsvOutputDir,
			OutputChanField4FilePath:          components.Defaults.ChanField4CSVFileName})
		for rec := range csvChan {
			log.Info("wrote ", rec.GetDataAsStringPreserveTimeZone(log, components.Defaults.ChanField4CSVFileName))
		}
		return nil
	}
	// Stream rows to STDOUT as one JSON object per line; stop after MaxRows when set.
	// Breaking out early leaves the upstream components blocked on their output channels,
	// which is fine for a CLI that exits on return.
	n := 0
	for rec := range tableChan {
		fmt.Println(rec.GetJson(log, fields))
		n++
		if cfgQuery.MaxRows > 0 && n >= cfgQuery.MaxRows { // if we have peeked enough rows...
			break
		}
	}
	if n == 0 {
		log.Warn("0 rows found for table ", cfgQuery.SourceTable, " via manifest ", latestName)
	}
	return nil
}
