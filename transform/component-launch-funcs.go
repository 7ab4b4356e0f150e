package transform

import (
	"os"
	"strconv"

	"github.com/relloyd/songlake/components"
	"github.com/relloyd/songlake/connections"
	"github.com/relloyd/songlake/helper"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stream"
)

// TODO: simplify/consolidate the fact that getComponentWaiter() and setStepControlChan() must receive the same keys per step else shutdown() doesn't work!

// getConnectionForStep resolves the storage connection named by the step's logicalConnectionName
// so launcher functions can populate component location fields. Steps reference connections by
// logical name and the transform's connections block holds the real details.
func getConnectionForStep(log logger.Logger, stepCanonicalName string, sg *StepGroup, sgm StepGroupManager, stepName string) connections.ConnectionDetails {
	name := sg.Steps[stepName].Data["logicalConnectionName"]
	if name == "" {
		log.Panic(stepCanonicalName, " missing logicalConnectionName - check the pipe config")
	}
	cd := sgm.getGlobalTransformManager().getConnectionDetails(name)
	if cd.Type == "" {
		log.Panic(stepCanonicalName, " logical connection ", name, " not found in the transform connections")
	}
	return cd
}

func startS3BucketList(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	conn := getConnectionForStep(log, stepCanonicalName, sg, sgm, stepName)
	// Set defaults if missing inputs.
	if sg.Steps[stepName].Data["outputField4BucketName"] == "" {
		sg.Steps[stepName].Data["outputField4BucketName"] = components.Defaults.ChanField4BucketName
	}
	if sg.Steps[stepName].Data["outputField4BucketPrefix"] == "" {
		sg.Steps[stepName].Data["outputField4BucketPrefix"] = components.Defaults.ChanField4BucketPrefix
	}
	if sg.Steps[stepName].Data["outputField4BucketRegion"] == "" {
		sg.Steps[stepName].Data["outputField4BucketRegion"] = components.Defaults.ChanField4BucketRegion
	}
	if sg.Steps[stepName].Data["outputField4FileName"] == "" {
		sg.Steps[stepName].Data["outputField4FileName"] = components.Defaults.ChanField4FileName
	}
	if sg.Steps[stepName].Data["outputField4FileNameWithoutPrefix"] == "" {
		sg.Steps[stepName].Data["outputField4FileNameWithoutPrefix"] = components.Defaults.ChanField4FileNameWithoutPrefix
	}
	cfg := &components.S3BucketListerConfig{
		Log:                               log,
		Name:                              stepCanonicalName,
		Region:                            conn.Data["region"],
		BucketName:                        conn.Data["name"],
		BucketPrefix:                      conn.Data["prefix"],
		ObjectNamePrefix:                  sg.Steps[stepName].Data["fileNamePrefix"],
		ObjectNameRegexp:                  sg.Steps[stepName].Data["fileNameRegexp"],
		OutputField4BucketName:            sg.Steps[stepName].Data["outputField4BucketName"],
		OutputField4BucketPrefix:          sg.Steps[stepName].Data["outputField4BucketPrefix"],
		OutputField4BucketRegion:          sg.Steps[stepName].Data["outputField4BucketRegion"],
		OutputField4FileName:              sg.Steps[stepName].Data["outputField4FileName"],
		OutputField4FileNameWithoutPrefix: sg.Steps[stepName].Data["outputField4FileNameWithoutPrefix"],
		StepWatcher:                       stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:                       sgm.getComponentWaiter(stepName),
		PanicHandlerFn:                    panicHandlerFn}
	// Create and save new bucket listing step.
	out, control := componentFunc(cfg)
	sgm.setStepControlChan(stepName, control) // save the control channel.
	sgm.setStepOutputChan(stepName, out)
}

func startDirectoryList(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	conn := getConnectionForStep(log, stepCanonicalName, sg, sgm, stepName)
	// Set defaults if missing inputs.
	if sg.Steps[stepName].Data["outputField4FileName"] == "" {
		sg.Steps[stepName].Data["outputField4FileName"] = components.Defaults.ChanField4FileName
	}
	if sg.Steps[stepName].Data["outputField4FileNameWithoutPrefix"] == "" {
		sg.Steps[stepName].Data["outputField4FileNameWithoutPrefix"] = components.Defaults.ChanField4FileNameWithoutPrefix
	}
	cfg := &components.DirectoryListerConfig{
		Log:                               log,
		Name:                              stepCanonicalName,
		Directory:                         conn.Data["dir"],
		ObjectNamePrefix:                  sg.Steps[stepName].Data["fileNamePrefix"],
		ObjectNameRegexp:                  sg.Steps[stepName].Data["fileNameRegexp"],
		OutputField4FileName:              sg.Steps[stepName].Data["outputField4FileName"],
		OutputField4FileNameWithoutPrefix: sg.Steps[stepName].Data["outputField4FileNameWithoutPrefix"],
		StepWatcher:                       stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:                       sgm.getComponentWaiter(stepName),
		PanicHandlerFn:                    panicHandlerFn}
	// Create and save new directory listing step.
	out, control := componentFunc(cfg)
	sgm.setStepControlChan(stepName, control) // save the control channel.
	sgm.setStepOutputChan(stepName, out)
}

func startJsonFileInput(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	conn := getConnectionForStep(log, stepCanonicalName, sg, sgm, stepName)
	// Set defaults if missing inputs.
	if sg.Steps[stepName].Data["inputFieldName4FilePath"] == "" {
		sg.Steps[stepName].Data["inputFieldName4FilePath"] = components.Defaults.ChanField4FileName
	}
	cfg := &components.JsonFileInputConfig{
		Log:                     log,
		Name:                    stepCanonicalName,
		InputChan:               sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		InputChanField4FilePath: sg.Steps[stepName].Data["inputFieldName4FilePath"],
		FileSystemType:          conn.Type,
		BucketName:              conn.Data["name"],
		BucketPrefix:            conn.Data["prefix"],
		Region:                  conn.Data["region"],
		JsonFormat:              sg.Steps[stepName].Data["jsonFormat"],
		StepWatcher:             stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:             sgm.getComponentWaiter(stepName),
		PanicHandlerFn:          panicHandlerFn}
	out, control := componentFunc(cfg)
	sgm.setStepControlChan(stepName, control) // save the control channel.
	sgm.setStepOutputChan(stepName, out)
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startDedupRows(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	cfg := &components.DedupRowsConfig{
		Log:            log,
		Name:           stepCanonicalName,
		InputChan:      sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		FieldNames:     helper.CsvToStringSliceTrimSpaces2(sg.Steps[stepName].Data["fieldNamesCSV"]), // empty means dedup on the full tuple.
		StepWatcher:    stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:    sgm.getComponentWaiter(stepName),
		PanicHandlerFn: panicHandlerFn}
	out, control := componentFunc(cfg)
	sgm.setStepControlChan(stepName, control) // save the control channel.
	sgm.setStepOutputChan(stepName, out)
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startLookupJoin(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	cfg := &components.LookupJoinConfig{
		Log:            log,
		Name:           stepCanonicalName,
		InputChanBuild: sgm.getStepOutputChan(sg.Steps[stepName].Data["readBuildDataFromStep"]),
		InputChanProbe: sgm.getStepOutputChan(sg.Steps[stepName].Data["readProbeDataFromStep"]),
		JoinKeys:       helper.TokensToOrderedMap(sg.Steps[stepName].Data["joinKeys"]),
		OutputFields:   helper.CsvToStringSliceTrimSpaces2(sg.Steps[stepName].Data["outputFieldsCSV"]),
		StepWatcher:    stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:    sgm.getComponentWaiter(stepName),
		PanicHandlerFn: panicHandlerFn}
	out, control := componentFunc(cfg)
	sgm.setStepControlChan(stepName, control) // save the control channel.
	sgm.setStepOutputChan(stepName, out)
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readBuildDataFromStep"])
	sgm.consumeStep(sg.Steps[stepName].Data["readProbeDataFromStep"])
}

func startSortRows(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	cfg := &components.SortRowsConfig{
		Log:            log,
		Name:           stepCanonicalName,
		InputChan:      sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		KeyFieldNames:  helper.CsvToStringSliceTrimSpaces2(sg.Steps[stepName].Data["keyFieldsCSV"]),
		StepWatcher:    stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:    sgm.getComponentWaiter(stepName),
		PanicHandlerFn: panicHandlerFn}
	out, control := componentFunc(cfg)
	sgm.setStepControlChan(stepName, control) // save the control channel.
	sgm.setStepOutputChan(stepName, out)
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startMergeDiff(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	// Create and save the MergeDiff output channel.
	outputIdenticalRows, _ := strconv.ParseBool(sg.Steps[stepName].Data["outputIdenticalRows"])
	cfg := &components.MergeDiffConfig{
		Log:                 log,
		Name:                stepCanonicalName,
		ChanOld:             sgm.getStepOutputChan(sg.Steps[stepName].Data["readOldDataFromStep"]),
		ChanNew:             sgm.getStepOutputChan(sg.Steps[stepName].Data["readNewDataFromStep"]),
		JoinKeys:            helper.TokensToOrderedMap(sg.Steps[stepName].Data["joinKeys"]),
		CompareKeys:         helper.TokensToOrderedMap(sg.Steps[stepName].Data["compareKeys"]),
		ResultFlagKeyName:   sg.Steps[stepName].Data["flagFieldName"],
		OutputIdenticalRows: outputIdenticalRows,
		StepWatcher:         stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:         sgm.getComponentWaiter(stepName),
		PanicHandlerFn:      panicHandlerFn}
	out, control := componentFunc(cfg)
	sgm.setStepControlChan(stepName, control) // save the control channel.
	sgm.setStepOutputChan(stepName, out)
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readOldDataFromStep"])
	sgm.consumeStep(sg.Steps[stepName].Data["readNewDataFromStep"])
}

func startParquetFileWriter(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	maxFileRows := 0 // zero means the component applies its package default cap.
	if sg.Steps[stepName].Data["maxFileRows"] != "" {
		var err error
		maxFileRows, err = strconv.Atoi(sg.Steps[stepName].Data["maxFileRows"])
		if err != nil {
			log.Panic(stepCanonicalName, " unable to convert maxFileRows to integer - check it exists in the pipe config: ", err)
		}
	}
	fileNameToken := sg.Steps[stepName].Data["fileNameToken"]
	if fileNameToken == "" { // if no token was configured for part file names...
		fileNameToken = sgm.getGlobalTransformManager().getTransformGuid() // use the run GUID so reruns are distinguishable.
	}
	// Set defaults if missing inputs.
	if sg.Steps[stepName].Data["outputFieldName4FilePath"] == "" {
		sg.Steps[stepName].Data["outputFieldName4FilePath"] = components.Defaults.ChanField4FileName
	}
	if sg.Steps[stepName].Data["outputFieldName4FileNameNoPrefix"] == "" {
		sg.Steps[stepName].Data["outputFieldName4FileNameNoPrefix"] = components.Defaults.ChanField4FileNameWithoutPrefix
	}
	cfg := &components.ParquetFileWriterConfig{
		Log:                              log,
		Name:                             stepCanonicalName,
		InputChan:                        sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		TableName:                        sg.Steps[stepName].Data["tableName"],
		StagingDirectory:                 sg.Steps[stepName].Data["stagingDirectory"],
		FileNameToken:                    fileNameToken,
		MaxFileRows:                      maxFileRows,
		OutputChanField4FilePath:         sg.Steps[stepName].Data["outputFieldName4FilePath"],
		OutputChanField4FileNameNoPrefix: sg.Steps[stepName].Data["outputFieldName4FileNameNoPrefix"],
		StepWatcher:                      stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:                      sgm.getComponentWaiter(stepName),
		PanicHandlerFn:                   panicHandlerFn}
	// Create and save new parquet writer step.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startParquetFileInput(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	conn := getConnectionForStep(log, stepCanonicalName, sg, sgm, stepName)
	cfg := &components.ParquetFileInputConfig{
		Log:                     log,
		Name:                    stepCanonicalName,
		InputChan:               sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		InputChanField4FilePath: sg.Steps[stepName].Data["inputFieldName4FilePath"],
		FileSystemType:          conn.Type,
		BucketName:              conn.Data["name"],
		BucketPrefix:            conn.Data["prefix"],
		Region:                  conn.Data["region"],
		Directory:               conn.Data["dir"],
		TableName:               sg.Steps[stepName].Data["tableName"],
		StepWatcher:             stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:             sgm.getComponentWaiter(stepName),
		PanicHandlerFn:          panicHandlerFn}
	out, control := componentFunc(cfg)
	sgm.setStepControlChan(stepName, control) // save the control channel.
	sgm.setStepOutputChan(stepName, out)
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startCopyFilesToS3(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	conn := getConnectionForStep(log, stepCanonicalName, sg, sgm, stepName)
	removeInputFiles := helper.GetTrueFalseStringAsBool(sg.Steps[stepName].Data["removeInputFiles"])
	cfg := &components.CopyFilesToS3Config{
		Log:                   log,
		Name:                  stepCanonicalName,
		InputChan:             sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		FileNameChanField:     sg.Steps[stepName].Data["inputFieldName4FilePath"],
		RelativePathChanField: sg.Steps[stepName].Data["inputFieldName4RelativePath"],
		BucketName:            conn.Data["name"],
		BucketPrefix:          conn.Data["prefix"],
		Region:                conn.Data["region"],
		RemoveInputFiles:      removeInputFiles,
		StepWatcher:           stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:           sgm.getComponentWaiter(stepName),
		PanicHandlerFn:        panicHandlerFn}
	// Create and save new OS-files-to-S3 step.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startCopyFilesToDir(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	conn := getConnectionForStep(log, stepCanonicalName, sg, sgm, stepName)
	removeInputFiles := helper.GetTrueFalseStringAsBool(sg.Steps[stepName].Data["removeInputFiles"])
	cfg := &components.CopyFilesToDirConfig{
		Log:                   log,
		Name:                  stepCanonicalName,
		InputChan:             sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		FileNameChanField:     sg.Steps[stepName].Data["inputFieldName4FilePath"],
		RelativePathChanField: sg.Steps[stepName].Data["inputFieldName4RelativePath"],
		TargetDirectory:       conn.Data["dir"],
		RemoveInputFiles:      removeInputFiles,
		StepWatcher:           stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:           sgm.getComponentWaiter(stepName),
		PanicHandlerFn:        panicHandlerFn}
	// Create and save new files-to-directory step.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startManifestWriter(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	inputFieldName4FilePath := components.Defaults.ChanField4FileNameWithoutPrefix // manifest entries are dataset-relative paths.
	if sg.Steps[stepName].Data["inputFieldName4FilePath"] != "" {
		inputFieldName4FilePath = sg.Steps[stepName].Data["inputFieldName4FilePath"]
	}
	appendCreationStamp := helper.GetTrueFalseStringAsBool(sg.Steps[stepName].Data["fileNameSuffixAppendCreationStamp"])
	cfg := &components.ManifestWriterConfig{
		Log:                     log,
		Name:                    stepCanonicalName,
		InputChan:               sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		InputChanField4FilePath: inputFieldName4FilePath,
		OutputDir:               sg.Steps[stepName].Data["outputDir"],
		ManifestFileNamePrefix:  sg.Steps[stepName].Data["fileNamePrefix"],
		ManifestFileNameSuffixAppendCreationStamp: appendCreationStamp,
		ManifestFileNameSuffixDateFormat:          sg.Steps[stepName].Data["fileNameSuffixDateTimeFormat"],
		ManifestFileNameExtension:                 sg.Steps[stepName].Data["fileNameExtension"],
		OutputChanField4ManifestDir:               sg.Steps[stepName].Data["outputFieldName4ManifestDir"],
		OutputChanField4ManifestName:              sg.Steps[stepName].Data["outputFieldName4ManifestName"],
		OutputChanField4ManifestFullPath:          sg.Steps[stepName].Data["outputFieldName4ManifestFullPath"],
		StepWatcher:                               stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:                               sgm.getComponentWaiter(stepName),
		PanicHandlerFn:                            panicHandlerFn}
	// Create and save new manifest writer.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startManifestReader(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	conn := getConnectionForStep(log, stepCanonicalName, sg, sgm, stepName)
	cfg := &components.ManifestReaderConfig{
		Log:                         log,
		Name:                        stepCanonicalName,
		InputChan:                   sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		InputChanField4ManifestName: sg.Steps[stepName].Data["inputFieldName4ManifestName"],
		FileSystemType:              conn.Type,
		BucketName:                  conn.Data["name"],
		BucketPrefix:                conn.Data["prefix"],
		Region:                      conn.Data["region"],
		OutputChanField4DataFileName: sg.Steps[stepName].Data["outputFieldName4DataFileName"],
		StepWatcher:                  stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:                  sgm.getComponentWaiter(stepName),
		PanicHandlerFn:               panicHandlerFn}
	// Create and save new manifest reader.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startOutputClean(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	conn := getConnectionForStep(log, stepCanonicalName, sg, sgm, stepName)
	// Set defaults if missing inputs.
	if sg.Steps[stepName].Data["outputFieldName4TableName"] == "" {
		sg.Steps[stepName].Data["outputFieldName4TableName"] = components.Defaults.ChanField4TableName
	}
	if sg.Steps[stepName].Data["outputFieldName4RowsDeleted"] == "" {
		sg.Steps[stepName].Data["outputFieldName4RowsDeleted"] = components.Defaults.ChanField4RowsDeleted
	}
	cfg := &components.OutputCleanConfig{
		Log:                         log,
		Name:                        stepCanonicalName,
		FileSystemType:              conn.Type,
		BucketName:                  conn.Data["name"],
		BucketPrefix:                conn.Data["prefix"],
		Region:                      conn.Data["region"],
		Directory:                   conn.Data["dir"],
		TableName:                   sg.Steps[stepName].Data["tableName"],
		OutputChanField4TableName:   sg.Steps[stepName].Data["outputFieldName4TableName"],
		OutputChanField4RowsDeleted: sg.Steps[stepName].Data["outputFieldName4RowsDeleted"],
		StepWatcher:                 stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:                 sgm.getComponentWaiter(stepName),
		PanicHandlerFn:              panicHandlerFn}
	// Create and save new output clean step.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
}

func startCSVFileWriter(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	maxFileBytes, err := strconv.Atoi(sg.Steps[stepName].Data["maxFileBytes"])
	if err != nil {
		log.Panic(stepCanonicalName, " unable to convert maxFileBytes to integer - check it exists in the pipe config: ", err)
	}
	maxFileRows, err := strconv.Atoi(sg.Steps[stepName].Data["maxFileRows"])
	if err != nil {
		log.Panic(stepCanonicalName, " unable to convert maxFileRows to integer - check it exists in the pipe config: ", err)
	}
	useGzip := helper.GetTrueFalseStringAsBool(sg.Steps[stepName].Data["useGzip"])
	appendCreationStamp := helper.GetTrueFalseStringAsBool(sg.Steps[stepName].Data["fileNameSuffixAppendCreationStamp"])
	// Set defaults if missing inputs.
	if sg.Steps[stepName].Data["outputFieldName4FilePath"] == "" {
		sg.Steps[stepName].Data["outputFieldName4FilePath"] = components.Defaults.ChanField4CSVFileName
	}
	// Setup component config.
	cfg := &components.CsvFileWriterConfig{
		Log:                               log,
		Name:                              stepCanonicalName,
		InputChan:                         sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		FileNamePrefix:                    sg.Steps[stepName].Data["fileNamePrefix"],
		FileNameSuffixAppendCreationStamp: appendCreationStamp,
		FileNameSuffixDateFormat:          sg.Steps[stepName].Data["fileNameSuffixDateTimeFormat"],
		FileNameExtension:                 sg.Steps[stepName].Data["fileNameExtension"],
		UseGzip:                           useGzip,
		HeaderFields:                      helper.CsvToStringSliceTrimSpacesRemoveQuotes(sg.Steps[stepName].Data["headerFieldsCSV"]), // TODO: make this use a safe csv reader.
		OutputDir:                         sg.Steps[stepName].Data["outputDir"],
		MaxFileBytes:                      maxFileBytes,
		MaxFileRows:                       maxFileRows,
		OutputChanField4FilePath:          sg.Steps[stepName].Data["outputFieldName4FilePath"],
		StepWatcher:                       stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:                       sgm.getComponentWaiter(stepName),
		PanicHandlerFn:                    panicHandlerFn}
	// Create and save new CSV file generator step.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startChannelBridge(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (inputChan chan chan stream.Record, outputChan chan stream.Record)) {
	cfg := &components.ChannelBridgeConfig{
		Log:            log,
		Name:           stepCanonicalName,
		StepWatcher:    stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:    sgm.getComponentWaiter(stepName),
		PanicHandlerFn: panicHandlerFn}
	in, out := componentFunc(cfg)
	sgm.requestChanInput(stepName, sg.Steps[stepName].Data["readDataFromStep"], in)
	sgm.setStepOutputChan(stepName, out)
	sgm.addBlockingStep(stepName, in)
}

func startFilterRows(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	cfg := &components.FilterRowsConfig{
		Log:            log,
		Name:           stepCanonicalName,
		InputChan:      sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		FilterType:     components.FilterType(sg.Steps[stepName].Data["filterType"]),
		FilterMetadata: components.FilterMetadata(sg.Steps[stepName].Data["filterMetadata"]),
		StepWatcher:    stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:    sgm.getComponentWaiter(stepName),
		PanicHandlerFn: panicHandlerFn}
	// Create and save new row filter step.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startFieldMapper(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	cfg := &components.FieldMapperConfig{
		Log:            log,
		Name:           stepCanonicalName,
		InputChan:      sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		Steps:          sg.Steps[stepName].ComponentSteps,
		StepWatcher:    stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:    sgm.getComponentWaiter(stepName),
		PanicHandlerFn: panicHandlerFn}
	// Create and save new field mapper step.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startStdOutPassThrough(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	var i int
	var err error
	if sg.Steps[stepName].Data["abortAfterNumRecords"] == "" {
		i = 0
	} else {
		i, err = strconv.Atoi(sg.Steps[stepName].Data["abortAfterNumRecords"])
		if err != nil {
			log.Panic(stepCanonicalName, " error reading abortAfterNumRecords required for StdOutPassThrough: ", err)
		}
	}
	cfg := &components.StdOutPassThroughConfig{
		Log:             log,
		Name:            stepCanonicalName,
		Writer:          os.Stdout,
		OutputFields:    helper.CsvToStringSliceTrimSpaces2(sg.Steps[stepName].Data["outputFieldsCsv"]),
		AbortAfterCount: int64(i),
		InputChan:       sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		StepWatcher:     stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:     sgm.getComponentWaiter(stepName),
		PanicHandlerFn:  panicHandlerFn}
	// Create and save new stdout sink step.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startChannelCombiner(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	cfg := &components.ChannelCombinerConfig{
		Log:            log,
		Name:           stepCanonicalName,
		Chan1:          sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep1"]),
		Chan2:          sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep2"]),
		StepWatcher:    stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:    sgm.getComponentWaiter(stepName),
		PanicHandlerFn: panicHandlerFn}
	// Create and save new channel combiner step.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep1"])
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep2"])
}

func startDateRangeGenerator(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	intervalSec, err := strconv.Atoi(sg.Steps[stepName].Data["intervalSeconds"])
	if err != nil {
		log.Panic(stepCanonicalName, " unable to fetch intervalSeconds required for DateRangeGenerator: ", err)
	}
	passInputFields, err := strconv.ParseBool(sg.Steps[stepName].Data["passInputFieldsToOutput"])
	if err != nil {
		log.Debug(stepCanonicalName, " unable to parse boolean value found in config field passInputFieldsToOutput: ", err, " - using default false")
		passInputFields = false
	}
	useUTC := helper.GetTrueFalseStringAsBool(sg.Steps[stepName].Data["useUTC"])
	cfg := &components.DateRangeGeneratorConfig{
		Log:                         log,
		Name:                        stepCanonicalName,
		InputChan:                   sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		InputChanFieldName4FromDate: sg.Steps[stepName].Data["inputFieldName4FromDate"],
		InputChanFieldName4ToDate:   sg.Steps[stepName].Data["inputFieldName4ToDate"],
		ToDateRFC3339orNow:          sg.Steps[stepName].Data["toDate"],
		UseUTC:                      useUTC,
		IntervalSizeSeconds:         intervalSec,
		OutputChanFieldName4LowDate: sg.Steps[stepName].Data["outputFieldName4LowDate"],
		OutputChanFieldName4HiDate:  sg.Steps[stepName].Data["outputFieldName4HiDate"],
		PassInputFieldsToOutput:     passInputFields,
		StepWatcher:                 stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:                 sgm.getComponentWaiter(stepName),
		PanicHandlerFn:              panicHandlerFn}
	// Create and save new date range generator.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startNumberRangeGenerator(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	intervalSizeInt, err := strconv.Atoi(sg.Steps[stepName].Data["intervalSize"])
	if err != nil {
		log.Panic(stepCanonicalName, " unable to fetch interval size required for NumberRangeGenerator: ", err)
	}
	intervalSize := float64(intervalSizeInt)
	leftPadNumZeros, err := strconv.Atoi(sg.Steps[stepName].Data["outputLeftPaddedNumZeros"])
	if err != nil {
		leftPadNumZeros = 0
	}
	passInputFields, err := strconv.ParseBool(sg.Steps[stepName].Data["passInputFieldsToOutput"])
	if err != nil {
		log.Debug(stepCanonicalName, " unable to parse boolean value found in config field passInputFieldsToOutput: ", err, " - using default false")
		passInputFields = false
	}
	cfg := &components.NumberRangeGeneratorConfig{
		Log:                         log,
		Name:                        stepCanonicalName,
		InputChan:                   sgm.getStepOutputChan(sg.Steps[stepName].Data["readDataFromStep"]),
		InputChanFieldName4LowNum:   sg.Steps[stepName].Data["inputFieldName4LowNum"],
		InputChanFieldName4HighNum:  sg.Steps[stepName].Data["inputFieldName4HighNum"],
		IntervalSize:                intervalSize,
		OutputLeftPaddedNumZeros:    leftPadNumZeros,
		OutputChanFieldName4LowNum:  sg.Steps[stepName].Data["outputFieldName4LowNum"],
		OutputChanFieldName4HighNum: sg.Steps[stepName].Data["outputFieldName4HighNum"],
		PassInputFieldsToOutput:     passInputFields,
		StepWatcher:                 stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:                 sgm.getComponentWaiter(stepName),
		PanicHandlerFn:              panicHandlerFn}
	// Create and save new number range generator.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
	// Save that this step has consumed other channels.
	sgm.consumeStep(sg.Steps[stepName].Data["readDataFromStep"])
}

func startGenerateRows(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	numRows, err := strconv.Atoi(sg.Steps[stepName].Data["numRows"])
	if err != nil {
		log.Panic(stepCanonicalName, " unable to read numRows required for GenerateRows: ", err)
	}
	var sleepIntervalSec int
	if sg.Steps[stepName].Data["sleepIntervalSeconds"] != "" {
		sleepIntervalSec, err = strconv.Atoi(sg.Steps[stepName].Data["sleepIntervalSeconds"])
		if err != nil {
			log.Panic(stepCanonicalName, " unable to read sleepIntervalSeconds for GenerateRows: ", err)
		}
	}
	cfg := &components.GenerateRowsConfig{
		Log:                    log,
		Name:                   stepCanonicalName,
		MapFieldNamesValuesCSV: sg.Steps[stepName].Data["fieldNamesValuesCSV"],
		FieldName4Sequence:     sg.Steps[stepName].Data["sequenceFieldName"],
		SleepIntervalSeconds:   sleepIntervalSec,
		NumRows:                numRows,
		StepWatcher:            stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:            sgm.getComponentWaiter(stepName),
		PanicHandlerFn:         panicHandlerFn}
	// Create and save new row generator.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
}

func startMergeNChannels(log logger.Logger,
	stepName string,
	stepCanonicalName string,
	sg *StepGroup,
	sgm StepGroupManager,
	stats StatsManager,
	panicHandlerFn components.PanicHandlerFunc,
	componentFunc func(cfg interface{}) (outputChan chan stream.Record, controlChan chan components.ControlAction)) {
	allowFieldOverwrite := helper.GetTrueFalseStringAsBool(sg.Steps[stepName].Data["allowFieldOverwrite"])
	inputChannels := make([]chan stream.Record, 0)
	for _, val := range sg.Steps[stepName].ComponentSteps { // for each input channel name (stored in ComponentSteps.Type)...
		inputChannels = append(inputChannels, sgm.getStepOutputChan(val.Type)) // save it to supply to component.
		sgm.consumeStep(val.Type)                                              // also save that this step has consumed other channels.
	}
	cfg := &components.MergeNChannelsConfig{
		Log:                 log,
		Name:                stepCanonicalName,
		AllowFieldOverwrite: allowFieldOverwrite,
		InputChannels:       inputChannels,
		StepWatcher:         stats.AddStepWatcher(stepCanonicalName),
		WaitCounter:         sgm.getComponentWaiter(stepName),
		PanicHandlerFn:      panicHandlerFn}
	// Create and save new MergeNChannels.
	out, control := componentFunc(cfg)
	sgm.setStepOutputChan(stepName, out)      // save the output channel.
	sgm.setStepControlChan(stepName, control) // save the control channel.
}
