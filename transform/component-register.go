package transform

import (
	"github.com/relloyd/songlake/components"
)

// TODO: add error return value from components and handle in launcher functions.
// TODO: add generic launcher function that matches JSON keys to config struct field names sop we can have only one or two launchers.
var componentFuncs = MapComponentFuncs{
	// Type 2 - returns 2 output channels of type stream.StreamRecordIface and ControlAction.
	"S3BucketList":      ComponentRegistration{"2", ComponentRegistrationType2{components.NewS3BucketList, startS3BucketList}},
	"DirectoryList":     ComponentRegistration{"2", ComponentRegistrationType2{components.NewDirectoryList, startDirectoryList}},
	"JsonFileInput":     ComponentRegistration{"2", ComponentRegistrationType2{components.NewJsonFileInput, startJsonFileInput}},
	"DedupRows":         ComponentRegistration{"2", ComponentRegistrationType2{components.NewDedupRows, startDedupRows}},
	"LookupJoin":        ComponentRegistration{"2", ComponentRegistrationType2{components.NewLookupJoin, startLookupJoin}},
	"SortRows":          ComponentRegistration{"2", ComponentRegistrationType2{components.NewSortRows, startSortRows}},
	"MergeDiff":         ComponentRegistration{"2", ComponentRegistrationType2{components.NewMergeDiff, startMergeDiff}},
	"ParquetFileWriter": ComponentRegistration{"2", ComponentRegistrationType2{components.NewParquetFileWriter, startParquetFileWriter}},
	"ParquetFileInput":  ComponentRegistration{"2", ComponentRegistrationType2{components.NewParquetFileInput, startParquetFileInput}},
	"CopyFilesToS3":     ComponentRegistration{"2", ComponentRegistrationType2{components.NewCopyFilesToS3, startCopyFilesToS3}},
	"CopyFilesToDir":    ComponentRegistration{"2", ComponentRegistrationType2{components.NewCopyFilesToDir, startCopyFilesToDir}},
	"ManifestWriter":    ComponentRegistration{"2", ComponentRegistrationType2{components.NewManifestWriter, startManifestWriter}},
	"ManifestReader":    ComponentRegistration{"2", ComponentRegistrationType2{components.NewManifestReader, startManifestReader}},
	"OutputClean":       ComponentRegistration{"2", ComponentRegistrationType2{components.NewOutputClean, startOutputClean}},
	"CSVFileWriter":     ComponentRegistration{"2", ComponentRegistrationType2{components.NewCsvFileWriter, startCSVFileWriter}},
	"StdOutPassThrough": ComponentRegistration{"2", ComponentRegistrationType2{components.NewStdOutPassThrough, startStdOutPassThrough}},
	// Generators and channel plumbing for user-defined pipes.
	"GenerateRows":          ComponentRegistration{"2", ComponentRegistrationType2{components.NewGenerateRows, startGenerateRows}},
	"DateRangeGenerator":    ComponentRegistration{"2", ComponentRegistrationType2{components.NewDateRangeGenerator, startDateRangeGenerator}},
	"NumberRangeGenerator":  ComponentRegistration{"2", ComponentRegistrationType2{components.NewNumberRangeGenerator, startNumberRangeGenerator}},
	"ChannelCombiner":       ComponentRegistration{"2", ComponentRegistrationType2{components.NewChannelCombiner, startChannelCombiner}},
	"MergeStreamsCartesian": ComponentRegistration{"2", ComponentRegistrationType2{components.NewMergeNChannels, startMergeNChannels}},
	// FieldMapper and FilterRows contain their own dynamic features.
	"FieldMapper": ComponentRegistration{"2", ComponentRegistrationType2{components.NewFieldMapper, startFieldMapper}},
	"FilterRows":  ComponentRegistration{"2", ComponentRegistrationType2{components.NewFilterRows, startFilterRows}},
	// Type 3 - returns 1 output chan and 1 input chan of type stream.StreamRecordIface.
	"ChannelBridge": ComponentRegistration{"3", ComponentRegistrationType3{components.NewChannelBridge, startChannelBridge}},
}
