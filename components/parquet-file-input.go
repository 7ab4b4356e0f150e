package components

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	c "github.com/relloyd/songlake/constants"
	f "github.com/relloyd/songlake/file"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
	tabledefinition "github.com/relloyd/songlake/table-definition"
)

const parquetReadBatchSize = 4096

type ParquetFileInputConfig struct {
	Log                     logger.Logger
	Name                    string
	InputChan               chan stream.Record // the input channel of rows naming parquet files to read.
	InputChanField4FilePath string             // field holding a dataset-relative path (joined to Directory / BucketPrefix) or an absolute localfs path.
	FileSystemType          string             // constants.ConnectionTypeS3 or constants.ConnectionTypeLocalFs.
	BucketName              string             // S3 bucket holding the files; tolerates an "s3://" prefix.
	BucketPrefix            string
	Region                  string
	Directory               string // localfs output root that relative file paths are joined to.
	TableName               string // supplies the column names to read.
	StepWatcher             *stats.StepWatcher
	WaitCounter             ComponentWaiter
	PanicHandlerFn          PanicHandlerFunc
}

// NewParquetFileInput opens each parquet file named on the input channel and emits one record
// per row, carrying the table's columns. We receive 1 file record and produce N row records.
// Column names come from the table definition, so files written with a different layout panic.
func NewParquetFileInput(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*ParquetFileInputConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing chan input in call to NewParquetFileInput.")
	}
	if cfg.InputChanField4FilePath == "" {
		cfg.InputChanField4FilePath = Defaults.ChanField4FileName
	}
	table, err := tabledefinition.GetTableDefinition(cfg.TableName)
	if err != nil {
		cfg.Log.Panic(cfg.Name, " error - ", err)
	}
	fieldNames := table.ColumnNames()
	// fnOpen opens the named parquet file for reading.
	var fnOpen func(name string) (*f.ParquetFileReader, error)
	switch cfg.FileSystemType {
	case c.ConnectionTypeS3:
		if cfg.BucketName == "" {
			cfg.Log.Panic(cfg.Name, " error - missing target bucket name.")
		}
		cfg.BucketName = strings.TrimPrefix(cfg.BucketName, "s3://")
		if cfg.Region == "" {
			cfg.Log.Panic(cfg.Name, " error - missing AWS region.")
		}
		fnOpen = func(name string) (*f.ParquetFileReader, error) {
			key := name
			if cfg.BucketPrefix != "" { // if the bucket uses a prefix...
				key = path.Join(strings.TrimRight(cfg.BucketPrefix, "/"), name)
			}
			return f.NewParquetFileReaderS3(context.Background(), cfg.Log, cfg.BucketName, key, cfg.Region, fieldNames)
		}
	case c.ConnectionTypeLocalFs:
		cfg.Directory = strings.TrimPrefix(cfg.Directory, "file://")
		fnOpen = func(name string) (*f.ParquetFileReader, error) {
			fileName := filepath.FromSlash(name)
			if !filepath.IsAbs(fileName) && cfg.Directory != "" { // if we were given a dataset-relative path...
				fileName = filepath.Join(cfg.Directory, fileName)
			}
			return f.NewParquetFileReaderLocal(cfg.Log, fileName, fieldNames)
		}
	default:
		cfg.Log.Panic(cfg.Name, " error - unsupported file system type '", cfg.FileSystemType, "'.")
	}
	outputChan = make(chan stream.Record, c.ChanSize)
	controlChan = make(chan ControlAction, 1)
	go func() {
		if cfg.PanicHandlerFn != nil {
			defer cfg.PanicHandlerFn()
		}
		cfg.Log.Info(cfg.Name, " is running")
		if cfg.WaitCounter != nil {
			cfg.WaitCounter.Add()
			defer cfg.WaitCounter.Done()
		}
		rowCount := int64(0)
		if cfg.StepWatcher != nil { // if we have been given a stepWatcher struct that can watch our rowCount and output channel length...
			cfg.StepWatcher.StartWatching(&rowCount, &outputChan)
			defer cfg.StepWatcher.StopWatching()
		}
		for {
			select {
			case rec, ok := <-cfg.InputChan: // for each input file record...
				if !ok { // if the input channel was closed...
					cfg.InputChan = nil // disable this case.
				} else { // else we have a file to read...
					fileName := rec.GetDataAsStringPreserveTimeZone(cfg.Log, cfg.InputChanField4FilePath)
					cfg.Log.Info(cfg.Name, " reading parquet file ", fileName)
					pr, err := fnOpen(fileName)
					if err != nil {
						cfg.Log.Panic(cfg.Name, " error opening parquet file ", fileName, ": ", err)
					}
					numRows := pr.NumRows()
					var numRead int64
					for numRead < numRows { // while the file has unread rows...
						rows, err := pr.ReadRows(parquetReadBatchSize)
						if err != nil {
							pr.Close()
							cfg.Log.Panic(cfg.Name, " error reading parquet file ", fileName, ": ", err)
						}
						numRead += int64(len(rows))
						for _, row := range rows { // for each row in the batch...
							outRec := stream.NewRecord()
							for _, name := range fieldNames { // keep table column order on the output record.
								outRec.SetData(name, row[name])
							}
							if outRecSentOK := safeSend(outRec, outputChan, controlChan, sendNilControlResponse); !outRecSentOK {
								pr.Close()
								cfg.Log.Info(cfg.Name, " shutdown")
								return
							}
							atomic.AddInt64(&rowCount, 1) // increment the row count bearing in mind someone else is reporting on its values.
						}
					}
					pr.Close()
				}
			case controlAction := <-controlChan: // if we have been asked to shutdown...
				controlAction.ResponseChan <- nil // respond that we're done with a nil error.
				cfg.Log.Info(cfg.Name, " shutdown")
				return
			}
			if cfg.InputChan == nil { // if the input channel was closed (all files processed)...
				break
			}
		}
		close(outputChan) // we're done so close the channel we created.
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return
}
