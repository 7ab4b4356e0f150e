package components

import (
	"path/filepath"
	"sync/atomic"

	c "github.com/relloyd/songlake/constants"
	f "github.com/relloyd/songlake/file"
	"github.com/relloyd/songlake/logger"
	s "github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
	tabledefinition "github.com/relloyd/songlake/table-definition"
	"github.com/rs/xid"
)

type ParquetFileWriterConfig struct {
	Log                              logger.Logger
	Name                             string
	InputChan                        chan stream.Record // the input channel of rows to write to the parquet dataset.
	TableName                        string             // target table whose definition supplies schema, types and partition keys.
	StagingDirectory                 string             // set to empty string to use a system generated sub directory in OS temp space.
	FileNameToken                    string             // token embedded in part file names; normally the run GUID. A random one is generated if empty.
	MaxFileRows                      int                // rows per part file before rotation; 0 uses the package default cap.
	OutputChanField4FilePath         string             // the field on outputChan that will contain the full file path.
	OutputChanField4FileNameNoPrefix string             // the field on outputChan that will contain the dataset-relative file path.
	StepWatcher                      *s.StepWatcher
	WaitCounter                      ComponentWaiter
	PanicHandlerFn                   PanicHandlerFunc
}

// NewParquetFileWriter writes input records into a partitioned parquet dataset under a local
// staging directory, using the table definition named in cfg.TableName for column order, types
// and Hive-style partition paths.
// A record whose values cannot be coerced to the table's column types is skipped and counted on
// the step watcher under constants.StatsCounterSkippedRows.
// outputChan carries one record per COMPLETED part file (full path plus dataset-relative path);
// a file name is only emitted after its file is closed, on rotation or at end of input, so
// downstream copy steps never see a file that is still being written.
func NewParquetFileWriter(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*ParquetFileWriterConfig)
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing input channel.")
	}
	table, err := tabledefinition.GetTableDefinition(cfg.TableName)
	if err != nil {
		cfg.Log.Panic(cfg.Name, " error - ", err)
	}
	if cfg.OutputChanField4FilePath == "" {
		cfg.OutputChanField4FilePath = Defaults.ChanField4FileName
	}
	if cfg.OutputChanField4FileNameNoPrefix == "" {
		cfg.OutputChanField4FileNameNoPrefix = Defaults.ChanField4FileNameWithoutPrefix
	}
	if cfg.FileNameToken == "" {
		cfg.FileNameToken = xid.New().String()
	}
	if cfg.MaxFileRows == 0 {
		cfg.MaxFileRows = c.ParquetMaxRowsPerFile
	}
	outputChan = make(chan stream.Record, c.ChanSize)
	controlChan = make(chan ControlAction, 1)
	go func() {
		if cfg.PanicHandlerFn != nil {
			defer cfg.PanicHandlerFn()
		}
		if cfg.WaitCounter != nil {
			cfg.WaitCounter.Add()
			defer cfg.WaitCounter.Done()
		}
		cfg.Log.Info(cfg.Name, " is running for table ", table.TableName)
		fo, err := f.NewParquetFileOutput(cfg.Log, cfg.StagingDirectory, table, cfg.FileNameToken, cfg.MaxFileRows)
		if err != nil {
			cfg.Log.Panic(cfg.Name, " error - ", err)
		}
		rowCount := int64(0)
		if cfg.StepWatcher != nil { // if we have been given a StepWatcher struct that can watch our rowCount and output channel length...
			cfg.StepWatcher.StartWatching(&rowCount, &outputChan)
			defer cfg.StepWatcher.StopWatching()
		}
		sendRow := func(relPath string) (rowSentOK bool) {
			row := stream.NewRecord()
			row.SetData(cfg.OutputChanField4FilePath, filepath.Join(fo.Directory(), filepath.FromSlash(relPath)))
			row.SetData(cfg.OutputChanField4FileNameNoPrefix, relPath)
			cfg.Log.Debug(cfg.Name, " producing filename as a row onto the output channel: ", row)
			return safeSend(row, outputChan, controlChan, sendNilControlResponse) // forward the record
		}
		var controlAction ControlAction
		for { // for each row of input...
			select {
			case rec, ok := <-cfg.InputChan:
				if !ok { // if the input channel was closed...
					cfg.InputChan = nil // disable this case.
				} else { // else we have input to process...
					row, err := table.RowFromRecord(rec)
					if err != nil { // if the record does not fit the table...
						cfg.Log.Warn(cfg.Name, " skipping record that does not fit table ", table.TableName, ": ", err)
						if cfg.StepWatcher != nil {
							cfg.StepWatcher.IncrCounter(c.StatsCounterSkippedRows)
						}
						continue
					}
					closedFile := fo.MustWriteRow(row)
					atomic.AddInt64(&rowCount, 1) // increment the row count bearing in mind someone else is reporting on its values.
					if closedFile != "" {         // if the write rotated a finished file out of use...
						if rowSentOK := sendRow(closedFile); !rowSentOK {
							cfg.Log.Info(cfg.Name, " shutdown")
							return
						}
					}
				}
			case controlAction = <-controlChan:
				controlChan = nil
			}
			if controlChan == nil || cfg.InputChan == nil { // if we should quit due to a shutdown request or the end of input...
				break
			}
		}
		if controlAction.Action == Shutdown { // if we were asked to shutdown...
			fo.MustClose()                    // finalise open files; their names are not emitted so nothing downstream moves them.
			controlAction.ResponseChan <- nil // respond that we're done with a nil error.
			cfg.Log.Info(cfg.Name, " shutdown")
			return
		} else { // else we ran out of rows to process...
			for _, closedFile := range fo.MustClose() { // finalise and emit the remaining open files...
				if rowSentOK := sendRow(closedFile); !rowSentOK {
					cfg.Log.Info(cfg.Name, " shutdown")
					return
				}
			}
			cfg.Log.Info(cfg.Name, " wrote ", fo.TotalRowCount(), " rows to ", len(fo.ListOfOutputFiles), " files for table ", table.TableName)
			close(outputChan) // we're done so close the channel we created.
			cfg.Log.Info(cfg.Name, " complete")
		}
	}()
	return
}
