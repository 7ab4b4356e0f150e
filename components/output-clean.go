package components

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/relloyd/songlake/aws/s3"
	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
	tabledefinition "github.com/relloyd/songlake/table-definition"
)

type OutputCleanConfig struct {
	Log                         logger.Logger
	Name                        string
	FileSystemType              string // constants.ConnectionTypeS3 or constants.ConnectionTypeLocalFs.
	BucketName                  string // S3 target bucket; tolerates an "s3://" prefix.
	BucketPrefix                string
	Region                      string
	Directory                   string // localfs output root holding the table datasets.
	TableName                   string // the table whose dataset and manifests are removed.
	OutputChanField4TableName   string // outputChan field to emit the cleaned table name onto.
	OutputChanField4RowsDeleted string // outputChan field to emit the number of objects/files removed onto.
	StepWatcher                 *stats.StepWatcher
	WaitCounter                 ComponentWaiter
	PanicHandlerFn              PanicHandlerFunc
}

// NewOutputClean deletes a table's dataset directory and its old run manifests from the
// output location so the write chain that follows replaces prior contents entirely.
// It is a source step: it emits a single record holding the table name and the number
// of objects removed, then closes its output channel.
func NewOutputClean(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*OutputCleanConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.TableName == "" {
		cfg.Log.Panic(cfg.Name, " error - missing table name in call to NewOutputClean.")
	}
	table, err := tabledefinition.GetTableDefinition(cfg.TableName)
	if err != nil {
		cfg.Log.Panic(cfg.Name, " error - ", err)
	}
	if cfg.OutputChanField4TableName == "" {
		cfg.OutputChanField4TableName = Defaults.ChanField4TableName
	}
	if cfg.OutputChanField4RowsDeleted == "" {
		cfg.OutputChanField4RowsDeleted = Defaults.ChanField4RowsDeleted
	}
	// fnClean removes the table's dataset and manifests and returns the number of objects removed.
	var fnClean func() (int, error)
	switch cfg.FileSystemType {
	case c.ConnectionTypeS3:
		if cfg.BucketName == "" {
			cfg.Log.Panic(cfg.Name, " error - missing target bucket name.")
		}
		cfg.BucketName = strings.TrimPrefix(cfg.BucketName, "s3://")
		if cfg.Region == "" {
			cfg.Log.Panic(cfg.Name, " error - missing AWS region.")
		}
		s := s3.NewBasicClient(cfg.BucketName, cfg.Region, cfg.BucketPrefix)
		fnClean = func() (int, error) {
			numDeleted, err := s.DeletePrefix(table.DatasetName() + "/") // trailing slash so sibling prefixes survive.
			if err != nil {
				return numDeleted, err
			}
			numManifests, err := s.DeletePrefix(table.ManifestPrefix() + "-")
			return numDeleted + numManifests, err
		}
	case c.ConnectionTypeLocalFs:
		if cfg.Directory == "" {
			cfg.Log.Panic(cfg.Name, " error - missing target directory.")
		}
		cfg.Directory = strings.TrimPrefix(cfg.Directory, "file://")
		fnClean = func() (int, error) {
			numDeleted := 0
			datasetDir := filepath.Join(cfg.Directory, table.DatasetName())
			_ = filepath.Walk(datasetDir, func(path string, info os.FileInfo, err error) error {
				if err == nil && !info.IsDir() { // count data files; a missing dataset dir is fine.
					numDeleted++
				}
				return nil
			})
			if err := os.RemoveAll(datasetDir); err != nil {
				return numDeleted, err
			}
			entries, err := filepath.Glob(filepath.Join(cfg.Directory, table.ManifestPrefix()+"-*"))
			if err != nil {
				return numDeleted, err
			}
			for _, e := range entries { // for each old manifest...
				if err := os.Remove(e); err != nil {
					return numDeleted, err
				}
				numDeleted++
			}
			return numDeleted, nil
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
		numDeleted, err := fnClean()
		if err != nil {
			cfg.Log.Panic(cfg.Name, " error cleaning output for table ", cfg.TableName, ": ", err)
		}
		cfg.Log.Info(cfg.Name, " removed ", numDeleted, " objects for table ", cfg.TableName)
		rec := stream.NewRecord()
		rec.SetData(cfg.OutputChanField4TableName, cfg.TableName)
		rec.SetData(cfg.OutputChanField4RowsDeleted, numDeleted)
		atomic.AddInt64(&rowCount, 1) // increment the row count bearing in mind someone else is reporting on its values.
		if recSentOK := safeSend(rec, outputChan, controlChan, sendNilControlResponse); !recSentOK { // if we were asked to shutdown...
			cfg.Log.Info(cfg.Name, " shutdown")
			return
		}
		close(outputChan) // we're done so close the channel we created.
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return
}
