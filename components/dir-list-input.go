package components

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"

	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
)

var errWalkShutdown = errors.New("shutdown requested during directory walk")

type DirectoryListerConfig struct {
	Log                               logger.Logger
	Name                              string
	Directory                         string // root directory to walk recursively.
	ObjectNamePrefix                  string // list files where the beginning of their names (relative to Directory) matches this string.
	ObjectNameRegexp                  string // used to further filter the list of files found under Directory.
	OutputField4FileName              string // the map key on outputChan that contains the full file paths. If this is an empty string then default to value found in this package var, Defaults.
	OutputField4FileNameWithoutPrefix string // the map key on outputChan that contains paths relative to Directory.
	StepWatcher                       *stats.StepWatcher // supply a StepWatcher or nil.
	WaitCounter                       ComponentWaiter
	PanicHandlerFn                    PanicHandlerFunc
}

// NewDirectoryList walks the given directory tree and produces a record per regular file found,
// the local file system twin of NewS3BucketList. Each record carries the full path and the
// path relative to the root so downstream steps can preserve layout.
func NewDirectoryList(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*DirectoryListerConfig)
	outputChan = make(chan stream.Record, int(c.ChanSize))
	controlChan = make(chan ControlAction, 1)
	if cfg.Directory == "" {
		cfg.Log.Panic(cfg.Name, " error - missing source directory.")
	}
	cfg.Directory = strings.TrimPrefix(cfg.Directory, "file://")
	go func() {
		if cfg.PanicHandlerFn != nil {
			defer cfg.PanicHandlerFn()
		}
		if cfg.OutputField4FileName == "" {
			cfg.OutputField4FileName = Defaults.ChanField4FileName
			cfg.Log.Info(cfg.Name, " output field for file name(s) not supplied, using default value ", Defaults.ChanField4FileName)
		}
		if cfg.OutputField4FileNameWithoutPrefix == "" {
			cfg.OutputField4FileNameWithoutPrefix = Defaults.ChanField4FileNameWithoutPrefix
			cfg.Log.Info(cfg.Name, " output field for file name(s) without prefix not supplied, using default value ", Defaults.ChanField4FileNameWithoutPrefix)
		}
		cfg.Log.Info(cfg.Name, " is running for directory '", cfg.Directory, "' regex filter '", cfg.ObjectNameRegexp, "'")
		if cfg.WaitCounter != nil {
			cfg.WaitCounter.Add()
			defer cfg.WaitCounter.Done()
		}
		rowCount := int64(0)
		if cfg.StepWatcher != nil { // if we have been given a stepWatcher struct that can watch our rowCount...
			cfg.StepWatcher.StartWatching(&rowCount, &outputChan)
			defer cfg.StepWatcher.StopWatching()
		}
		var r *regexp.Regexp
		ignoreRegexp := false
		var err error
		cfg.Log.Debug(cfg.Name, " regexp: ", cfg.ObjectNameRegexp)
		if cfg.ObjectNameRegexp != "" { // if there is a regexp to parse...
			r, err = regexp.Compile(cfg.ObjectNameRegexp)
			if err != nil {
				cfg.Log.Panic(err)
			}
		} else { // else we haven't been given a regexp...
			ignoreRegexp = true
			cfg.Log.Debug(cfg.Name, " missing regexp - ignoring regex file name filtering.")
		}
		err = filepath.Walk(cfg.Directory, func(fullPath string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() { // if this is a directory...
				return nil // descend into it.
			}
			relPath, err := filepath.Rel(cfg.Directory, fullPath)
			if err != nil {
				return err
			}
			relPath = filepath.ToSlash(relPath)
			if cfg.ObjectNamePrefix != "" && !strings.HasPrefix(relPath, cfg.ObjectNamePrefix) { // if the file is outside the requested prefix...
				cfg.Log.Trace(cfg.Name, " no prefix match for file - skipped: ", relPath)
				return nil
			}
			if ignoreRegexp || (r != nil && r.MatchString(relPath)) { // if we have a regular expression to match files with or we have no regexp in the first place...
				cfg.Log.Debug(cfg.Name, " - producing record for file '", fullPath, "' onto output channel")
				rec := stream.NewRecord()
				rec.SetData(cfg.OutputField4FileName, fullPath)
				rec.SetData(cfg.OutputField4FileNameWithoutPrefix, relPath)
				if recSentOK := safeSend(rec, outputChan, controlChan, sendNilControlResponse); !recSentOK {
					cfg.Log.Info(cfg.Name, " shutdown")
					return errWalkShutdown // abort the rest of the walk.
				}
				atomic.AddInt64(&rowCount, 1)
			} else {
				cfg.Log.Trace(cfg.Name, " no match for file - skipped: ", relPath)
			}
			return nil
		})
		if err == errWalkShutdown { // if a shutdown request interrupted the walk...
			return
		}
		if err != nil {
			cfg.Log.Panic(cfg.Name, " unable to list directory '", cfg.Directory, "': ", err)
		}
		close(outputChan) // we're done so close the channel we created.
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return
}
