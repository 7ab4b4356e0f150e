package components

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
)

type CopyFilesToDirConfig struct {
	Log                   logger.Logger
	Name                  string
	InputChan             chan stream.Record // the input channel of rows containing files (with full paths) to copy/move.
	FileNameChanField     string             // name of the field in InputChan that contains the files to move.
	RelativePathChanField string             // name of the field in InputChan holding the path relative to the staging root; the file lands at this path below TargetDirectory. Falls back to the file's base name when the field is absent.
	TargetDirectory       string             // target directory to copy/move files into.
	RemoveInputFiles      bool               // true to delete the input files after successful copy.
	StepWatcher           *stats.StepWatcher
	WaitCounter           ComponentWaiter
	PanicHandlerFn        PanicHandlerFunc
}

// NewCopyFilesToDir copies os files into a target directory, preserving each file's
// staging-relative path so partition directory layout survives the transfer.
// When RemoveInputFiles is set it renames where possible and falls back to
// copy-then-remove across file systems.
// This passes InputChan rows to outputChan once their file is safely in place.
func NewCopyFilesToDir(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*CopyFilesToDirConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing chan input in call to NewCopyFilesToDir.")
	}
	if cfg.FileNameChanField == "" {
		cfg.Log.Panic(cfg.Name, " error - missing the field name used to find files on the input channel.")
	}
	if cfg.RelativePathChanField == "" {
		cfg.RelativePathChanField = Defaults.ChanField4FileNameWithoutPrefix
	}
	if cfg.TargetDirectory == "" {
		cfg.Log.Panic(cfg.Name, " error - missing target directory.")
	}
	cfg.TargetDirectory = strings.TrimPrefix(cfg.TargetDirectory, "file://")
	cfg.Log.Debug(cfg.Name, ": RemoveInputFiles = ", cfg.RemoveInputFiles)
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
		if cfg.StepWatcher != nil { // if we have been given a StepWatcher struct that can watch our rowCount and output channel length...
			cfg.StepWatcher.StartWatching(&rowCount, &outputChan)
			defer cfg.StepWatcher.StopWatching()
		}
		var fileFullPathName string
		for {
			select {
			case rec, ok := <-cfg.InputChan: // for each row of input...
				if !ok { // if the input channel was closed...
					cfg.InputChan = nil // disable this case.
				} else { // else process the input row...
					atomic.AddInt64(&rowCount, 1) // increment the row count bearing in mind someone else is reporting on its values.
					fileFullPathName = rec.GetDataAsStringPreserveTimeZone(cfg.Log, cfg.FileNameChanField)
					if fileFullPathName != "" {
						// Work out the target path: prefer the relative path so directory layout is kept.
						var relPath string
						if v, ok := rec.GetDataOk(cfg.RelativePathChanField); ok && v != nil {
							relPath = rec.GetDataAsStringPreserveTimeZone(cfg.Log, cfg.RelativePathChanField)
						}
						if relPath == "" { // if there is no relative path on the record...
							relPath = filepath.Base(fileFullPathName) // fall back to the base file name.
						}
						targetPathName := filepath.Join(cfg.TargetDirectory, filepath.FromSlash(relPath))
						err := os.MkdirAll(filepath.Dir(targetPathName), os.ModePerm)
						if err != nil {
							cfg.Log.Panic(cfg.Name, " error - unable to create directory for ", targetPathName, ": ", err)
						}
						// Setup log text based on copy vs move action.
						action := "moving"
						if !cfg.RemoveInputFiles {
							action = "copying"
						}
						cfg.Log.Info(cfg.Name, " ", action, " file '", fileFullPathName, "' to '", targetPathName, "'")
						if cfg.RemoveInputFiles { // if we are requested to move the file instead of just copy...
							err = os.Rename(fileFullPathName, targetPathName)
							if err != nil { // if the rename failed (staging may be on another file system)...
								err = copyFile(fileFullPathName, targetPathName)
								if err != nil {
									cfg.Log.Panic(cfg.Name, " error - unable to move file ", fileFullPathName, ": ", err)
								}
								err = os.Remove(fileFullPathName)
								if err != nil {
									cfg.Log.Panic(cfg.Name, " unable to remove OS file, ", fileFullPathName)
								}
							}
							cfg.Log.Debug(cfg.Name, " removed file '", fileFullPathName, "'")
						} else {
							err = copyFile(fileFullPathName, targetPathName)
							if err != nil {
								cfg.Log.Panic(cfg.Name, " error - unable to copy file ", fileFullPathName, ": ", err)
							}
						}
						// Pass the input row on to the output channel.
						cfg.Log.Debug(cfg.Name, " producing filename as a row onto the output channel: ", rec)
						if recSentOK := safeSend(rec, outputChan, controlChan, sendNilControlResponse); !recSentOK { // forward the record
							cfg.Log.Info(cfg.Name, " shutdown")
							return
						}
					} else {
						cfg.Log.Debug(cfg.Name, " no file found in input channel - skipping.")
					}
				}
			case controlAction := <-controlChan: // if we received a shutdown request...
				controlAction.ResponseChan <- nil // respond that we're done with a nil error.
				cfg.Log.Info(cfg.Name, " shutdown")
				return
			}
			if cfg.InputChan == nil { // if all input rows were consumed...
				break
			}
		}
		close(outputChan) // we're done so close the channel we created.
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return
}

// copyFile copies src to dst, creating or truncating dst.
func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
