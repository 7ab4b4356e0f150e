package components

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io/ioutil"
	"strings"
	"sync/atomic"

	"github.com/relloyd/songlake/aws/s3"
	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
)

// JSON document layouts accepted by NewJsonFileInput.
const (
	JsonFormatObject = "object" // the whole file is a single JSON object.
	JsonFormatLines  = "lines"  // one JSON object per line (JSONL).
)

type JsonFileInputConfig struct {
	Log                     logger.Logger
	Name                    string
	InputChan               chan stream.Record // the input channel of records naming JSON files to read.
	InputChanField4FilePath string             // name of the field in InputChan that contains the file path or object key.
	FileSystemType          string             // constants.ConnectionTypeS3 or constants.ConnectionTypeLocalFs.
	BucketName              string             // source bucket; ignored for localfs.
	BucketPrefix            string
	Region                  string
	JsonFormat              string // JsonFormatObject or JsonFormatLines.
	StepWatcher             *stats.StepWatcher
	WaitCounter             ComponentWaiter
	PanicHandlerFn          PanicHandlerFunc
}

// NewJsonFileInput reads each file named on the input channel and produces one record per
// decoded JSON object: the whole file in JsonFormatObject mode, or one per line in
// JsonFormatLines mode. Numbers are decoded with json.Number so integer precision survives
// until the table mapping coerces values.
// A file or line that fails to decode is skipped and counted on the step watcher under
// constants.StatsCounterSkippedRows; a file that cannot be fetched at all is fatal since
// that points at config or infrastructure, not data.
func NewJsonFileInput(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*JsonFileInputConfig)
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing chan input in call to NewJsonFileInput.")
	}
	if cfg.JsonFormat != JsonFormatObject && cfg.JsonFormat != JsonFormatLines {
		cfg.Log.Panic(cfg.Name, " error - unsupported jsonFormat '", cfg.JsonFormat, "' - use '", JsonFormatObject, "' or '", JsonFormatLines, "'.")
	}
	var fnFetch func(name string) ([]byte, error)
	switch cfg.FileSystemType {
	case c.ConnectionTypeS3:
		if cfg.BucketName == "" {
			cfg.Log.Panic(cfg.Name, " error - missing source bucket name.")
		}
		cfg.BucketName = strings.TrimPrefix(cfg.BucketName, "s3://")
		if cfg.Region == "" {
			cfg.Log.Panic(cfg.Name, " error - missing AWS region.")
		}
		s := s3.NewBasicClient(cfg.BucketName, cfg.Region, cfg.BucketPrefix)
		fnFetch = s.Get
	case c.ConnectionTypeLocalFs:
		fnFetch = ioutil.ReadFile
	default:
		cfg.Log.Panic(cfg.Name, " error - unsupported file system type '", cfg.FileSystemType, "'.")
	}
	outputChan = make(chan stream.Record, int(c.ChanSize))
	controlChan = make(chan ControlAction, 1)
	go func() {
		if cfg.PanicHandlerFn != nil {
			defer cfg.PanicHandlerFn()
		}
		if cfg.InputChanField4FilePath == "" {
			cfg.InputChanField4FilePath = Defaults.ChanField4FileName
			cfg.Log.Info(cfg.Name, " input field for file name(s) not supplied, using default value ", Defaults.ChanField4FileName)
		}
		cfg.Log.Info(cfg.Name, " is running in ", cfg.JsonFormat, " mode")
		if cfg.WaitCounter != nil {
			cfg.WaitCounter.Add()
			defer cfg.WaitCounter.Done()
		}
		rowCount := int64(0)
		if cfg.StepWatcher != nil { // if we have been given a stepWatcher struct that can watch our rowCount...
			cfg.StepWatcher.StartWatching(&rowCount, &outputChan)
			defer cfg.StepWatcher.StopWatching()
		}
		// Decode one JSON object and emit it merged with the fields of the file record.
		// Return false if a shutdown request stopped the send.
		fnDecodeAndSend := func(fileRec stream.Record, fileName string, data []byte) bool {
			m := make(map[string]interface{})
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.UseNumber() // keep numbers lossless; the table mapping coerces them later.
			if err := dec.Decode(&m); err != nil {
				cfg.Log.Warn(cfg.Name, " skipping malformed JSON in '", fileName, "': ", err)
				if cfg.StepWatcher != nil {
					cfg.StepWatcher.IncrCounter(c.StatsCounterSkippedRows)
				}
				return true
			}
			outRec := stream.NewRecord()
			fileRec.CopyTo(outRec) // keep the file fields so downstream steps know the source of each record.
			for k, v := range m {
				outRec.SetData(k, v)
			}
			if recSentOK := safeSend(outRec, outputChan, controlChan, sendNilControlResponse); !recSentOK {
				cfg.Log.Info(cfg.Name, " shutdown")
				return false
			}
			atomic.AddInt64(&rowCount, 1)
			return true
		}
		for {
			select {
			case rec, ok := <-cfg.InputChan: // for each input file record...
				if !ok { // if the input channel was closed...
					cfg.InputChan = nil // disable this case.
				} else { // else we have a file to read...
					fileName := rec.GetDataAsStringPreserveTimeZone(cfg.Log, cfg.InputChanField4FilePath)
					cfg.Log.Debug(cfg.Name, " reading file '", fileName, "'")
					data, err := fnFetch(fileName)
					if err != nil {
						cfg.Log.Panic(cfg.Name, " unable to read file '", fileName, "': ", err)
					}
					if cfg.JsonFormat == JsonFormatObject { // if the whole file is one JSON object...
						if ok := fnDecodeAndSend(rec, fileName, data); !ok {
							return
						}
					} else { // else decode the file line by line...
						scanner := bufio.NewScanner(bytes.NewReader(data))
						scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // allow long event lines.
						for scanner.Scan() {
							line := bytes.TrimSpace(scanner.Bytes())
							if len(line) == 0 { // if the line is blank...
								continue
							}
							if ok := fnDecodeAndSend(rec, fileName, line); !ok {
								return
							}
						}
						if err := scanner.Err(); err != nil {
							cfg.Log.Panic(cfg.Name, " unable to scan file '", fileName, "': ", err)
						}
					}
				}
			case controlAction := <-controlChan: // if we were asked to shutdown...
				controlAction.ResponseChan <- nil // respond that we're done with a nil error.
				cfg.Log.Info(cfg.Name, " shutdown")
				return
			}
			if cfg.InputChan == nil { // if all input files were consumed...
				break
			}
		}
		close(outputChan) // we're done so close the channel we created.
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return
}
