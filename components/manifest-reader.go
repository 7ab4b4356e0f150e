package components

import (
	"bytes"
	"encoding/csv"
	"io/ioutil"
	"strings"
	"sync/atomic"

	"github.com/relloyd/songlake/aws/s3"
	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
)

type ManifestReaderConfig struct {
	Log                          logger.Logger
	Name                         string
	InputChan                    chan stream.Record // the input channel of rows naming manifest files to read.
	InputChanField4ManifestName  string             // field holding the manifest object key (S3) or file path (localfs).
	FileSystemType               string             // constants.ConnectionTypeS3 or constants.ConnectionTypeLocalFs.
	BucketName                   string             // bucket containing manifest files; unused for localfs.
	BucketPrefix                 string
	Region                       string
	OutputChanField4DataFileName string // outputChan field to produce file names onto
	StepWatcher                  *stats.StepWatcher
	WaitCounter                  ComponentWaiter
	PanicHandlerFn               PanicHandlerFunc
}

// NewManifestReader opens each manifest file named on the input channel and emits one record
// per manifest entry, carrying the listed data file name. Each output record inherits the
// fields of the manifest record that produced it; we receive 1 and produce N rows.
func NewManifestReader(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*ManifestReaderConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing chan input in call to NewManifestReader.")
	}
	if cfg.InputChanField4ManifestName == "" {
		cfg.Log.Panic(cfg.Name, " error - missing input chan field name for the manifest file.")
	}
	if cfg.OutputChanField4DataFileName == "" {
		cfg.Log.Panic(cfg.Name, " error - missing output chan field name for data file names.")
	}
	var fnFetch func(name string) ([]byte, error)
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
		fnFetch = s.Get
	case c.ConnectionTypeLocalFs:
		fnFetch = ioutil.ReadFile
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
		if cfg.StepWatcher != nil { // if we have been given a stepWatcher struct that can watch our rowCount...
			cfg.StepWatcher.StartWatching(&rowCount, &outputChan)
			defer cfg.StepWatcher.StopWatching()
		}
		firstTime := true
		for {
			select {
			case rec, ok := <-cfg.InputChan: // for each input manifest file record...
				if !ok { // if the input channel was closed...
					cfg.InputChan = nil // disable this case.
				} else { // else we have rows to process...
					cfg.Log.Debug(cfg.Name, " input record: ", rec)
					atomic.AddInt64(&rowCount, 1) // increment the row count bearing in mind someone else is reporting on its values.
					manifestName := rec.GetDataAsStringPreserveTimeZone(cfg.Log, cfg.InputChanField4ManifestName)
					cfg.Log.Info(cfg.Name, " processing manifest ", manifestName)
					b, err := fnFetch(manifestName) // get the manifest contents.
					if err != nil {
						cfg.Log.Panic(err)
					}
					records, err := csv.NewReader(bytes.NewBuffer(b)).ReadAll() // convert manifest contents to CSV.
					if err != nil {
						cfg.Log.Panic(cfg.Name, " error - bad manifest file ", manifestName, ": ", err)
					}
					for _, row := range records { // for each row in the manifest CSV...
						if firstTime { // if we need to ignore the header row...
							firstTime = false
							cfg.Log.Debug(cfg.Name, " read manifest header: ", row[0])
						} else { // else we should emit a file name...
							cfg.Log.Debug(cfg.Name, " read manifest entry: ", row[0])
							outRec := stream.NewRecord()                             // We need a new map on the output channel, otherwise we would be overwriting the same map each loop iteration.
							rec.CopyTo(outRec)                                       // copy all inputChan fields to new output record; we are receiving 1 and producing N rows.
							outRec.SetData(cfg.OutputChanField4DataFileName, row[0]) // add the data file name to the input record.
							// Send record to the output channel.
							if outRecSentOK := safeSend(outRec, outputChan, controlChan, sendNilControlResponse); !outRecSentOK {
								cfg.Log.Info(cfg.Name, " shutdown")
								return
							}
						}
					}
					firstTime = true // reset flag to get header row for next manifest / inputChan record.
				}
			case controlAction := <-controlChan: // if we have been asked to shutdown...
				controlAction.ResponseChan <- nil // respond that we're done with a nil error.
				cfg.Log.Info(cfg.Name, " shutdown")
				return
			}
			if cfg.InputChan == nil { // if the input channel was closed (all rows processed)...
				break
			}
		}
		close(outputChan) // we're done so close the channel we created.
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return
}
