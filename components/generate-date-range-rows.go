package components

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	c "github.com/relloyd/songlake/constants"
	log "github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
)

type DateRangeGeneratorConfig struct {
	Log                         log.Logger
	Name                        string
	InputChan                   chan stream.Record // input channel containing the from date, per input row
	InputChanFieldName4FromDate string             // name of the field on InputChan which contains the from date, expected to be of type time.Time or an RFC3339 string
	InputChanFieldName4ToDate   string             // optional field on InputChan which contains the to date; used when ToDateRFC3339orNow is empty
	ToDateRFC3339orNow          string             // literal "now" or an RFC3339 date time; takes precedence over InputChanFieldName4ToDate
	UseUTC                      bool               // convert the to date to UTC before generating ranges
	IntervalSizeSeconds         int                // number of seconds each output range spans
	OutputChanFieldName4LowDate string
	OutputChanFieldName4HiDate  string
	PassInputFieldsToOutput     bool
	StepWatcher                 *stats.StepWatcher
	WaitCounter                 ComponentWaiter
	PanicHandlerFn              PanicHandlerFunc
}

// NewDateRangeGenerator will:
// Read the input chan to get the FromDate, per input row.
// Resolve the ToDate from either ToDateRFC3339orNow ("now" or a literal) or the input field named by InputChanFieldName4ToDate.
// Output N rows with low and high values of type time.Time, each IntervalSizeSeconds apart,
// plus a final short range when the interval doesn't divide the span exactly.
func NewDateRangeGenerator(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*DateRangeGeneratorConfig)
	outputChan = make(chan stream.Record, c.ChanSize)
	controlChan = make(chan ControlAction, 1)
	if cfg.IntervalSizeSeconds == 0 {
		cfg.Log.Panic(cfg.Name, " aborting due to interval size 0 which causes infinite loop")
	}
	if cfg.ToDateRFC3339orNow == "" && cfg.InputChanFieldName4ToDate == "" {
		cfg.Log.Panic(cfg.Name, " received bad config - please supply either a to-date (RFC3339 or \"now\") or an input field name for the to date")
	}
	interval := time.Duration(cfg.IntervalSizeSeconds) * time.Second
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
		// Fetch a time.Time from the named input field, else parse its string form.
		getDateFromRecord := func(rec stream.Record, fieldName string) time.Time {
			d, err := getTimeFromInterface(rec.GetData(fieldName))
			if err != nil { // if the field is not a time.Time...
				var s string
				if cfg.UseUTC {
					s = rec.GetDataAsStringUseUtcTime(cfg.Log, fieldName)
				} else {
					s = rec.GetDataAsStringPreserveTimeZone(cfg.Log, fieldName)
				}
				d, err = time.Parse(time.RFC3339, s)
				if err != nil {
					cfg.Log.Panic(cfg.Name, " error parsing input field ", fieldName, " as a date: ", err)
				}
			}
			return d
		}
		sendRow := func(inputRec stream.Record, fromDate *time.Time, toDate *time.Time) (rowSentOK bool) {
			// Emit low date and hi date record.
			rec := stream.NewRecord()
			if cfg.PassInputFieldsToOutput {
				inputRec.CopyTo(rec) // ensure the output record contains the input fields.
			}
			rec.SetData(cfg.OutputChanFieldName4LowDate, *fromDate)
			rec.SetData(cfg.OutputChanFieldName4HiDate, *toDate)
			rowSentOK = safeSend(rec, outputChan, controlChan, sendNilControlResponse) // forward the record
			if rowSentOK {
				cfg.Log.Debug(cfg.Name, " generated: lowDate=", *fromDate, "; highDate=", *toDate)
			}
			return
		}
		for { // for each input record...
			select {
			case controlAction := <-controlChan: // if we have been asked to shutdown...
				controlAction.ResponseChan <- nil // respond that we're done with a nil error.
				cfg.Log.Info(cfg.Name, " shutdown")
				return
			case rec, ok := <-cfg.InputChan:
				if !ok { // if the input chan was closed...
					cfg.InputChan = nil // disable this case.
				} else {
					fromDate := getDateFromRecord(rec, cfg.InputChanFieldName4FromDate)
					// Resolve the to date: "now", a literal RFC3339 value, or a field on the input record.
					var toDate time.Time
					if cfg.ToDateRFC3339orNow == "now" {
						toDate = time.Now().Truncate(time.Second)
					} else if cfg.ToDateRFC3339orNow != "" {
						var err error
						toDate, err = time.Parse(time.RFC3339, cfg.ToDateRFC3339orNow)
						if err != nil {
							cfg.Log.Panic(cfg.Name, " error parsing to-date: ", err)
						}
					} else {
						toDate = getDateFromRecord(rec, cfg.InputChanFieldName4ToDate)
					}
					if cfg.UseUTC {
						toDate = toDate.UTC()
					}
					cfg.Log.Info(cfg.Name, " splitting date range ", fromDate, " to ", toDate, " using interval ", cfg.IntervalSizeSeconds, " seconds")
					// Add the increment and emit rows until it is greater than the ToDate.
					for { // while we are outputting less than ToDate...
						to := fromDate.Add(interval)
						if to.After(toDate) { // if this increment overruns the high date...
							break // don't output a row!
						}
						if rowSentOK := sendRow(rec, &fromDate, &to); !rowSentOK {
							return
						}
						atomic.AddInt64(&rowCount, 1) // increment the row count bearing in mind someone else is reporting on its values.
						fromDate = to                 // save FromDate with increment added.
					}
					if fromDate.Before(toDate) || atomic.AddInt64(&rowCount, 0) == 0 {
						// if we have a final portion of the range to output a row for;
						// or we have not output a row (i.e. when min value = max value)...
						if rowSentOK := sendRow(rec, &fromDate, &toDate); !rowSentOK { // emit the final gap.
							return
						}
						atomic.AddInt64(&rowCount, 1) // add a row count.
					}
				}
			}
			if cfg.InputChan == nil { // if we processed all data...
				break // end gracefully.
			}
		}
		close(outputChan)
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return
}

func getTimeFromInterface(input interface{}) (t time.Time, err error) {
	switch input.(type) {
	case time.Time:
		t = input.(time.Time)
	default:
		err = fmt.Errorf("unexpected data type during conversion - expected time.Time, got: %v; value=%v", reflect.TypeOf(input), input)
	}
	return
}
