package components

import (
	"sync/atomic"

	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
)

type DedupRowsConfig struct {
	Log            logger.Logger
	Name           string
	InputChan      chan stream.Record
	FieldNames     []string // fields forming the dedup key; leave empty to use every field in the record.
	StepWatcher    *stats.StepWatcher
	WaitCounter    ComponentWaiter
	PanicHandlerFn PanicHandlerFunc
}

// NewDedupRows drops records whose key fields have been seen before on the stream; the first
// occurrence wins and flows through unchanged. The key is the full projected tuple by default,
// so identical dimension rows read from many source files collapse to one.
// Dropped duplicates are counted on the step watcher under constants.StatsCounterDuplicateRows.
// The seen set is held in memory for the life of the step.
func NewDedupRows(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*DedupRowsConfig)
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing chan input in call to NewDedupRows.")
	}
	outputChan = make(chan stream.Record, int(c.ChanSize))
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
		seen := make(map[string]struct{})
		for {
			select {
			case rec, ok := <-cfg.InputChan: // for each row of input...
				if !ok { // if the input channel was closed...
					cfg.InputChan = nil // disable this case.
				} else { // else we have a record to check...
					keys := cfg.FieldNames
					if len(keys) == 0 { // if no key fields were configured...
						keys = rec.GetSortedDataMapKeys() // use the full tuple.
					}
					key := rec.GetDedupKey(cfg.Log, keys)
					if _, found := seen[key]; found { // if we have seen this tuple before...
						cfg.Log.Debug(cfg.Name, " dropping duplicate record: ", rec)
						if cfg.StepWatcher != nil {
							cfg.StepWatcher.IncrCounter(c.StatsCounterDuplicateRows)
						}
						continue
					}
					seen[key] = struct{}{}
					if recSentOK := safeSend(rec, outputChan, controlChan, sendNilControlResponse); !recSentOK {
						cfg.Log.Info(cfg.Name, " shutdown")
						return
					}
					atomic.AddInt64(&rowCount, 1)
				}
			case controlAction := <-controlChan: // if we were asked to shutdown...
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
