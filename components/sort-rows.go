package components

import (
	"sort"
	"sync/atomic"

	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
)

type SortRowsConfig struct {
	Log            logger.Logger
	Name           string
	InputChan      chan stream.Record // the input channel of rows to sort.
	KeyFieldNames  []string           // fields to order by; compared as strings, field by field, in slice order.
	StepWatcher    *stats.StepWatcher
	WaitCounter    ComponentWaiter
	PanicHandlerFn PanicHandlerFunc
}

// NewSortRows drains its input channel, sorts all records by the key fields and emits them
// in ascending order. The comparison matches the per-field string ordering used by the
// merge-diff join, so a sorted stream feeds NewMergeDiff directly.
// The whole input is held in memory until the input channel closes.
func NewSortRows(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*SortRowsConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing chan input in call to NewSortRows.")
	}
	if len(cfg.KeyFieldNames) == 0 {
		cfg.Log.Panic(cfg.Name, " error - missing key field names in call to NewSortRows.")
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
		// Drain the input channel.
		rows := make([]stream.Record, 0, c.ChanSize)
		for {
			select {
			case rec, ok := <-cfg.InputChan: // for each row of input...
				if !ok { // if the input channel was closed...
					cfg.InputChan = nil // disable this case.
				} else {
					rows = append(rows, rec)
				}
			case controlAction := <-controlChan: // if we have been asked to shutdown...
				controlAction.ResponseChan <- nil // respond that we're done with a nil error.
				cfg.Log.Info(cfg.Name, " shutdown")
				return
			}
			if cfg.InputChan == nil { // if all input rows were consumed...
				break
			}
		}
		// Sort by the key fields using the same per-field string comparison as the merge-diff join.
		cfg.Log.Debug(cfg.Name, " sorting ", len(rows), " rows by fields ", cfg.KeyFieldNames)
		sort.SliceStable(rows, func(i, j int) bool {
			for _, k := range cfg.KeyFieldNames { // for each key field in order...
				vi := rows[i].GetDataAsStringUseUtcTime(cfg.Log, k)
				vj := rows[j].GetDataAsStringUseUtcTime(cfg.Log, k)
				if vi != vj {
					return vi < vj
				}
			}
			return false
		})
		// Emit the sorted rows.
		for _, rec := range rows {
			if recSentOK := safeSend(rec, outputChan, controlChan, sendNilControlResponse); !recSentOK {
				cfg.Log.Info(cfg.Name, " shutdown")
				return
			}
			atomic.AddInt64(&rowCount, 1) // increment the row count bearing in mind someone else is reporting on its values.
		}
		close(outputChan) // we're done so close the channel we created.
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return
}
