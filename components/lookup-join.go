package components

import (
	"sync/atomic"

	om "github.com/cevaris/ordered_map"
	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/helper"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
)

type LookupJoinConfig struct {
	Log            logger.Logger
	Name           string
	InputChanBuild chan stream.Record // the lookup side; drained fully before probing starts.
	InputChanProbe chan stream.Record // the streaming side.
	JoinKeys       *om.OrderedMap     // probe field name -> build field name pairs. Values are compared as strings, case-sensitively.
	OutputFields   []string           // build-side fields copied onto each matched probe record.
	StepWatcher    *stats.StepWatcher
	WaitCounter    ComponentWaiter
	PanicHandlerFn PanicHandlerFunc
}

// NewLookupJoin performs an inner hash join of two record streams.
// The build channel is read to completion first and its records indexed by the join key; the
// probe channel is then streamed through, and each probe record that finds a build match is
// emitted with the configured build fields merged in. Where several build records share a key
// the first wins, matching the dedup rule used elsewhere.
// Probe records with no match are dropped and counted on the step watcher under
// constants.StatsCounterUnmatchedRows, so an expectedly thin join can still be verified
// after the run.
// Unlike mergeDiff the inputs need no pre-sorting; the cost is holding the build side in memory.
func NewLookupJoin(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*LookupJoinConfig)
	if cfg.InputChanBuild == nil || cfg.InputChanProbe == nil {
		cfg.Log.Panic(cfg.Name, " error - missing chan input in call to NewLookupJoin.")
	}
	if cfg.JoinKeys == nil || cfg.JoinKeys.Len() == 0 {
		cfg.Log.Panic(cfg.Name, " error - missing join keys.")
	}
	if len(cfg.OutputFields) == 0 {
		cfg.Log.Panic(cfg.Name, " error - missing build-side output fields.")
	}
	// Split the ordered join key map into aligned probe/build field slices.
	probeKeys := make([]string, 0, cfg.JoinKeys.Len())
	buildKeys := make([]string, 0, cfg.JoinKeys.Len())
	iter := cfg.JoinKeys.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		probeKeys = append(probeKeys, helper.GetStringFromInterfaceUseUtcTime(cfg.Log, kv.Key))
		buildKeys = append(buildKeys, helper.GetStringFromInterfaceUseUtcTime(cfg.Log, kv.Value))
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
		if cfg.StepWatcher != nil {
			cfg.StepWatcher.StartWatching(&rowCount, &outputChan)
			defer cfg.StepWatcher.StopWatching()
		}
		// Phase 1: drain the build channel into the lookup map.
		lookup := make(map[string]stream.Record)
		buildChan := cfg.InputChanBuild
		for buildChan != nil {
			select {
			case rec, ok := <-buildChan: // for each build-side record...
				if !ok { // if the build channel was closed...
					buildChan = nil // build phase complete.
				} else {
					key := rec.GetDedupKey(cfg.Log, buildKeys)
					if _, found := lookup[key]; found { // if the key is already indexed, first wins...
						cfg.Log.Debug(cfg.Name, " ignoring duplicate build record for key: ", key)
					} else {
						lookup[key] = rec
					}
				}
			case controlAction := <-controlChan: // if we were asked to shutdown...
				controlAction.ResponseChan <- nil // respond that we're done with a nil error.
				cfg.Log.Info(cfg.Name, " shutdown")
				return
			}
		}
		cfg.Log.Info(cfg.Name, " indexed ", len(lookup), " build records; probing...")
		// Phase 2: stream the probe channel against the lookup map.
		for {
			select {
			case rec, ok := <-cfg.InputChanProbe: // for each probe record...
				if !ok { // if the probe channel was closed...
					cfg.InputChanProbe = nil // disable this case.
				} else {
					key := rec.GetDedupKey(cfg.Log, probeKeys)
					buildRec, found := lookup[key]
					if !found { // if the probe record has no build match...
						cfg.Log.Debug(cfg.Name, " no match for probe record with key: ", key)
						if cfg.StepWatcher != nil {
							cfg.StepWatcher.IncrCounter(c.StatsCounterUnmatchedRows)
						}
						continue
					}
					for _, f := range cfg.OutputFields { // copy the requested build fields onto the probe record...
						v, ok := buildRec.GetDataOk(f)
						if !ok {
							cfg.Log.Panic(cfg.Name, " build records are missing output field '", f, "' (bad pipe definition?)")
						}
						rec.SetData(f, v)
					}
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
			if cfg.InputChanProbe == nil { // if all probe rows were consumed...
				break
			}
		}
		close(outputChan) // we're done so close the channel we created.
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return
}
