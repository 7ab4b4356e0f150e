package stats

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	c "github.com/relloyd/songlake/constants"
	h "github.com/relloyd/songlake/helper"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stream"
)

// Struct to save stats for a given transform node periodically.
// The transform node can call StartWatching() and StopWatching()
type StepWatcher struct {
	log             logger.Logger // debug logging
	stepName        string        // debug output can use the given step name.
	rowCountPtr     *int64        // ptr to rowCount held in a given step for which we are capturing stats.  // TODO: use chan directly instead of ptr to chan.
	chanPtr         *chan stream.Record
	chanLen         int64
	startTime       time.Time
	rowsPerSecDelta int64
	rowsPerSecAvg   int64
	totalRows       int64
	priorRowCount   int64     // allows us to calculate delta rows per sec between ticker timeout.
	priorTime       time.Time // allows us to calculate delta rows per sec between ticker timeout.
	ticker          *time.Ticker
	tickerDone      chan struct{}
	isRunning       h.AtomBool
	muCounters      sync.Mutex       // guards counters.
	counters        map[string]int64 // named data-quality counters e.g. skipped or unmatched rows.
}

type Stats struct {
	StepName           string           `json:"stepName"`
	StatusText         string           `json:"statusText"`
	StatusEmoji        string           `json:"statusEmoji"`
	ElapsedTimeSec     int              `json:"elapsedTimeSec"`
	TotalRowsProcessed int              `json:"totalRowsProcessed"`
	RowsPerSecondAvg   int              `json:"rowsPerSecondAvg"`
	RowsPerSecondDelta int              `json:"rowsPerSecondDelta"`
	OutputBufferLen    int              `json:"outputBufferLen"`
	Counters           map[string]int64 `json:"counters,omitempty"`
}

func NewStepWatcher(log logger.Logger, stepName string) *StepWatcher {
	return &StepWatcher{log: log, stepName: stepName, tickerDone: make(chan struct{}), counters: make(map[string]int64)}
}

func (n *StepWatcher) StartWatching(rowCountPtr *int64, chanPtr *chan stream.Record) {
	// Save pointer to rowCount that is held a given transform step.
	n.rowCountPtr = rowCountPtr
	// Save pointer to channel so we can do len() operations.
	n.chanPtr = chanPtr
	// Save current time for delta calculations.
	n.startTime = time.Now()
	n.priorTime = n.startTime
	// Other defaults.
	n.isRunning.Set(true)
	// Force reset priorRowCount in case a given step is able to repeatedly call this.
	n.totalRows = 0
	// Calculate initial stats now.
	n.CalculateStats()
	// Calculate stats periodically on ticket timeout.
	n.ticker = time.NewTicker(time.Second * c.StatsCaptureFrequencySeconds)
	go func() {
		for {
			select {
			case <-n.ticker.C:
				n.CalculateStats()
			case <-n.tickerDone:
				return
			}
		}
	}()
}

func (n *StepWatcher) StopWatching() {
	n.ticker.Stop()
	n.tickerDone <- struct{}{} // stop the goroutine that calculates stats.
	n.CalculateStats()         // force final stats calculation.
	n.isRunning.Set(false)
	atomic.StoreInt64(&n.chanLen, 0) // set to 0 atomically.
}

// IncrCounter adds 1 to the named counter, creating it on first use.
// Steps use this to record data-quality events like skipped rows
// without growing the row count that drives throughput stats.
func (n *StepWatcher) IncrCounter(name string) {
	n.AddToCounter(name, 1)
}

func (n *StepWatcher) AddToCounter(name string, delta int64) {
	n.muCounters.Lock()
	n.counters[name] += delta
	n.muCounters.Unlock()
}

// CounterValue returns the named counter or 0 if the step never incremented it.
func (n *StepWatcher) CounterValue(name string) int64 {
	n.muCounters.Lock()
	defer n.muCounters.Unlock()
	return n.counters[name]
}

func (n *StepWatcher) CalculateStats() {
	// Calculate time delta since we last captured stats.
	deltaTime := int64(time.Since(n.priorTime).Seconds())
	if deltaTime < 1 { // if we will cause divide by 0 error...
		deltaTime = 1 // force div by 1.
	}
	rowCount := atomic.AddInt64(n.rowCountPtr, 0)
	deltaRowCount := rowCount - n.priorRowCount
	// Save current rows per second.
	atomic.StoreInt64(&n.rowsPerSecDelta, deltaRowCount/deltaTime)
	// Save current channel depth/length.
	atomic.StoreInt64(&n.chanLen, int64(len(*n.chanPtr))) // this may read a chan that was closed and has disappeared.
	// TODO: do we need to store chan length explicitly or can we do this on the fly??? perhaps transStats should do this?
	n.log.Debug("STATS: ", n.stepName, " processing ", n.rowsPerSecDelta, " rows per sec. Output channel length ", atomic.AddInt64(&n.chanLen, 0))
	// Save current values for next ticker timeout.
	atomic.StoreInt64(&n.priorRowCount, rowCount)
	n.priorTime = time.Now()
	// Save total rows processed so far - this may be the final value.
	atomic.AddInt64(&n.totalRows, deltaRowCount) // use the delta row count to calculate the total as transform steps may repeat themselves.
	// Save the avg rows per sec calculated using start time and total rows so far.
	atomic.StoreInt64(&n.rowsPerSecAvg,
		atomic.AddInt64(&n.totalRows, 0)/getNumSecondsSinceTimeOrOne(n.startTime))
}

// RenderStats gets a struct filled with stats at the point of time it is called.
func (n *StepWatcher) RenderStats() Stats {
	isRunning := n.isRunning.Get()
	var statusText, statusEmoji string
	if isRunning {
		statusText = "running"
		statusEmoji = "\U0000231B" // hour glass
	} else {
		statusText = "complete"
		statusEmoji = "\U00002705" // green tick
	}
	// Copy the counters so callers can't race with steps still incrementing.
	n.muCounters.Lock()
	var counters map[string]int64
	if len(n.counters) > 0 {
		counters = make(map[string]int64, len(n.counters))
		for k, v := range n.counters {
			counters[k] = v
		}
	}
	n.muCounters.Unlock()
	return Stats{
		StepName:           n.stepName,
		StatusText:         statusText,
		StatusEmoji:        statusEmoji,
		ElapsedTimeSec:     int(time.Since(n.startTime).Seconds()),
		TotalRowsProcessed: int(atomic.AddInt64(&n.totalRows, 0)),
		RowsPerSecondAvg:   int(atomic.AddInt64(&n.rowsPerSecAvg, 0)),
		RowsPerSecondDelta: int(atomic.AddInt64(&n.rowsPerSecDelta, 0)),
		OutputBufferLen:    int(atomic.AddInt64(&n.chanLen, 0)),
		Counters:           counters,
	}
}

// String will format the stats for general logging.
func (s Stats) String() string {
	retval := fmt.Sprintf(
		"Stats for %v %v %v "+
			"elapsedTimeSec=%v "+
			"totalRowsProcessed=%v "+
			"rowsPerSecondAvg=%v "+
			"rowsPerSecondDelta=%v "+
			"outputBufferLen=%v",
		s.StepName, s.StatusText, s.StatusEmoji,
		s.ElapsedTimeSec,
		s.TotalRowsProcessed,
		s.RowsPerSecondAvg,
		s.RowsPerSecondDelta,
		s.OutputBufferLen,
	)
	if len(s.Counters) > 0 { // if the step recorded data-quality counters...
		keys := make([]string, 0, len(s.Counters))
		for k := range s.Counters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			retval += fmt.Sprintf(" %v=%v", k, s.Counters[k])
		}
	}
	return retval
}

func getNumSecondsSinceTimeOrOne(t time.Time) (seconds int64) {
	seconds = int64(time.Since(t).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return
}
