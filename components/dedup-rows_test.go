package components

import (
	"testing"
	"time"

	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
)

func TestDedupRows(t *testing.T) {
	log := logger.NewLogger("songlake", "info", true)

	fnNewArtistRecord := func(artistId string, name string, location string) stream.Record {
		rec := stream.NewRecord()
		rec.SetData("artist_id", artistId)
		rec.SetData("name", name)
		rec.SetData("location", location)
		return rec
	}

	// Test 1: duplicate tuples collapse to one; the first occurrence wins.
	log.Info("Test 1 - duplicate tuples collapse to one...")
	inputChan := make(chan stream.Record, c.ChanSize)
	inputChan <- fnNewArtistRecord("AR7G5I41187FB4CE6C", "AC/DC", "Sydney, Australia")
	inputChan <- fnNewArtistRecord("ARJIE2Y1187B994AB7", "Line Renaud", "")
	inputChan <- fnNewArtistRecord("AR7G5I41187FB4CE6C", "AC/DC", "Sydney, Australia") // dupe of row 1.
	close(inputChan)
	sw := stats.NewStepWatcher(log, "test 1 dedup-rows")
	cfg := &DedupRowsConfig{
		Log:         log,
		Name:        "Test DedupRows",
		InputChan:   inputChan,
		FieldNames:  nil, // key on the full tuple.
		StepWatcher: sw,
	}
	outputChan, _ := NewDedupRows(cfg)
	results := make([]stream.Record, 0)
	for rec := range outputChan {
		results = append(results, rec)
	}
	if len(results) != 2 {
		t.Fatal("expected 2 records after dedup; got ", len(results))
	}
	if got := results[0].GetDataAsStringPreserveTimeZone(log, "name"); got != "AC/DC" {
		t.Fatal("expected the first occurrence to win; got ", got)
	}
	if got := sw.CounterValue(c.StatsCounterDuplicateRows); got != 1 {
		t.Fatal("expected 1 duplicate row counted; got ", got)
	}

	// Test 2: key fields restrict the comparison, so rows differing only off-key are duplicates.
	log.Info("Test 2 - dedup on a subset of key fields...")
	inputChan2 := make(chan stream.Record, c.ChanSize)
	inputChan2 <- fnNewArtistRecord("AR7G5I41187FB4CE6C", "AC/DC", "Sydney, Australia")
	inputChan2 <- fnNewArtistRecord("AR7G5I41187FB4CE6C", "AC/DC", "") // same key, different location.
	close(inputChan2)
	cfg.InputChan = inputChan2
	cfg.FieldNames = []string{"artist_id"}
	cfg.StepWatcher = nil
	outputChan, _ = NewDedupRows(cfg)
	results = results[:0]
	for rec := range outputChan {
		results = append(results, rec)
	}
	if len(results) != 1 {
		t.Fatal("expected 1 record after key-field dedup; got ", len(results))
	}
	if got := results[0].GetDataAsStringPreserveTimeZone(log, "location"); got != "Sydney, Australia" { // first occurrence wins.
		t.Fatal("expected the first occurrence's location; got '", got, "'")
	}

	// Test 3: confirm DedupRows handles shutdown requests.
	log.Info("Test 3 - confirm DedupRows handles shutdown requests...")
	cfg.InputChan = make(chan stream.Record, c.ChanSize) // dummy input channel that we won't close.
	_, controlChan := NewDedupRows(cfg)
	responseChan := make(chan error, 1)
	controlChan <- ControlAction{Action: Shutdown, ResponseChan: responseChan}
	select { // confirm shutdown response...
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for DedupRows to shutdown.")
	case <-responseChan: // if DedupRows confirmed shutdown...
		// continue
	}
	// End OK.
}
