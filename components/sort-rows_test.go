package components

import (
	"testing"
	"time"

	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stream"
)

func TestSortRows(t *testing.T) {
	log := logger.NewLogger("songlake", "info", true)

	fnNewSongRecord := func(songId string, artistId string, title string) stream.Record {
		rec := stream.NewRecord()
		rec.SetData("song_id", songId)
		rec.SetData("artist_id", artistId)
		rec.SetData("title", title)
		return rec
	}

	// Test 1: rows come out ordered by the key fields.
	log.Info("Test 1 - rows come out ordered by the key fields...")
	inputChan := make(chan stream.Record, c.ChanSize)
	inputChan <- fnNewSongRecord("SOMZWCG12A8C13C480", "ARD7TVE1187B99BFB1", "I Didn't Mean To")
	inputChan <- fnNewSongRecord("SOAAFYH12A8C13717A", "ARLRWBW1242077EB29", "High Tide")
	inputChan <- fnNewSongRecord("SOUPIRU12A6D4FA1E1", "ARJIE2Y1187B994AB7", "Der Kleine Dompfaff")
	close(inputChan)
	cfg := &SortRowsConfig{
		Log:           log,
		Name:          "Test SortRows",
		InputChan:     inputChan,
		KeyFieldNames: []string{"song_id"},
		StepWatcher:   nil,
	}
	outputChan, _ := NewSortRows(cfg)
	results := make([]stream.Record, 0)
	for rec := range outputChan {
		results = append(results, rec)
	}
	if len(results) != 3 {
		t.Fatal("expected 3 records; got ", len(results))
	}
	expected := []string{"SOAAFYH12A8C13717A", "SOMZWCG12A8C13C480", "SOUPIRU12A6D4FA1E1"}
	for idx := range expected {
		if got := results[idx].GetDataAsStringPreserveTimeZone(log, "song_id"); got != expected[idx] {
			t.Fatal("unexpected sort order at index ", idx, ": got ", got, "; expected ", expected[idx])
		}
	}

	// Test 2: later key fields break ties in the earlier ones.
	log.Info("Test 2 - later key fields break ties...")
	inputChan2 := make(chan stream.Record, c.ChanSize)
	inputChan2 <- fnNewSongRecord("SOAAFYH12A8C13717A", "ARZZZZZ0000000000B", "High Tide")
	inputChan2 <- fnNewSongRecord("SOAAFYH12A8C13717A", "ARAAAAA0000000000A", "High Tide")
	close(inputChan2)
	cfg.InputChan = inputChan2
	cfg.KeyFieldNames = []string{"song_id", "artist_id"}
	outputChan, _ = NewSortRows(cfg)
	results = results[:0]
	for rec := range outputChan {
		results = append(results, rec)
	}
	if len(results) != 2 {
		t.Fatal("expected 2 records; got ", len(results))
	}
	if got := results[0].GetDataAsStringPreserveTimeZone(log, "artist_id"); got != "ARAAAAA0000000000A" {
		t.Fatal("expected the tie to be broken by artist_id; got ", got)
	}

	// Test 3: confirm SortRows handles shutdown requests.
	log.Info("Test 3 - confirm SortRows handles shutdown requests...")
	cfg.InputChan = make(chan stream.Record, c.ChanSize) // dummy input channel that we won't close.
	_, controlChan := NewSortRows(cfg)
	responseChan := make(chan error, 1)
	controlChan <- ControlAction{Action: Shutdown, ResponseChan: responseChan}
	select { // confirm shutdown response...
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for SortRows to shutdown.")
	case <-responseChan: // if SortRows confirmed shutdown...
		// continue
	}
	// End OK.
}
