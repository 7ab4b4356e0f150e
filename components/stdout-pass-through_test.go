package components

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stream"
)

// TODO: implement tests for all components' panic handlers, wait counters and step watchers!

func TestNewStdOutPassThrough(t *testing.T) {
	log := logger.NewLogger("songlake", "info", true)

	fnCreateData := func() chan stream.Record {
		// Create input channel.
		chanData := make(chan stream.Record, 10)
		// Create record for input.
		row := stream.NewRecord()
		row.SetData("artist", "Harmonia")
		row.SetData("session_id", 583)
		row.SetData("song", "Sehr kosmisch")
		// Send the record.
		chanData <- row
		return chanData
	}

	fnAssertOutput := func(rec stream.Record, key string, expected string) {
		got := rec.GetDataAsStringPreserveTimeZone(log, key)
		if got != expected {
			t.Fatalf("expected = %v; got = %v", key, got)
		}
	}

	// Reusable component config.
	cfg := &StdOutPassThroughConfig{
		Log:            log,
		Name:           "",
		InputChan:      nil,
		Writer:         os.Stdout,
		StepWatcher:    nil,
		WaitCounter:    nil,
		PanicHandlerFn: nil,
	}

	log.Info("Test 1 - pass through propagates records")
	cfg.InputChan = fnCreateData()
	cfg.Name = "test 1 stdout-pass-through"
	// Start the component.
	outputChan, _ := NewStdOutPassThrough(cfg)
	close(cfg.InputChan)
	// Read and save all data from the component.
	results := make([]stream.Record, 0)
	for rec := range outputChan {
		results = append(results, rec)
	}
	fnAssertOutput(results[0], "artist", "Harmonia")
	fnAssertOutput(results[0], "song", "Sehr kosmisch")
	fnAssertOutput(results[0], "session_id", "583")

	log.Info("Test 2 - pass through writes to the given Writer")
	cfg.InputChan = fnCreateData()
	cfg.Name = "test 2 stdout-pass-through"
	buf := bytes.Buffer{}
	cfg.Writer = &buf
	// Start the component.
	outputChan, _ = NewStdOutPassThrough(cfg)
	close(cfg.InputChan)
	// Read and save all data from the component.
	results = make([]stream.Record, 0)
	for rec := range outputChan {
		results = append(results, rec)
	}
	// Confirm the record string is written to the mock buffer.
	expected := "{\"artist\": \"Harmonia\", \"session_id\": \"583\", \"song\": \"Sehr kosmisch\"}\n" // include trailing new line
	got := buf.String()
	if got != expected {
		t.Fatalf("expected = %v; got = %v", expected, got)
	}

	log.Info("Test 3 - shutdown requests are honoured")
	cfg.InputChan = fnCreateData()
	cfg.Name = "test 3 stdout-pass-through"
	// Start the component.
	_, controlChan := NewStdOutPassThrough(cfg)
	// Send the shutdown request.
	responseChan := make(chan error, 1)
	controlChan <- ControlAction{Action: Shutdown, ResponseChan: responseChan}
	// Assert that NewStdOutPassThrough shuts down in good time.
	select {
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for NewStdOutPassThrough to shutdown")
	case <-responseChan:
		// continue
	}

	log.Info("Test pass through will abort after N rows")
	cfg.InputChan = fnCreateData() // send row1
	row2 := stream.NewRecord()
	row2.SetData("artist", "Harmonia")
	row2.SetData("session_id", 583)
	row2.SetData("song", "Sehr kosmisch")
	cfg.InputChan <- row2 // send row2
	cfg.Name = "test 4 stdout-pass-through"
	cfg.AbortAfterCount = 1
	buf = bytes.Buffer{}
	cfg.Writer = &buf
	// Setup a panic handler.
	recovered := make(chan bool, 1)
	cfg.PanicHandlerFn = func() {
		if r := recover(); r != nil {
			log.Info("test 4 recovery")
			recovered <- true
		}
	}
	// Start the component.
	outputChan, _ = NewStdOutPassThrough(cfg) // should abort after 1 rows.
	close(cfg.InputChan)
	select {
	case <-time.After(time.Second * 3):
		t.Fatal("Test pass through will abort after N rows failed, timeout waiting for panic")
	case <-recovered:
		// OK
	}
	// End OK.
}
