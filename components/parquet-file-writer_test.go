package components

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	c "github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stats"
	"github.com/relloyd/songlake/stream"
)

func TestParquetFileWriter(t *testing.T) {
	log := logger.NewLogger("songlake", "info", true)
	filePathField := "#filePath"
	relPathField := "#fileNameWithoutPrefix"

	fnNewSongRecord := func(songId string, title string, artistId string, year int, duration float64) stream.Record {
		rec := stream.NewRecord()
		rec.SetData("song_id", songId)
		rec.SetData("title", title)
		rec.SetData("artist_id", artistId)
		rec.SetData("year", year)
		rec.SetData("duration", duration)
		return rec
	}

	// Test 1: rows are written into Hive style partition directories and file names
	// are only emitted after their file is closed.
	log.Info("Test 1 - rows land in partition directories...")
	stagingDir, err := ioutil.TempDir("", "parquet-writer-test-")
	if err != nil {
		log.Panic("unable to create tmp dir")
	}
	defer func() {
		_ = os.RemoveAll(stagingDir)
	}()
	inputChan := make(chan stream.Record, c.ChanSize)
	inputChan <- fnNewSongRecord("SOUPIRU12A6D4FA1E1", "Der Kleine Dompfaff", "ARJIE2Y1187B994AB7", 0, 152.92036)
	inputChan <- fnNewSongRecord("SONHOTT12A8C13493C", "Something Girls", "AR7G5I41187FB4CE6C", 1982, 233.40363)
	badRec := stream.NewRecord() // this one cannot be coerced to the table types.
	badRec.SetData("song_id", "SOBADBAD12A0000000")
	badRec.SetData("title", "Bad Duration")
	badRec.SetData("artist_id", "ARBADBAD1187000000")
	badRec.SetData("year", 2001)
	badRec.SetData("duration", "not-a-number")
	inputChan <- badRec
	close(inputChan)
	sw := stats.NewStepWatcher(log, "test 1 parquet-file-writer")
	cfg := &ParquetFileWriterConfig{
		Log:                              log,
		Name:                             "Test ParquetFileWriter",
		InputChan:                        inputChan,
		TableName:                        "songs",
		StagingDirectory:                 stagingDir,
		FileNameToken:                    "testtoken",
		OutputChanField4FilePath:         filePathField,
		OutputChanField4FileNameNoPrefix: relPathField,
		StepWatcher:                      sw,
	}
	outputChan, _ := NewParquetFileWriter(cfg)
	results := make([]stream.Record, 0)
	for rec := range outputChan {
		results = append(results, rec)
	}
	if len(results) != 2 {
		t.Fatal("expected 2 part files; got ", len(results))
	}
	expectedRelPaths := []string{ // one file per partition, in creation order.
		"songs_table.parquet/year=0/artist_id=ARJIE2Y1187B994AB7/part-testtoken-00001.parquet",
		"songs_table.parquet/year=1982/artist_id=AR7G5I41187FB4CE6C/part-testtoken-00002.parquet",
	}
	for idx := range expectedRelPaths {
		if got := results[idx].GetDataAsStringPreserveTimeZone(log, relPathField); got != expectedRelPaths[idx] {
			t.Fatal("unexpected relative path at index ", idx, ": got '", got, "' expected '", expectedRelPaths[idx], "'")
		}
		fullPath := results[idx].GetDataAsStringPreserveTimeZone(log, filePathField)
		if _, err := os.Stat(fullPath); err != nil {
			t.Fatal("expected part file to exist at ", fullPath, ": ", err)
		}
	}
	if got := sw.CounterValue(c.StatsCounterSkippedRows); got != 1 { // the bad duration record.
		t.Fatal("expected 1 skipped row; got ", got)
	}

	// Test 2: files rotate after MaxFileRows and the rotated file is emitted mid-stream.
	log.Info("Test 2 - files rotate after MaxFileRows...")
	inputChan2 := make(chan stream.Record, c.ChanSize)
	rec1 := stream.NewRecord()
	rec1.SetData("artist_id", "ARJIE2Y1187B994AB7")
	rec1.SetData("name", "Line Renaud")
	rec1.SetData("location", "")
	rec2 := stream.NewRecord()
	rec2.SetData("artist_id", "AR7G5I41187FB4CE6C")
	rec2.SetData("name", "AC/DC")
	rec2.SetData("location", "Sydney, Australia")
	inputChan2 <- rec1
	inputChan2 <- rec2
	close(inputChan2)
	cfg.InputChan = inputChan2
	cfg.TableName = "artists"
	cfg.MaxFileRows = 1
	cfg.StepWatcher = nil
	outputChan, _ = NewParquetFileWriter(cfg)
	results = results[:0]
	for rec := range outputChan {
		results = append(results, rec)
	}
	if len(results) != 2 {
		t.Fatal("expected 2 part files after rotation; got ", len(results))
	}
	expectedRelPaths = []string{
		"artists_table.parquet/part-testtoken-00001.parquet",
		"artists_table.parquet/part-testtoken-00002.parquet",
	}
	for idx := range expectedRelPaths {
		if got := results[idx].GetDataAsStringPreserveTimeZone(log, relPathField); got != expectedRelPaths[idx] {
			t.Fatal("unexpected relative path at index ", idx, ": got '", got, "' expected '", expectedRelPaths[idx], "'")
		}
	}

	// Test 3: a record missing a required column is skipped, not written.
	log.Info("Test 3 - a record missing a required column is skipped...")
	inputChan3 := make(chan stream.Record, c.ChanSize)
	recNoId := stream.NewRecord() // songplays requires songplay_id.
	recNoId.SetData("user_id", "26")
	recNoId.SetData("level", "free")
	inputChan3 <- recNoId
	close(inputChan3)
	sw3 := stats.NewStepWatcher(log, "test 3 parquet-file-writer")
	cfg.InputChan = inputChan3
	cfg.TableName = "songplays"
	cfg.MaxFileRows = 0
	cfg.StepWatcher = sw3
	outputChan, _ = NewParquetFileWriter(cfg)
	numRows := 0
	for range outputChan {
		numRows++
	}
	if numRows != 0 {
		t.Fatal("expected no part files for a fully skipped input; got ", numRows)
	}
	if got := sw3.CounterValue(c.StatsCounterSkippedRows); got != 1 {
		t.Fatal("expected 1 skipped row; got ", got)
	}

	// Test 4: confirm ParquetFileWriter handles shutdown requests.
	log.Info("Test 4 - confirm ParquetFileWriter handles shutdown requests...")
	cfg.InputChan = make(chan stream.Record, c.ChanSize) // dummy input channel that we won't close.
	cfg.StepWatcher = nil
	_, controlChan := NewParquetFileWriter(cfg)
	responseChan := make(chan error, 1)
	controlChan <- ControlAction{Action: Shutdown, ResponseChan: responseChan}
	select { // confirm shutdown response...
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for ParquetFileWriter to shutdown.")
	case <-responseChan: // if ParquetFileWriter confirmed shutdown...
		// continue
	}
	// End OK.
}
