package components

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/stream"
)

func TestOutputClean(t *testing.T) {
	log := logger.NewLogger("songlake", "info", true)
	tableNameField := "#tableName"
	rowsDeletedField := "#rowsDeleted"

	// Build a fake output location:
	//   songs_table.parquet/<partition dirs>/<2 part files>   - to be removed
	//   manifest-songs-<stamp>_000001.csv                     - to be removed
	//   artists_table.parquet/<1 part file>                   - sibling dataset; must survive
	//   manifest-artists-<stamp>_000001.csv                   - sibling manifest; must survive
	dir, err := ioutil.TempDir("", "output-clean-")
	if err != nil {
		log.Panic("unable to create tmp dir")
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()
	fnWriteFile := func(relPath string) {
		p := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
			log.Panic("unable to create test dir for ", p)
		}
		if err := ioutil.WriteFile(p, []byte("x"), 0644); err != nil {
			log.Panic("unable to create test file ", p)
		}
	}
	fnWriteFile("songs_table.parquet/year=0/artist_id=ARJIE2Y1187B994AB7/songs-abc_000001.snappy.parquet")
	fnWriteFile("songs_table.parquet/year=1982/artist_id=AR7G5I41187FB4CE6C/songs-abc_000002.snappy.parquet")
	fnWriteFile("manifest-songs-20181115T000000_000001.csv")
	fnWriteFile("artists_table.parquet/artists-abc_000001.snappy.parquet")
	fnWriteFile("manifest-artists-20181115T000000_000001.csv")

	// Test 1: clean the songs table only.
	log.Info("Test 1 - clean the songs dataset and its manifests...")
	cfg := &OutputCleanConfig{
		Log:                         log,
		Name:                        "Test OutputClean",
		FileSystemType:              constants.ConnectionTypeLocalFs,
		Directory:                   dir,
		TableName:                   "songs",
		OutputChanField4TableName:   tableNameField,
		OutputChanField4RowsDeleted: rowsDeletedField,
		StepWatcher:                 nil,
	}
	outputChan, _ := NewOutputClean(cfg)
	results := make([]stream.Record, 0)
	for rec := range outputChan {
		results = append(results, rec)
	}
	if len(results) != 1 {
		t.Fatal("expected 1 output record; got ", len(results))
	}
	if got := results[0].GetDataAsStringPreserveTimeZone(log, tableNameField); got != "songs" {
		t.Fatal("unexpected table name on output record: ", got)
	}
	if got := results[0].GetDataAsStringPreserveTimeZone(log, rowsDeletedField); got != "3" { // 2 part files + 1 manifest.
		t.Fatal("unexpected rows deleted on output record: ", got)
	}
	// The songs dataset and manifest are gone.
	if _, err = os.Stat(filepath.Join(dir, "songs_table.parquet")); err == nil {
		t.Fatal("expected songs dataset directory to be removed")
	}
	if _, err = os.Stat(filepath.Join(dir, "manifest-songs-20181115T000000_000001.csv")); err == nil {
		t.Fatal("expected songs manifest to be removed")
	}
	// The sibling table survives untouched.
	if _, err = os.Stat(filepath.Join(dir, "artists_table.parquet", "artists-abc_000001.snappy.parquet")); err != nil {
		t.Fatal("expected artists dataset to survive: ", err)
	}
	if _, err = os.Stat(filepath.Join(dir, "manifest-artists-20181115T000000_000001.csv")); err != nil {
		t.Fatal("expected artists manifest to survive: ", err)
	}

	// Test 2: cleaning an already-clean location is a no-op.
	log.Info("Test 2 - cleaning an already-clean location is a no-op...")
	outputChan, _ = NewOutputClean(cfg)
	results = results[:0]
	for rec := range outputChan {
		results = append(results, rec)
	}
	if len(results) != 1 {
		t.Fatal("expected 1 output record; got ", len(results))
	}
	if got := results[0].GetDataAsStringPreserveTimeZone(log, rowsDeletedField); got != "0" {
		t.Fatal("expected 0 rows deleted on a clean location; got ", got)
	}

	// Test 3: an unknown table name is rejected before the goroutine starts.
	log.Info("Test 3 - an unknown table name is rejected...")
	panicked := make(chan bool, 1)
	cfg2 := &OutputCleanConfig{
		Log:            log,
		Name:           "Test OutputClean bad table",
		FileSystemType: constants.ConnectionTypeLocalFs,
		Directory:      dir,
		TableName:      "nonsense",
		PanicHandlerFn: func() {
			if r := recover(); r != nil {
				panicked <- true
			}
		},
	}
	NewOutputClean(cfg2)
	select {
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for NewOutputClean to reject a bad table name")
	case <-panicked:
		// OK
	}
	// End OK.
}
