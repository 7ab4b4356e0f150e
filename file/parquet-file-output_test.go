package file

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/relloyd/songlake/logger"
	tabledefinition "github.com/relloyd/songlake/table-definition"
)

func TestParquetFileOutputRoundTrip(t *testing.T) {
	log := logger.NewLogger("parquet test", "debug", true)
	table, err := tabledefinition.GetTableDefinition("songs")
	if err != nil {
		t.Fatal("unable to get songs table definition: ", err)
	}

	// Rows match the songs column order: song_id, title, artist_id, year, duration.
	// The first three land in the same partition so the file rotates; the last
	// has a null year so it exercises the null partition token.
	rows := [][]interface{}{
		{"SOUPIRU12A6D4FA1E1", "Der Kleine Dompfaff", "ARJIE2Y1187B994AB7", int32(0), 152.92036},
		{"SOXLBJT12A8C140925", "Caught In A Dream", "ARJIE2Y1187B994AB7", int32(0), 290.29832},
		{"SOGDBUF12A8C140FAA", "Intro", "ARJIE2Y1187B994AB7", int32(0), 75.67628},
		{"SONHOTT12A8C13493C", "Something Girls", "ARNF6401187FB57032", nil, 233.40363},
	}

	// Test 1 - write rows with rotation after 2 rows per file.
	log.Debug("Test 1 - writing rows...")
	out, err := NewParquetFileOutput(log, "", table, "run1", 2)
	if err != nil {
		t.Fatal("unable to create parquet output: ", err)
	}
	dir := out.Directory()
	var rotated []string
	for _, row := range rows {
		if fileName := out.MustWriteRow(row); fileName != "" {
			log.Info("rotated file: ", fileName)
			rotated = append(rotated, fileName)
		}
	}
	closedFiles := out.MustClose()
	log.Debug("Test 1 - finished writing parquet files")

	p1 := "songs_table.parquet/year=0/artist_id=ARJIE2Y1187B994AB7/part-run1-00001.parquet"
	p2 := "songs_table.parquet/year=0/artist_id=ARJIE2Y1187B994AB7/part-run1-00002.parquet"
	p3 := "songs_table.parquet/year=__NULL__/artist_id=ARNF6401187FB57032/part-run1-00003.parquet"
	if !reflect.DeepEqual(rotated, []string{p1}) {
		t.Fatal("unexpected rotated files: ", rotated)
	}
	if !reflect.DeepEqual(closedFiles, []string{p2, p3}) {
		t.Fatal("unexpected files from MustClose: ", closedFiles)
	}
	if !reflect.DeepEqual(out.ListOfOutputFiles, []string{p1, p2, p3}) {
		t.Fatal("unexpected ListOfOutputFiles: ", out.ListOfOutputFiles)
	}
	if out.TotalRowCount() != 4 {
		t.Fatal("unexpected total row count: ", out.TotalRowCount())
	}
	for _, relPath := range out.ListOfOutputFiles { // confirm the files landed on disk...
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(relPath))); err != nil {
			t.Fatal("missing output file: ", err)
		}
	}

	// Test 2 - read back the first file and check values survived intact.
	log.Debug("Test 2 - reading back rotated file...")
	rd, err := NewParquetFileReaderLocal(log, filepath.Join(dir, filepath.FromSlash(p1)), table.ColumnNames())
	if err != nil {
		t.Fatal("unable to open parquet file for read: ", err)
	}
	if rd.NumRows() != 2 {
		t.Fatal("unexpected row count in rotated file: ", rd.NumRows())
	}
	got, err := rd.ReadRows(0)
	rd.Close()
	if err != nil {
		t.Fatal("unable to read rows: ", err)
	}
	if got[0]["song_id"] != "SOUPIRU12A6D4FA1E1" || got[1]["song_id"] != "SOXLBJT12A8C140925" {
		t.Fatal("read bad song_id values: ", got)
	}
	if y, ok := got[0]["year"].(int32); !ok || y != 0 {
		t.Fatal("read bad year value: ", got[0]["year"])
	}
	if d, ok := got[0]["duration"].(float64); !ok || d != 152.92036 {
		t.Fatal("read bad duration value: ", got[0]["duration"])
	}

	// Test 3 - the null year must read back as nil.
	log.Debug("Test 3 - reading back null partition file...")
	rd3, err := NewParquetFileReaderLocal(log, filepath.Join(dir, filepath.FromSlash(p3)), table.ColumnNames())
	if err != nil {
		t.Fatal("unable to open parquet file for read: ", err)
	}
	got3, err := rd3.ReadRows(0)
	rd3.Close()
	if err != nil {
		t.Fatal("unable to read rows: ", err)
	}
	if len(got3) != 1 || got3[0]["song_id"] != "SONHOTT12A8C13493C" {
		t.Fatal("read bad rows from null partition file: ", got3)
	}
	if got3[0]["year"] != nil {
		t.Fatal("expected nil year, got: ", got3[0]["year"])
	}
}
