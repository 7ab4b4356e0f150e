package file

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"

	"github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/logger"
	tabledefinition "github.com/relloyd/songlake/table-definition"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// ParquetFileOutput writes typed rows into a parquet dataset directory under
// a local staging root. Rows are bucketed into one open file per partition
// path (Hive style col=value subdirectories); files rotate after maxFileRows
// rows. A file is only safe to move or upload after it has been closed, so
// callers learn of completed files via the return values of MustWriteRow and
// MustClose.
type ParquetFileOutput struct {
	log             logger.Logger
	table           tabledefinition.TableDefinition
	directory       string // staging root; the dataset dir is created under here.
	fileNameToken   string // unique token embedded in part file names, normally the run GUID.
	maxFileRows     int
	parquetMetadata []string
	writers         map[string]*partitionWriter // open files keyed by partition path ("" for unpartitioned tables).
	currentSuffixID int
	totalRowCount   int
	// ListOfOutputFiles holds the dataset-relative path of every file created, in creation order.
	ListOfOutputFiles []string
}

type partitionWriter struct {
	pw       *writer.CSVWriter
	fw       source.ParquetFile
	relPath  string // path relative to the staging root, starting with the dataset dir.
	rowCount int
}

// NewParquetFileOutput creates a parquet dataset writer for the supplied table.
// Supply a valid staging directory or empty string to use ioutil.TempDir().
// Set maxFileRows to rotate files after that many rows, or 0 for no rotation.
func NewParquetFileOutput(log logger.Logger, stagingDirectory string, table tabledefinition.TableDefinition, fileNameToken string, maxFileRows int) (*ParquetFileOutput, error) {
	f := &ParquetFileOutput{}
	f.log = log
	if stagingDirectory == "" {
		var err error
		f.directory, err = ioutil.TempDir("", "parquet-output-")
		if err != nil {
			return nil, fmt.Errorf("error creating temp directory for parquet files: %v", err)
		}
	} else {
		f.directory = stagingDirectory
	}
	f.table = table
	f.fileNameToken = fileNameToken
	f.maxFileRows = maxFileRows
	f.writers = make(map[string]*partitionWriter)
	md, err := table.ParquetMetadata()
	if err != nil { // if the table definition could not produce a schema...
		return nil, err
	}
	f.parquetMetadata = md
	log.Debug("ParquetFileOutput table=", table.TableName, "; staging=", f.directory, "; fileNameToken=", f.fileNameToken, "; maxFileRows=", f.maxFileRows)
	return f, nil
}

// Directory returns the staging root that dataset files are written under.
func (f *ParquetFileOutput) Directory() string {
	return f.directory
}

// TotalRowCount returns the number of rows written so far.
func (f *ParquetFileOutput) TotalRowCount() int {
	return f.totalRowCount
}

// MustWriteRow writes a typed row (as produced by TableDefinition.RowFromRecord)
// into the parquet file for its partition, creating or rotating files as needed.
// If the write rotated a full file out of use, that file's relative path is
// returned, else empty string "".
func (f *ParquetFileOutput) MustWriteRow(row []interface{}) (closedFile string) {
	partition, err := f.table.PartitionPath(row)
	if err != nil {
		f.log.Panic("unable to build partition path: ", err)
	}
	w := f.writers[partition]
	if w != nil && f.maxFileRows > 0 && w.rowCount >= f.maxFileRows { // if the open file is full...
		closedFile = w.relPath
		f.mustCloseWriter(w)
		delete(f.writers, partition)
		w = nil
	}
	if w == nil { // if we need a new file for this partition...
		w = f.mustCreateWriter(partition)
		f.writers[partition] = w
	}
	if err := w.pw.Write(row); err != nil {
		f.log.Panic("unable to write row to parquet file ", w.relPath, ": ", err)
	}
	w.rowCount++
	f.totalRowCount++
	return
}

// MustClose finalises all open parquet files and returns their relative paths.
// The writer must not be used after calling this.
func (f *ParquetFileOutput) MustClose() (closedFiles []string) {
	// Close in creation order so downstream output is deterministic.
	for _, relPath := range f.ListOfOutputFiles {
		for partition, w := range f.writers {
			if w.relPath == relPath {
				f.mustCloseWriter(w)
				delete(f.writers, partition)
				closedFiles = append(closedFiles, relPath)
			}
		}
	}
	return
}

func (f *ParquetFileOutput) mustCreateWriter(partition string) *partitionWriter {
	f.currentSuffixID++
	fileName := fmt.Sprintf("part-%v-%05d.parquet", f.fileNameToken, f.currentSuffixID)
	relPath := path.Join(f.table.DatasetName(), partition, fileName)
	fullPath := filepath.Join(f.directory, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		f.log.Panic("unable to create partition directory for ", fullPath, ": ", err)
	}
	f.log.Info("Creating new parquet file '", fullPath, "'")
	fw, err := local.NewLocalFileWriter(fullPath)
	if err != nil {
		f.log.Panic("unable to create parquet file ", fullPath, ": ", err)
	}
	pw, err := writer.NewCSVWriter(f.parquetMetadata, fw, 4)
	if err != nil {
		f.log.Panic("unable to create parquet writer for ", fullPath, ": ", err)
	}
	pw.RowGroupSize = constants.ParquetRowGroupSizeBytes
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	f.ListOfOutputFiles = append(f.ListOfOutputFiles, relPath)
	return &partitionWriter{pw: pw, fw: fw, relPath: relPath}
}

func (f *ParquetFileOutput) mustCloseWriter(w *partitionWriter) {
	if err := w.pw.WriteStop(); err != nil { // if the footer could not be written...
		f.log.Panic("unable to finalise parquet file ", w.relPath, ": ", err)
	}
	if err := w.fw.Close(); err != nil {
		f.log.Panic("unable to close parquet file ", w.relPath, ": ", err)
	}
	f.log.Debug("Closed parquet file ", w.relPath, " with ", w.rowCount, " rows")
}
