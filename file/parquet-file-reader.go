package file

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/relloyd/songlake/logger"
	"github.com/xitongsys/parquet-go-source/local"
	parquets3 "github.com/xitongsys/parquet-go-source/s3"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
)

// ParquetFileReader reads rows back out of a single parquet file using
// column reads, so no Go struct type is required. The caller supplies the
// column names to fetch, normally from a table definition.
type ParquetFileReader struct {
	log        logger.Logger
	pr         *reader.ParquetReader
	fr         source.ParquetFile
	fieldNames []string
	numRead    int64 // rows consumed so far; column reads advance a cursor per column.
}

// NewParquetFileReaderLocal opens a parquet file on the local file system.
func NewParquetFileReaderLocal(log logger.Logger, filePath string, fieldNames []string) (*ParquetFileReader, error) {
	fr, err := local.NewLocalFileReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("unable to open parquet file %v: %v", filePath, err)
	}
	return newParquetFileReader(log, fr, filePath, fieldNames)
}

// NewParquetFileReaderS3 opens a parquet file held in an S3 bucket.
// Credentials come from the standard AWS chain.
func NewParquetFileReaderS3(ctx context.Context, log logger.Logger, bucketName string, key string, region string, fieldNames []string) (*ParquetFileReader, error) {
	fr, err := parquets3.NewS3FileReader(ctx, bucketName, key, &aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("unable to open parquet file s3://%v/%v: %v", bucketName, key, err)
	}
	return newParquetFileReader(log, fr, fmt.Sprintf("s3://%v/%v", bucketName, key), fieldNames)
}

func newParquetFileReader(log logger.Logger, fr source.ParquetFile, name string, fieldNames []string) (*ParquetFileReader, error) {
	pr, err := reader.NewParquetColumnReader(fr, 4)
	if err != nil {
		_ = fr.Close()
		return nil, fmt.Errorf("unable to read parquet footer of %v: %v", name, err)
	}
	log.Debug("ParquetFileReader opened ", name, " with ", pr.GetNumRows(), " rows")
	return &ParquetFileReader{log: log, pr: pr, fr: fr, fieldNames: fieldNames}, nil
}

// FieldNames returns the column names this reader was asked to fetch.
func (r *ParquetFileReader) FieldNames() []string {
	return r.fieldNames
}

// NumRows returns the total row count from the file footer.
func (r *ParquetFileReader) NumRows() int64 {
	return r.pr.GetNumRows()
}

// ReadRows reads up to max rows (0 = all remaining) into maps keyed by column name.
// Null values come back as untyped nils. Successive calls continue where the last
// one stopped, so callers can batch through large files.
func (r *ParquetFileReader) ReadRows(max int64) ([]map[string]interface{}, error) {
	num := r.pr.GetNumRows() - r.numRead
	if max > 0 && max < num {
		num = max
	}
	if num <= 0 {
		return nil, nil
	}
	rows := make([]map[string]interface{}, num)
	for i := range rows {
		rows[i] = make(map[string]interface{}, len(r.fieldNames))
	}
	for _, name := range r.fieldNames { // for each column...
		values, _, _, err := r.pr.ReadColumnByPath(common.ReformPathStr("parquet_go_root."+name), num)
		if err != nil {
			return nil, fmt.Errorf("unable to read column %q: %v", name, err)
		}
		if int64(len(values)) != num {
			return nil, fmt.Errorf("column %q returned %v values, expected %v", name, len(values), num)
		}
		for i, v := range values {
			rows[i][name] = v
		}
	}
	r.numRead += num
	return rows, nil
}

// Close releases the reader and the underlying file.
func (r *ParquetFileReader) Close() {
	r.pr.ReadStop()
	if err := r.fr.Close(); err != nil {
		r.log.Warn("error closing parquet file: ", err)
	}
}
