package tabledefinition

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/relloyd/songlake/helper"
)

func abort(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Error: %v", err)
	os.Exit(1)
}

// MustGetTableDefinition gets the definition from tableDefinitions using the supplied table name.
func MustGetTableDefinition(tableName string) TableDefinition {
	td, err := tableDefinitions.getRecord(tableName)
	if err != nil { // if the table name was not supported...
		abort(err)
	}
	return td
}

// Logical column data types used in table definitions.
const (
	DataTypeString          = "string"
	DataTypeInt32           = "int32"
	DataTypeInt64           = "int64"
	DataTypeDouble          = "double"
	DataTypeTimestampMillis = "timestampMillis"
)

// coerceFuncT converts a raw record value into the Go type the parquet writer
// expects for the column's physical type.
type coerceFuncT func(v interface{}) (interface{}, error)

// parquetTypeConfigT links a logical data type to its parquet physical type,
// optional converted type/encoding and the coercion func used to build typed rows.
type parquetTypeConfigT struct {
	physicalType  string
	convertedType string
	encoding      string
	fnCoerce      coerceFuncT
}

type mapParquetTypeConfigT map[string]parquetTypeConfigT

var parquetTypeConfig = mapParquetTypeConfigT{
	DataTypeString:          {physicalType: "BYTE_ARRAY", convertedType: "UTF8", encoding: "PLAIN_DICTIONARY", fnCoerce: coerceString},
	DataTypeInt32:           {physicalType: "INT32", fnCoerce: coerceInt32},
	DataTypeInt64:           {physicalType: "INT64", fnCoerce: coerceInt64},
	DataTypeDouble:          {physicalType: "DOUBLE", fnCoerce: coerceDouble},
	DataTypeTimestampMillis: {physicalType: "INT64", convertedType: "TIMESTAMP_MILLIS", fnCoerce: coerceInt64},
}

// getRecord looks up a parquet type config using the supplied logical dataType.
func (m mapParquetTypeConfigT) getRecord(dataType string) (parquetTypeConfigT, error) {
	k, ok := m[dataType]
	if !ok { // if we do not support the data type...
		return parquetTypeConfigT{}, fmt.Errorf("unsupported data type %q in table definition", dataType)
	}
	return k, nil
}

// COERCION FUNCTIONS.

func coerceString(v interface{}) (interface{}, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	default:
		return fmt.Sprintf("%v", s), nil
	}
}

func coerceInt32(v interface{}) (interface{}, error) {
	i, ok := helper.Int64FromInterface(v)
	if !ok {
		return nil, fmt.Errorf("value %v (%T) is not a whole number", v, v)
	}
	if i > math.MaxInt32 || i < math.MinInt32 {
		return nil, fmt.Errorf("value %v overflows int32", i)
	}
	return int32(i), nil
}

func coerceInt64(v interface{}) (interface{}, error) {
	i, ok := helper.Int64FromInterface(v)
	if !ok {
		return nil, fmt.Errorf("value %v (%T) is not a whole number", v, v)
	}
	return i, nil
}

func coerceDouble(v interface{}) (interface{}, error) {
	f, ok := helper.Float64FromInterface(v)
	if !ok {
		return nil, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
	return f, nil
}
