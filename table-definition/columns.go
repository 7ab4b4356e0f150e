package tabledefinition

import (
	"fmt"
	"strings"

	"github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/stream"
)

type mapTableDefinitionsT map[string]TableDefinition

// tableDefinitions holds the column layout of each analytical table keyed by table name.
// Column order is the physical parquet field order.
// Source nulls pass through so columns are optional unless flagged otherwise.
var tableDefinitions = mapTableDefinitionsT{
	constants.TableNameSongs: {
		TableName: constants.TableNameSongs,
		Columns: []TableColumn{
			{ColName: "song_id", DataType: DataTypeString},
			{ColName: "title", DataType: DataTypeString},
			{ColName: "artist_id", DataType: DataTypeString},
			{ColName: "year", DataType: DataTypeInt32},
			{ColName: "duration", DataType: DataTypeDouble},
		},
		PrimaryKey:    []string{"song_id"},
		PartitionKeys: []string{"year", "artist_id"},
	},
	constants.TableNameArtists: {
		TableName: constants.TableNameArtists,
		Columns: []TableColumn{
			{ColName: "artist_id", DataType: DataTypeString},
			{ColName: "name", DataType: DataTypeString},
			{ColName: "location", DataType: DataTypeString},
			{ColName: "latitude", DataType: DataTypeDouble},
			{ColName: "longitude", DataType: DataTypeDouble},
		},
		PrimaryKey: []string{"artist_id"},
	},
	constants.TableNameUsers: {
		TableName: constants.TableNameUsers,
		Columns: []TableColumn{
			{ColName: "user_id", DataType: DataTypeString},
			{ColName: "first_name", DataType: DataTypeString},
			{ColName: "last_name", DataType: DataTypeString},
			{ColName: "gender", DataType: DataTypeString},
			{ColName: "level", DataType: DataTypeString},
		},
		PrimaryKey: []string{"user_id"},
	},
	constants.TableNameTime: {
		TableName: constants.TableNameTime,
		Columns: []TableColumn{
			{ColName: "start_time", DataType: DataTypeTimestampMillis, Required: true},
			{ColName: "hour", DataType: DataTypeInt32},
			{ColName: "day", DataType: DataTypeInt32},
			{ColName: "week", DataType: DataTypeInt32},
			{ColName: "month", DataType: DataTypeInt32},
			{ColName: "year", DataType: DataTypeInt32},
			{ColName: "weekday", DataType: DataTypeInt32},
		},
		PrimaryKey: []string{"start_time"},
	},
	constants.TableNameSongplays: {
		TableName: constants.TableNameSongplays,
		Columns: []TableColumn{
			{ColName: "songplay_id", DataType: DataTypeInt64, Required: true},
			{ColName: "start_time", DataType: DataTypeTimestampMillis, Required: true},
			{ColName: "user_id", DataType: DataTypeString},
			{ColName: "level", DataType: DataTypeString},
			{ColName: "song_id", DataType: DataTypeString},
			{ColName: "artist_id", DataType: DataTypeString},
			{ColName: "session_id", DataType: DataTypeInt64},
			{ColName: "location", DataType: DataTypeString},
			{ColName: "user_agent", DataType: DataTypeString},
			{ColName: "year", DataType: DataTypeInt32},
			{ColName: "month", DataType: DataTypeInt32},
		},
		PrimaryKey:    []string{"songplay_id"},
		PartitionKeys: []string{"year", "month"},
	},
}

// getRecord looks up and returns a value from the map t using the supplied tableName.
func (t mapTableDefinitionsT) getRecord(tableName string) (TableDefinition, error) {
	k, ok := t[strings.ToLower(tableName)]
	if !ok { // if we do not support the table name...
		return TableDefinition{}, fmt.Errorf("error fetching table definition, unsupported table: %q", tableName)
	}
	return k, nil
}

// TableColumn defines a single table column.
type TableColumn struct {
	ColName  string
	DataType string
	Required bool
}

// TableDefinition describes the physical layout of one analytical table:
// its columns in parquet field order, its natural or synthetic primary key,
// and the partition keys, if any, used to build Hive style output
// subdirectories.
type TableDefinition struct {
	TableName     string
	Columns       []TableColumn
	PrimaryKey    []string
	PartitionKeys []string
}

// GetTableDefinition returns the definition of the supplied table name.
func GetTableDefinition(tableName string) (TableDefinition, error) {
	return tableDefinitions.getRecord(tableName)
}

// TableNames returns the names of all defined tables in write order.
func TableNames() []string {
	return []string{
		constants.TableNameSongs,
		constants.TableNameArtists,
		constants.TableNameUsers,
		constants.TableNameTime,
		constants.TableNameSongplays,
	}
}

// DatasetName returns the directory name of the table under the output root.
func (t TableDefinition) DatasetName() string {
	return t.TableName + constants.DatasetSuffix
}

// ManifestPrefix returns the file name prefix of the table's run manifests,
// written alongside the dataset at the output root.
func (t TableDefinition) ManifestPrefix() string {
	return constants.ManifestNamePrefix + "-" + t.TableName
}

// ColumnNames returns the column names in physical order.
func (t TableDefinition) ColumnNames() []string {
	cols := make([]string, len(t.Columns))
	for i := range t.Columns {
		cols[i] = t.Columns[i].ColName
	}
	return cols
}

// PrimaryKeyColumns returns the key column names used to pair up rows when
// two copies of the table are compared.
func (t TableDefinition) PrimaryKeyColumns() []string {
	return t.PrimaryKey
}

// NonKeyColumns returns the column names in physical order excluding the
// primary key columns.
func (t TableDefinition) NonKeyColumns() []string {
	cols := make([]string, 0, len(t.Columns))
	for i := range t.Columns {
		isKey := false
		for _, k := range t.PrimaryKey {
			if t.Columns[i].ColName == k {
				isKey = true
				break
			}
		}
		if !isKey {
			cols = append(cols, t.Columns[i].ColName)
		}
	}
	return cols
}

func (t TableDefinition) colIndex(name string) int {
	for i := range t.Columns {
		if t.Columns[i].ColName == name {
			return i
		}
	}
	return -1
}

// ParquetMetadata renders the parquet schema as one metadata string per column
// in the format expected by the CSV-schema parquet writer, e.g.
// "name=song_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY, repetitiontype=OPTIONAL".
func (t TableDefinition) ParquetMetadata() ([]string, error) {
	md := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns { // for each column...
		k, err := parquetTypeConfig.getRecord(col.DataType)
		if err != nil {
			return nil, err
		}
		s := fmt.Sprintf("name=%v, type=%v", col.ColName, k.physicalType)
		if k.convertedType != "" {
			s += ", convertedtype=" + k.convertedType
		}
		if k.encoding != "" {
			s += ", encoding=" + k.encoding
		}
		if col.Required {
			s += ", repetitiontype=REQUIRED"
		} else {
			s += ", repetitiontype=OPTIONAL"
		}
		md = append(md, s)
	}
	return md, nil
}

// RowFromRecord converts rec into a typed row ready for the parquet writer.
// Values are coerced to the physical type of each column; missing or null
// values become nil unless the column is required, in which case an error
// is returned and the caller should treat the record as a data-quality skip.
func (t TableDefinition) RowFromRecord(rec stream.Record) ([]interface{}, error) {
	row := make([]interface{}, len(t.Columns))
	for i, col := range t.Columns { // for each column...
		v, ok := rec.GetDataOk(col.ColName)
		if !ok || v == nil { // if the value is missing or null...
			if col.Required {
				return nil, fmt.Errorf("missing value for required column %q in table %q", col.ColName, t.TableName)
			}
			row[i] = nil
			continue
		}
		k, err := parquetTypeConfig.getRecord(col.DataType)
		if err != nil {
			return nil, err
		}
		cv, err := k.fnCoerce(v)
		if err != nil {
			return nil, fmt.Errorf("column %q in table %q: %v", col.ColName, t.TableName, err)
		}
		row[i] = cv
	}
	return row, nil
}

// PartitionPath renders the Hive style partition subdirectory for the given
// typed row, e.g. "year=2018/artist_id=ARD7TVE1187B99BFB1".
// Null partition values use the placeholder token so they land in their own
// directory instead of failing the run. Unpartitioned tables yield "".
func (t TableDefinition) PartitionPath(row []interface{}) (string, error) {
	if len(t.PartitionKeys) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(t.PartitionKeys))
	for _, key := range t.PartitionKeys { // for each partition key in order...
		idx := t.colIndex(key)
		if idx == -1 || idx >= len(row) {
			return "", fmt.Errorf("partition key %q is not a column of table %q", key, t.TableName)
		}
		if row[idx] == nil { // if the partition value is null...
			parts = append(parts, key+"="+constants.PartitionNullToken)
		} else {
			parts = append(parts, fmt.Sprintf("%v=%v", key, row[idx]))
		}
	}
	return strings.Join(parts, "/"), nil
}
