package constants

// Component

const (
	MergeDiffValueNew            = "N"
	MergeDiffValueChanged        = "C"
	MergeDiffValueDeleted        = "D"
	MergeDiffValueIdentical      = "I"
	DiffStatusFieldName          = "#diffStatus"
	ChanSize                     = 20000
	StatsCaptureFrequencySeconds = 5
	TimeFormatYearSeconds        = "20060102T150405" // used for human readable file names
	TimeFormatYearSecondsRegex   = "[0-9]{4}[0-9]{2}[0-9]{2}T[0-9]{6}"
	TimeFormatYearSecondsTZ      = "20060102T150405-0700" // a format that includes the time zone for run timestamps in manifests.
	ManifestHeaderColumnName     = "FileName"
	EmojiBang                    = "\U0001F4A5"
	EnvVarPrefix                 = "SL" // prefix for environment variables in twelveFactorMode
	ActionFuncsCommandRun        = "run"
	ActionFuncsCommandQuery      = "query"
	ActionFuncsCommandDiff       = "diff"
	ActionFuncsSubCommandEtl     = "etl"
	ActionFuncsSubCommandTable   = "table"
	ConnectionTypeStdout         = "stdout"
	ConnectionTypeS3             = "s3"
	ConnectionTypeLocalFs        = "localfs"
)

// Lake layout

const (
	TableNameSongs           = "songs"
	TableNameArtists         = "artists"
	TableNameUsers           = "users"
	TableNameTime            = "time"
	TableNameSongplays       = "songplays"
	DatasetSuffix            = "_table.parquet" // each table writes into <name><suffix>/ under the output root
	ManifestNamePrefix       = "manifest"       // manifests are named <prefix>-<table>-<stamp>.csv at the output root
	SongDataPrefix           = "song_data"
	LogDataPrefix            = "log_data"
	PartitionNullToken       = "__NULL__" // directory token for records with a null partition value
	ParquetRowGroupSizeBytes = 128 * 1024 * 1024
	ParquetMaxRowsPerFile    = 1000000
)

// Data-quality counter names used by step watchers.

const (
	StatsCounterSkippedRows   = "skippedRows"
	StatsCounterUnmatchedRows = "unmatchedRows"
	StatsCounterDuplicateRows = "duplicateRows"
)

// EmojiSmile = "\U0001F604"
// EmojiSnowboader = "\U0001F3C2"
