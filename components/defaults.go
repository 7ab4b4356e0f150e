package components

// Default field names are used by components to know the names of input and output fields.
var Defaults = struct {
	ChanField4CSVFileName           string
	ChanField4FileName              string // the default map key that contains file names (full paths or S3 keys), used by input and output Channels.
	ChanField4FileNameWithoutPrefix string // the default map key that contains file names relative to the bucket prefix or staging directory.
	ChanField4BucketName            string // the default map key that contains the bucket name, used by input and output Channels.
	ChanField4BucketPrefix          string // the default map key that contains the bucket prefix, used by input and output Channels.
	ChanField4BucketRegion          string // the default map key that contains the bucket region, used by input and output Channels.
	ChanField4TableName             string // the default map key that contains the target table name.
	ChanField4RowsDeleted           string // the default map key that contains the number of objects removed by an output clean step.
}{
	ChanField4CSVFileName:           "#CSVFileName",
	ChanField4FileName:              "#DataFileName",
	ChanField4FileNameWithoutPrefix: "#DataFileNameWithoutPrefix",
	ChanField4BucketName:            "#BucketName",
	ChanField4BucketPrefix:          "#BucketPrefix",
	ChanField4BucketRegion:          "#BucketRegion",
	ChanField4TableName:             "#TableName",
	ChanField4RowsDeleted:           "#RowsDeleted",
}
