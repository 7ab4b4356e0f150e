package actions

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/relloyd/songlake/aws/s3"
	"github.com/relloyd/songlake/connections"
	"github.com/relloyd/songlake/constants"
	"github.com/relloyd/songlake/helper"
	"github.com/relloyd/songlake/logger"
)

type DemoSetupConfig struct {
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic bool
	WriteFiles       bool
	SourceString     ConnectionObject
	SrcConnDetails   *connections.ConnectionDetails
}

type DemoCleanupConfig struct {
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic bool
	WriteFiles       bool
	SourceString     ConnectionObject
	SrcConnDetails   *connections.ConnectionDetails
}

// demoFile is one sample file keyed by its path relative to the connection root.
type demoFile struct {
	relPath  string
	contents string
}

// RunDemoSetup writes a small set of song metadata files and one activity log file to the
// supplied connection, ready for the etl, query and diff actions to consume. The fixture
// set deliberately includes a duplicate song, a non-NextSong page view, a play with no
// matching song and a malformed log line so a demo run exercises the dedup, filter, join
// and skip paths end to end.
func RunDemoSetup(cfg *DemoSetupConfig) error {
	// Setup logging.
	if cfg.LogLevel == "" {
		cfg.LogLevel = "error"
	}
	log := logger.NewLogger("songlake", cfg.LogLevel, cfg.StackDumpOnPanic)
	err := validateDemoSetupConfig(cfg)
	if err != nil {
		return err
	}
	printLogFn := getPrintLogFunc(log, !cfg.WriteFiles)
	var writeFn func(relPath string, data []byte) error
	if cfg.WriteFiles { // if we want to write files then get a writer for the connection type.
		if writeFn, err = getDemoWriteFunc(cfg.SrcConnDetails); err != nil {
			return err
		}
	}
	// Song metadata files.
	printLogFn(`-- Demo song files...`)
	for _, f := range getDemoSongFiles() {
		f := f
		printLogFn(fmt.Sprintf("-- %v", f.relPath))
		printLogFn(f.contents)
		if cfg.WriteFiles {
			fn := func() error {
				return writeFn(f.relPath, []byte(f.contents))
			}
			mustExecFn(log, printLogFn, fn)
		}
	}
	// Activity log files.
	printLogFn(`-- Demo activity log files...`)
	for _, f := range getDemoLogFiles() {
		f := f
		printLogFn(fmt.Sprintf("-- %v", f.relPath))
		printLogFn(f.contents)
		if cfg.WriteFiles {
			fn := func() error {
				return writeFn(f.relPath, []byte(f.contents))
			}
			mustExecFn(log, printLogFn, fn)
		}
	}
	return nil
}

func validateDemoSetupConfig(cfg *DemoSetupConfig) (err error) {
	errs := make([]string, 0)
	helper.GetStructErrorTxt4UnsetFields(cfg, &errs)
	if len(errs) > 0 {
		err = fmt.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	return
}

// RunDemoCleanup removes the song_data and log_data trees from the supplied connection.
func RunDemoCleanup(cfg *DemoCleanupConfig) error {
	// Setup logging.
	if cfg.LogLevel == "" {
		cfg.LogLevel = "error"
	}
	log := logger.NewLogger("songlake", cfg.LogLevel, cfg.StackDumpOnPanic)
	err := validateDemoCleanupConfig(cfg)
	if err != nil {
		return err
	}
	printLogFn := getPrintLogFunc(log, !cfg.WriteFiles)
	var removeFn func(prefix string) error
	if cfg.WriteFiles { // if we want to remove files then get a remover for the connection type.
		if removeFn, err = getDemoRemoveFunc(log, cfg.SrcConnDetails); err != nil {
			return err
		}
	}
	printLogFn(`-- Demo cleanup...`)
	for _, p := range []string{constants.SongDataPrefix, constants.LogDataPrefix} {
		p := p
		printLogFn(fmt.Sprintf("-- remove %v/ from connection %q", p, cfg.SourceString.GetConnectionName()))
		if cfg.WriteFiles {
			fn := func() error {
				return removeFn(p)
			}
			mustExecFn(log, printLogFn, fn)
		}
	}
	return nil
}

func validateDemoCleanupConfig(cfg *DemoCleanupConfig) (err error) {
	errs := make([]string, 0)
	helper.GetStructErrorTxt4UnsetFields(cfg, &errs)
	if len(errs) > 0 {
		err = fmt.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	return
}

// getDemoWriteFunc returns a func that writes data to the supplied connection at a path
// relative to the connection root.
func getDemoWriteFunc(conn *connections.ConnectionDetails) (func(relPath string, data []byte) error, error) {
	switch conn.Type {
	case constants.ConnectionTypeS3:
		b := s3.NewAwsBucket(conn)
		client := s3.NewBasicClient(b.Name, b.Region, b.Prefix)
		return func(relPath string, data []byte) error {
			return client.Put(relPath, data)
		}, nil
	case constants.ConnectionTypeLocalFs:
		d := connections.NewLocalFsDir(conn)
		return func(relPath string, data []byte) error {
			fullPath := filepath.Join(d.Dir, filepath.FromSlash(relPath))
			if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
				return err
			}
			return ioutil.WriteFile(fullPath, data, 0644)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported connection type %q for demo data", conn.Type)
	}
}

// getDemoRemoveFunc returns a func that removes all demo files below a prefix on the
// supplied connection.
func getDemoRemoveFunc(log logger.Logger, conn *connections.ConnectionDetails) (func(prefix string) error, error) {
	switch conn.Type {
	case constants.ConnectionTypeS3:
		b := s3.NewAwsBucket(conn)
		client := s3.NewBasicClient(b.Name, b.Region, b.Prefix)
		return func(prefix string) error {
			numDeleted, err := client.DeletePrefix(prefix)
			if err != nil {
				return err
			}
			log.Info("deleted ", numDeleted, " objects below prefix ", prefix)
			return nil
		}, nil
	case constants.ConnectionTypeLocalFs:
		d := connections.NewLocalFsDir(conn)
		return func(prefix string) error {
			return os.RemoveAll(filepath.Join(d.Dir, prefix))
		}, nil
	default:
		return nil, fmt.Errorf("unsupported connection type %q for demo data", conn.Type)
	}
}

// getDemoSongFiles returns song metadata fixtures in the one-object-per-file layout produced
// by the upstream dataset. The first two files describe the same song so a demo run shows
// row dedup in the songs and artists tables. The last song carries a null year and null
// coordinates to show null partition values flowing through to partition directories.
func getDemoSongFiles() []demoFile {
	return []demoFile{
		{
			relPath:  "song_data/A/A/A/TRAAAEL128F93031D2.json",
			contents: `{"num_songs": 1, "artist_id": "AR5T40Y1187B9996C6", "artist_latitude": 35.14968, "artist_longitude": -90.04892, "artist_location": "Memphis, Tennessee", "artist_name": "Elvis Presley", "song_id": "SOHKNRJ12A6701D1F8", "title": "Hound Dog", "duration": 136.40771, "year": 1956}`,
		},
		{
			relPath:  "song_data/A/B/C/TRABCAJ12903CDFCC2.json",
			contents: `{"num_songs": 1, "artist_id": "AR5T40Y1187B9996C6", "artist_latitude": 35.14968, "artist_longitude": -90.04892, "artist_location": "Memphis, Tennessee", "artist_name": "Elvis Presley", "song_id": "SOHKNRJ12A6701D1F8", "title": "Hound Dog", "duration": 136.40771, "year": 1956}`,
		},
		{
			relPath:  "song_data/A/A/B/TRAABJW128F92C4D5B.json",
			contents: `{"num_songs": 1, "artist_id": "ARBWJA61187FB3F125", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Blind Willie Johnson", "song_id": "SODWNKK12AF72A3D85", "title": "Dark Was the Night Cold Was the Ground", "duration": 201.79546, "year": null}`,
		},
	}
}

// getDemoLogFiles returns one activity log fixture in the one-object-per-line layout
// produced by the upstream event simulator. It holds two plays that match the demo songs,
// one play with no matching song, one non-NextSong page view and one malformed line.
func getDemoLogFiles() []demoFile {
	return []demoFile{
		{
			relPath: "log_data/2018/11/2018-11-09-events.json",
			contents: `{"artist":"Elvis Presley","auth":"Logged In","firstName":"Lily","gender":"F","itemInSession":0,"lastName":"Koch","length":136.40771,"level":"paid","location":"Chicago-Naperville-Elgin, IL-IN-WI","method":"PUT","page":"NextSong","registration":1541048010796.0,"sessionId":818,"song":"Hound Dog","status":200,"ts":1541721977796,"userAgent":"\"Mozilla\/5.0 (Macintosh; Intel Mac OS X 10_9_4) AppleWebKit\/537.36 (KHTML, like Gecko) Chrome\/36.0.1985.143 Safari\/537.36\"","userId":"15"}
{"artist":null,"auth":"Logged In","firstName":"Walter","gender":"M","itemInSession":0,"lastName":"Frye","length":null,"level":"free","location":"San Francisco-Oakland-Hayward, CA","method":"GET","page":"Home","registration":1540919166796.0,"sessionId":38,"song":null,"status":200,"ts":1541722185796,"userAgent":"\"Mozilla\/5.0 (Macintosh; Intel Mac OS X 10_9_4) AppleWebKit\/537.36 (KHTML, like Gecko) Chrome\/36.0.1985.143 Safari\/537.36\"","userId":"39"}
{"artist":"Chuck Berry","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":2,"lastName":"Summers","length":160.39138,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","registration":1540344794796.0,"sessionId":139,"song":"You Never Can Tell","status":200,"ts":1541726013796,"userAgent":"\"Mozilla\/5.0 (Windows NT 6.1; WOW64) AppleWebKit\/537.36 (KHTML, like Gecko) Chrome\/35.0.1916.153 Safari\/537.36\"","userId":"8"}
{"artist":"Elvis Presley","auth":"Logged In","firstName":"Aleena"
{"artist":"Elvis Presley","auth":"Logged In","firstName":"Aleena","gender":"F","itemInSession":5,"lastName":"Kirby","length":136.40771,"level":"paid","location":"Waterloo-Cedar Falls, IA","method":"PUT","page":"NextSong","registration":1541022995796.0,"sessionId":237,"song":"Hound Dog","status":200,"ts":1541783958796,"userAgent":"\"Mozilla\/5.0 (Macintosh; Intel Mac OS X 10_9_4) AppleWebKit\/537.36 (KHTML, like Gecko) Chrome\/37.0.2062.103 Safari\/537.36\"","userId":"44"}
`,
		},
	}
}
