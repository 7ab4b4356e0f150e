package components_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relloyd/songlake/components"
	"github.com/relloyd/songlake/logger"
)

func TestDirectoryListInput(t *testing.T) {
	log := logger.NewLogger("songlake", "info", true)
	outputField4FileName := "filename"
	outputField4FileNameWithoutPrefix := "filenameWithoutPrefix"

	// Create a source tree shaped like the raw data layout.
	dir, err := ioutil.TempDir("", "dir-list-input-")
	if err != nil {
		log.Panic("unable to create tmp dir")
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()
	testFiles := []string{
		"log_data/2018/11/2018-11-15-events.json",
		"song_data/A/A/A/TRAAAAW128F429D538.json",
		"song_data/A/B/C/TRABCEI128F424C983.json",
	}
	for _, f := range testFiles {
		p := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
			log.Panic("unable to create test dir for ", p)
		}
		if err := ioutil.WriteFile(p, []byte("{}"), 0644); err != nil {
			log.Panic("unable to create test file ", p)
		}
	}

	fnCollect := func(cfg *components.DirectoryListerConfig) []string {
		outputChan, _ := components.NewDirectoryList(cfg)
		found := make([]string, 0)
		for rec := range outputChan {
			log.Debug("found file: '", rec.GetData(outputField4FileName), "'")
			found = append(found, rec.GetData(outputField4FileNameWithoutPrefix).(string))
		}
		return found
	}

	// Test 1 - confirm we can list the whole tree.
	log.Info("Test 1 - confirm we can list the whole tree...")
	cfg := &components.DirectoryListerConfig{
		Log:                               log,
		Name:                              "Test DirectoryLister",
		Directory:                         dir,
		StepWatcher:                       nil,
		OutputField4FileName:              outputField4FileName,
		OutputField4FileNameWithoutPrefix: outputField4FileNameWithoutPrefix,
	}
	found := fnCollect(cfg)
	if len(found) != len(testFiles) {
		t.Fatal("expected ", len(testFiles), " files; got ", len(found))
	}
	for idx := range testFiles { // walk order is lexical, matching the fixture slice.
		if found[idx] != testFiles[idx] {
			t.Fatal("unexpected file at index ", idx, ": got '", found[idx], "' expected '", testFiles[idx], "'")
		}
	}

	// Test 2 - confirm the object name prefix restricts the listing.
	log.Info("Test 2 - confirm the object name prefix restricts the listing...")
	cfg.ObjectNamePrefix = "song_data/"
	found = fnCollect(cfg)
	if len(found) != 2 {
		t.Fatal("expected 2 song files; got ", len(found))
	}
	for _, f := range found {
		if !strings.HasPrefix(f, "song_data/") {
			t.Fatal("unexpected file listed under prefix: '", f, "'")
		}
	}

	// Test 3 - confirm the regexp filter restricts the listing.
	log.Info("Test 3 - confirm the regexp filter restricts the listing...")
	cfg.ObjectNamePrefix = ""
	cfg.ObjectNameRegexp = "-events\\.json$"
	found = fnCollect(cfg)
	if len(found) != 1 || found[0] != "log_data/2018/11/2018-11-15-events.json" {
		t.Fatal("unexpected regexp filter results: ", found)
	}

	// Test 4 - confirm DirectoryList returns a control channel.
	log.Info("Test 4 - confirm DirectoryList returns a control channel...")
	cfg.ObjectNameRegexp = ""
	_, controlChan := components.NewDirectoryList(cfg)
	if controlChan == nil {
		t.Fatal("DirectoryList returned nil controlChan")
	}
}
