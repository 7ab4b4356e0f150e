package connections

import (
	"fmt"
	"path/filepath"

	"github.com/relloyd/songlake/constants"
)

// LocalFsDir describes a local directory used as a storage connection,
// for demo data, tests and local dry runs.
type LocalFsDir struct {
	Dir string `errorTxt:"directory path" mandatory:"yes"`
}

func (d LocalFsDir) Parse() error {
	if d.Dir == "" {
		return fmt.Errorf("value expected for directory path")
	}
	if !filepath.IsAbs(d.Dir) {
		return fmt.Errorf("directory path %q must be absolute", d.Dir)
	}
	return nil
}

func (d LocalFsDir) GetScheme() (string, error) {
	return constants.ConnectionTypeLocalFs, nil
}

func (d LocalFsDir) GetMap(m map[string]string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	m["dir"] = d.Dir
	return m
}

func NewLocalFsDir(c *ConnectionDetails) *LocalFsDir {
	return &LocalFsDir{Dir: c.Data["dir"]}
}

func LocalFsDirToMap(m map[string]string, d LocalFsDir) map[string]string {
	m["dir"] = d.Dir
	return m
}
