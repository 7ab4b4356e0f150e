package connections

import (
	"fmt"
	"sort"
	"strings"
)

// ConnectionDetails holds the location and access details for a logical storage connection.
// Type is one of the storage connection types in the constants package (s3, localfs, stdout).
type ConnectionDetails struct {
	Type        string            `json:"type" errorTxt:"storage type" mandatory:"yes" yaml:"type"`
	LogicalName string            `json:"logicalName" errorTxt:"storage logical name" mandatory:"yes" yaml:"logicalName"`
	Data        map[string]string `json:"data" yaml:"data"`
}

// String redacts secrets and pretty-prints the contents of ConnectionDetails.
func (c ConnectionDetails) String() string {
	x := make([]string, 0, len(c.Data)+1)
	x = append(x, fmt.Sprintf("  type = %v", c.Type))
	keys := make([]string, 0, len(c.Data))
	for k := range c.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := c.Data[k]
		if k == "password" || k == "secret" || k == "secretKey" {
			v = "xxxxx"
		}
		x = append(x, fmt.Sprintf("  %v = %v", k, v))
	}
	return fmt.Sprintf("%v", strings.Join(x, "\n"))
}

// Connections is used by transform code and JSON pipeline definitions.
type Connections map[string]ConnectionDetails

// LoadConnection will load the supplied *c[connectionName], which is expected to be in c, using the interface
// to do the actual loading.
func (c *Connections) LoadConnection(i ConnectionGetter, connectionName string) error {
	conn := (*c)[connectionName]
	// TODO: the fact that we load a conn based on its LogicalName now means that the process that saves
	//  config now has to call the connection the same as the logical name! Add a test for this combination.
	d, err := i.LoadConnection(conn.LogicalName) // fetch new ConnectionDetails from config using the logicalName, not the connectionName!
	if err != nil {
		return err
	}
	(*c)[connectionName] = d // replace the connection with the loaded version
	return nil
}

// ConnectionGetter loads a named connection from wherever connections are stored.
type ConnectionGetter interface {
	LoadConnection(name string) (ConnectionDetails, error)
}
