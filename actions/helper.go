package actions

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"regexp"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/relloyd/songlake/connections"
	"github.com/relloyd/songlake/logger"
	"github.com/relloyd/songlake/transform"
)

// mustReplaceInStringUsingMapKeyVals will replace in string s (by reference)
// the old and new values found in the map, where:
// the map key is the old value; and
// the map value is the replacement/new value.
func mustReplaceInStringUsingMapKeyVals(s *string, m map[string]string) {
	replacements := make([]string, 0)
	for k, v := range m { // for each key-value (old, new values)...
		replacements = append(replacements, k, v) // save them
	}
	r := strings.NewReplacer(replacements...)
	*s = r.Replace(*s)
}

// mustJsonEscape marshals s to a JSON string and strips the enclosing quotes, so values
// holding regexp metacharacters survive substitution into a JSON pipe template.
func mustJsonEscape(log logger.Logger, s string) string {
	escaped, err := json.Marshal(s)
	if err != nil {
		log.Panic("error marshalling value ", s, " for use in a pipe template: ", err)
	}
	return strings.Trim(string(escaped), `"`)
}

// mustJsonData marshals a connection data map to a JSON object for inlining into a pipe
// template's connections block.
func mustJsonData(log logger.Logger, m map[string]string) string {
	if m == nil {
		m = map[string]string{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		log.Panic("error marshalling connection data for use in a pipe template: ", err)
	}
	return string(data)
}

func outputPipeDefinition(log logger.Logger, transformString string, yamlOrJson string, includeConnections bool) error {
	// Unmarshal the transform.
	t := transform.TransformDefinition{}
	err := json.Unmarshal([]byte(transformString), &t)
	if err != nil {
		return err
	}
	if !includeConnections {
		deleteConnections(&t)
	}
	if yamlOrJson == "yaml" {
		writeTransformConfigToFile(log, &t, os.Stdout, true)
	} else if yamlOrJson == "json" {
		writeTransformConfigToFile(log, &t, os.Stdout, false)
	} else {
		return fmt.Errorf("unsupported output format %q", yamlOrJson)
	}
	return nil
}

// TODO: add test for nil map being set.
func deleteConnections(t *transform.TransformDefinition) {
	for k := range t.Connections {
		c := t.Connections[k]
		t.Connections[k] = connections.ConnectionDetails{Type: c.Type, LogicalName: c.LogicalName}
	}
}

func writeTransformConfigToFile(log logger.Logger, t *transform.TransformDefinition, f io.Writer, useYaml bool) {
	var err error
	var data []byte
	if useYaml {
		data, err = yaml.Marshal(t)
	} else {
		data, err = json.MarshalIndent(t, "", "  ")
	}
	if err != nil {
		log.Panic("unable to marshal the transform: ", err)
	}
	_, err = f.Write(data)
	if err != nil {
		log.Panic(err)
	}
}

func mustExecFn(log logger.Logger, printLogFn func(msg string), execFn func() error) {
	printLogFn("Executing storage request...")
	err := execFn()
	if err != nil {
		log.Panic(err)
	}
	printLogFn("Storage request succeeded without error.")
}

func getPrintLogFunc(log logger.Logger, useStdOut bool) func(msg string) {
	return func(msg string) {
		if useStdOut {
			fmt.Println(msg)
		} else {
			log.Info(msg)
		}
	}
}

func loadTransformFromFile(transformFileName string) (*transform.TransformDefinition, error) {
	// Open the transform file.
	raw, err := ioutil.ReadFile(transformFileName)
	if err != nil {
		return nil, err
	}
	t := transform.TransformDefinition{}
	// Check file extension YAML or JSON.
	r := regexp.MustCompile(`.*\.(json|yaml)`)
	suffix := r.ReplaceAllString(strings.ToLower(transformFileName), `$1`)
	// Unmarshal based on file type.
	if suffix == "json" { // if the file type is json...
		err = json.Unmarshal(raw, &t)
		if err != nil {
			return nil, fmt.Errorf("error reading transformation JSON: unmarshal errors: %v", err)
		}
	} else if suffix == "yaml" { // else the file type is yaml...
		transformBytes, err := yaml.YAMLToJSON(raw) // http://ghodss.com/2014/the-right-way-to-handle-yaml-in-golang/
		if err != nil {
			return nil, err
		}
		err = json.Unmarshal(transformBytes, &t)
		if err != nil {
			return nil, fmt.Errorf("error reading transformation YAML after conversion to JSON: unmarshal errors: %v", err)
		}
	} else {
		return nil, fmt.Errorf("unable to identify type of transformation file by its extension. Please use .yaml or .json")
	}
	return &t, nil
}
